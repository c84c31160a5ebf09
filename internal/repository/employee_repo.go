package repository

import (
	"context"

	"netbanking/internal/model"

	"gorm.io/gorm"
)

type EmployeeRepository struct {
	db *gorm.DB
}

func NewEmployeeRepository(db *gorm.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

func (r *EmployeeRepository) List(ctx context.Context) ([]*model.Employee, error) {
	var employees []*model.Employee
	err := r.db.WithContext(ctx).Order("id").Find(&employees).Error
	return employees, err
}

func (r *EmployeeRepository) GetByID(ctx context.Context, id int64) (*model.Employee, error) {
	var e model.Employee
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, notFound(err, ErrEmployeeNotFound)
	}
	return &e, nil
}

// FindByIDAndName is the staff login lookup.
func (r *EmployeeRepository) FindByIDAndName(ctx context.Context, id int64, name string) (*model.Employee, error) {
	var e model.Employee
	if err := r.db.WithContext(ctx).Where("id = ? AND name = ?", id, name).First(&e).Error; err != nil {
		return nil, notFound(err, ErrEmployeeNotFound)
	}
	return &e, nil
}

func (r *EmployeeRepository) Create(ctx context.Context, e *model.Employee) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *EmployeeRepository) Update(ctx context.Context, e *model.Employee) error {
	// RowsAffected is 0 on MySQL when nothing changed, so check existence first
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Employee{}).Where("id = ?", e.ID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrEmployeeNotFound
	}
	return r.db.WithContext(ctx).
		Model(&model.Employee{}).
		Where("id = ?", e.ID).
		Updates(map[string]interface{}{
			"name":    e.Name,
			"dob":     e.DOB,
			"address": e.Address,
			"role":    e.Role,
		}).Error
}

func (r *EmployeeRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Employee{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}
