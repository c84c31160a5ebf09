package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"netbanking/internal/model"
	"netbanking/internal/repository"
	"netbanking/internal/validation"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const msgEmployeeNotFound = "Employee not found"

type EmployeeService struct {
	repo     *repository.EmployeeRepository
	validate *validator.Validate
	log      zerolog.Logger
	now      func() time.Time
}

func NewEmployeeService(db *gorm.DB, log zerolog.Logger) *EmployeeService {
	return &EmployeeService{
		repo:     repository.NewEmployeeRepository(db),
		validate: validator.New(),
		log:      log,
		now:      time.Now,
	}
}

type EmployeeRequest struct {
	Name    string `json:"name" validate:"required"`
	DOB     string `json:"dob"`
	Address string `json:"address" validate:"max=255"`
	Role    string `json:"role" validate:"omitempty,oneof=admin manager"`
}

type EmployeeView struct {
	ID      int64      `json:"id"`
	Name    string     `json:"name"`
	DOB     *time.Time `json:"dob"`
	Address string     `json:"address"`
	Role    string     `json:"role"`
}

func employeeView(e *model.Employee) EmployeeView {
	return EmployeeView{ID: e.ID, Name: e.Name, DOB: e.DOB, Address: e.Address, Role: e.Role}
}

func (s *EmployeeService) List(ctx context.Context) ([]EmployeeView, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, internalErr("Failed to fetch employees", err)
	}
	out := make([]EmployeeView, 0, len(rows))
	for _, e := range rows {
		out = append(out, employeeView(e))
	}
	return out, nil
}

func (s *EmployeeService) Get(ctx context.Context, id int64) (*EmployeeView, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapErr(err, "Failed to fetch employee")
	}
	v := employeeView(e)
	return &v, nil
}

func (s *EmployeeService) Create(ctx context.Context, req *EmployeeRequest) (*EmployeeView, error) {
	e, err := s.build(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, internalErr("Failed to add employee", err)
	}
	s.log.Info().Int64("employee_id", e.ID).Str("role", e.Role).Msg("employee added")
	v := employeeView(e)
	return &v, nil
}

func (s *EmployeeService) Update(ctx context.Context, id int64, req *EmployeeRequest) (*EmployeeView, error) {
	e, err := s.build(req)
	if err != nil {
		return nil, err
	}
	e.ID = id
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, s.mapErr(err, "Failed to update employee")
	}
	s.log.Info().Int64("employee_id", id).Msg("employee updated")
	v := employeeView(e)
	return &v, nil
}

func (s *EmployeeService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.mapErr(err, "Failed to delete employee")
	}
	s.log.Info().Int64("employee_id", id).Msg("employee deleted")
	return nil
}

func (s *EmployeeService) build(req *EmployeeRequest) (*model.Employee, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))
	if err := s.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			switch fieldErrs[0].Field() {
			case "Name":
				return nil, newErr(KindValidation, "Name is required")
			case "Role":
				return nil, newErr(KindValidation, "Role must be admin or manager")
			}
		}
		return nil, newErr(KindValidation, "Invalid employee data")
	}
	name, err := validation.Name(req.Name)
	if err != nil {
		return nil, asServiceError(err, "")
	}
	dob, err := validation.DateOfBirth(req.DOB, s.now())
	if err != nil {
		return nil, asServiceError(err, "")
	}
	role := req.Role
	if role == "" {
		role = model.RoleManager
	}
	return &model.Employee{
		Name:    name,
		DOB:     dob,
		Address: strings.TrimSpace(req.Address),
		Role:    role,
	}, nil
}

func (s *EmployeeService) mapErr(err error, fallback string) error {
	if errors.Is(err, repository.ErrEmployeeNotFound) {
		return newErr(KindNotFound, msgEmployeeNotFound)
	}
	return internalErr(fallback, err)
}
