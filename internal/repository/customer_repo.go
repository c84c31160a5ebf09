package repository

import (
	"context"

	"netbanking/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CustomerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) Create(ctx context.Context, tx *gorm.DB, customer *model.Customer) error {
	return duplicate(pick(r.db, tx).WithContext(ctx).Create(customer).Error)
}

func (r *CustomerRepository) GetByID(ctx context.Context, id int64) (*model.Customer, error) {
	var c model.Customer
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, notFound(err, ErrCustomerNotFound)
	}
	return &c, nil
}

// ExistsByPhoneOrEmail backs the duplicate-registration check.
func (r *CustomerRepository) ExistsByPhoneOrEmail(ctx context.Context, tx *gorm.DB, phone, email string) (bool, error) {
	var count int64
	err := pick(r.db, tx).WithContext(ctx).
		Model(&model.Customer{}).
		Where("phone = ? OR email = ?", phone, email).
		Count(&count).Error
	return count > 0, err
}

func (r *CustomerRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Customer{}).Count(&n).Error
	return n, err
}

func (r *CustomerRepository) Delete(ctx context.Context, tx *gorm.DB, id int64) error {
	return tx.WithContext(ctx).Where("id = ?", id).Delete(&model.Customer{}).Error
}

// CustomerAccount is a customer joined with their account.
type CustomerAccount struct {
	CustomerID  int64
	Name        string
	Email       string
	Phone       string
	AccountID   int64
	AccountNo   string
	AccountType string
	Balance     decimal.Decimal
	Status      string
}

func (r *CustomerRepository) customerAccounts(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("customer AS c").
		Select("c.id AS customer_id, c.name, c.email, c.phone, " +
			"a.id AS account_id, a.account_no, a.type AS account_type, a.balance, a.status").
		Joins("JOIN account AS a ON a.customer_id = c.id")
}

func (r *CustomerRepository) FindByPhoneAndAccountNo(ctx context.Context, phone, accountNo string) (*CustomerAccount, error) {
	var row CustomerAccount
	err := r.customerAccounts(ctx).
		Where("c.phone = ? AND a.account_no = ?", phone, accountNo).
		Take(&row).Error
	if err != nil {
		return nil, notFound(err, ErrAccountNotFound)
	}
	return &row, nil
}

func (r *CustomerRepository) FindByAccountID(ctx context.Context, accountID int64) (*CustomerAccount, error) {
	var row CustomerAccount
	err := r.customerAccounts(ctx).Where("a.id = ?", accountID).Take(&row).Error
	if err != nil {
		return nil, notFound(err, ErrAccountNotFound)
	}
	return &row, nil
}

// List returns every customer account, newest customer first. An empty
// status lists all.
func (r *CustomerRepository) List(ctx context.Context, status string) ([]CustomerAccount, error) {
	q := r.customerAccounts(ctx)
	if status != "" {
		q = q.Where("a.status = ?", status)
	}
	var rows []CustomerAccount
	err := q.Order("c.id DESC").Scan(&rows).Error
	return rows, err
}
