package repository

import (
	"context"

	"netbanking/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, tx *gorm.DB, account *model.Account) error {
	return duplicate(pick(r.db, tx).WithContext(ctx).Create(account).Error)
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		return nil, notFound(err, ErrAccountNotFound)
	}
	return &account, nil
}

func (r *AccountRepository) GetByAccountNo(ctx context.Context, tx *gorm.DB, accountNo string) (*model.Account, error) {
	var account model.Account
	err := pick(r.db, tx).WithContext(ctx).Where("account_no = ?", accountNo).First(&account).Error
	if err != nil {
		return nil, notFound(err, ErrAccountNotFound)
	}
	return &account, nil
}

// GetByIDForUpdate reads the row with SELECT ... FOR UPDATE so no other
// transaction can change the balance until tx ends. Dialects without row
// locks (sqlite) ignore the clause; the version check still applies there.
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id int64) (*model.Account, error) {
	var account model.Account
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&account).Error
	if err != nil {
		return nil, notFound(err, ErrAccountNotFound)
	}
	return &account, nil
}

// UpdateBalance writes the new balance if the row still carries version and
// bumps the version. Zero rows affected means someone else wrote first.
func (r *AccountRepository) UpdateBalance(ctx context.Context, tx *gorm.DB, account *model.Account, newBalance decimal.Decimal) error {
	result := tx.WithContext(ctx).
		Model(&model.Account{}).
		Where("id = ? AND version = ?", account.ID, account.Version).
		Updates(map[string]interface{}{
			"balance": newBalance,
			"version": gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOptimisticLock
	}

	account.Balance = newBalance
	account.Version++
	return nil
}

func (r *AccountRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, accountNo, status string) error {
	result := pick(r.db, tx).WithContext(ctx).
		Model(&model.Account{}).
		Where("account_no = ?", accountNo).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) Delete(ctx context.Context, tx *gorm.DB, id int64) error {
	return tx.WithContext(ctx).Where("id = ?", id).Delete(&model.Account{}).Error
}

// TotalBalance sums every account balance.
func (r *AccountRepository) TotalBalance(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&model.Account{}).
		Select("COALESCE(SUM(balance), 0)").
		Row().Scan(&total)
	return total.Round(2), err
}
