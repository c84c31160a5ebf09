package repository

import (
	"context"
	"time"

	"netbanking/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LoanRepository owns loan, takes and repayment.
type LoanRepository struct {
	db *gorm.DB
}

func NewLoanRepository(db *gorm.DB) *LoanRepository {
	return &LoanRepository{db: db}
}

// LoanDetail is one loan as seen by its holder.
type LoanDetail struct {
	LoanID          int64
	RepaymentID     int64
	AccountID       int64
	AccountNo       string
	Type            string
	Status          string
	InterestRate    decimal.Decimal
	DurationMonths  int
	Purpose         string
	Amount          decimal.Decimal
	Role            string
	TakenAt         time.Time
	AmountPaid      decimal.Decimal
	RemainingAmount decimal.Decimal
}

func (r *LoanRepository) details(ctx context.Context, tx *gorm.DB) *gorm.DB {
	return pick(r.db, tx).WithContext(ctx).
		Table("takes AS t").
		Select("l.id AS loan_id, r.id AS repayment_id, t.account_id, a.account_no, l.type, l.status, " +
			"l.interest_rate, l.duration_months, l.purpose, t.amount, t.role, t.taken_at, " +
			"r.amount_paid, r.remaining_amount").
		Joins("JOIN loan AS l ON l.id = t.loan_id").
		Joins("JOIN account AS a ON a.id = t.account_id").
		Joins("JOIN repayment AS r ON r.loan_id = l.id")
}

// CountByAccount is the lifetime number of loans the account has taken.
func (r *LoanRepository) CountByAccount(ctx context.Context, tx *gorm.DB, accountID int64) (int64, error) {
	var n int64
	err := pick(r.db, tx).WithContext(ctx).
		Model(&model.LoanHolding{}).
		Where("account_id = ?", accountID).
		Count(&n).Error
	return n, err
}

// OutstandingByAccount sums remaining balances of the account's unpaid loans.
func (r *LoanRepository) OutstandingByAccount(ctx context.Context, tx *gorm.DB, accountID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := pick(r.db, tx).WithContext(ctx).
		Table("takes AS t").
		Select("COALESCE(SUM(r.remaining_amount), 0)").
		Joins("JOIN repayment AS r ON r.loan_id = t.loan_id").
		Where("t.account_id = ? AND r.remaining_amount > 0", accountID).
		Row().Scan(&total)
	return total.Round(2), err
}

// FindOutstanding returns the most recently taken loan with a remaining balance.
func (r *LoanRepository) FindOutstanding(ctx context.Context, tx *gorm.DB, accountID int64) (*LoanDetail, error) {
	var d LoanDetail
	err := r.details(ctx, tx).
		Where("t.account_id = ? AND r.remaining_amount > 0", accountID).
		Order("t.taken_at DESC, t.id DESC").
		Take(&d).Error
	if err != nil {
		return nil, notFound(err, ErrLoanNotFound)
	}
	return &d, nil
}

func (r *LoanRepository) ListByAccount(ctx context.Context, accountID int64) ([]LoanDetail, error) {
	var rows []LoanDetail
	err := r.details(ctx, nil).
		Where("t.account_id = ?", accountID).
		Order("t.taken_at DESC, t.id DESC").
		Scan(&rows).Error
	return rows, err
}

// ListOutstanding lists every unpaid loan in the bank.
func (r *LoanRepository) ListOutstanding(ctx context.Context) ([]LoanDetail, error) {
	var rows []LoanDetail
	err := r.details(ctx, nil).
		Where("r.remaining_amount > 0").
		Order("t.taken_at DESC, t.id DESC").
		Scan(&rows).Error
	return rows, err
}

func (r *LoanRepository) CountOutstanding(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Repayment{}).
		Where("remaining_amount > 0").
		Count(&n).Error
	return n, err
}

func (r *LoanRepository) CreateLoan(ctx context.Context, tx *gorm.DB, loan *model.Loan) error {
	return tx.WithContext(ctx).Create(loan).Error
}

func (r *LoanRepository) CreateHolding(ctx context.Context, tx *gorm.DB, holding *model.LoanHolding) error {
	return tx.WithContext(ctx).Create(holding).Error
}

func (r *LoanRepository) CreateRepayment(ctx context.Context, tx *gorm.DB, rep *model.Repayment) error {
	return tx.WithContext(ctx).Create(rep).Error
}

func (r *LoanRepository) UpdateRepayment(ctx context.Context, tx *gorm.DB, repaymentID int64, paid, remaining decimal.Decimal) error {
	return tx.WithContext(ctx).
		Model(&model.Repayment{}).
		Where("id = ?", repaymentID).
		Updates(map[string]interface{}{
			"amount_paid":      paid,
			"remaining_amount": remaining,
		}).Error
}

func (r *LoanRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, loanID int64, status string) error {
	return tx.WithContext(ctx).
		Model(&model.Loan{}).
		Where("id = ?", loanID).
		Update("status", status).Error
}

// DeleteByAccount removes repayments, holdings and loans of the account, in
// that order so no foreign key is left dangling.
func (r *LoanRepository) DeleteByAccount(ctx context.Context, tx *gorm.DB, accountID int64) error {
	var loanIDs []int64
	if err := tx.WithContext(ctx).
		Model(&model.LoanHolding{}).
		Where("account_id = ?", accountID).
		Pluck("loan_id", &loanIDs).Error; err != nil {
		return err
	}
	if len(loanIDs) == 0 {
		return nil
	}
	if err := tx.WithContext(ctx).Where("loan_id IN ?", loanIDs).Delete(&model.Repayment{}).Error; err != nil {
		return err
	}
	if err := tx.WithContext(ctx).Where("account_id = ?", accountID).Delete(&model.LoanHolding{}).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).Where("id IN ?", loanIDs).Delete(&model.Loan{}).Error
}
