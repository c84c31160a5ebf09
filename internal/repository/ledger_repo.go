package repository

import (
	"context"
	"time"

	"netbanking/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerRepository owns payment_service (ledger entries) and records (audit rows).
type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) Create(ctx context.Context, tx *gorm.DB, entry *model.LedgerEntry) error {
	return pick(r.db, tx).WithContext(ctx).Create(entry).Error
}

func (r *LedgerRepository) CreateAudit(ctx context.Context, tx *gorm.DB, rec *model.AuditRecord) error {
	return pick(r.db, tx).WithContext(ctx).Create(rec).Error
}

func (r *LedgerRepository) GetByTransactionNo(ctx context.Context, transactionNo string) (*model.LedgerEntry, error) {
	var entry model.LedgerEntry
	err := r.db.WithContext(ctx).Where("transaction_no = ?", transactionNo).First(&entry).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// ListByAccount returns the newest entries first.
func (r *LedgerRepository) ListByAccount(ctx context.Context, accountID int64, limit int) ([]*model.LedgerEntry, error) {
	var entries []*model.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// ListBillsByAccount is ListByAccount without the core money-movement categories.
func (r *LedgerRepository) ListBillsByAccount(ctx context.Context, accountID int64, limit int) ([]*model.LedgerEntry, error) {
	var entries []*model.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND category NOT IN ?", accountID, model.CoreCategories).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *LedgerRepository) ListAuditByAccount(ctx context.Context, accountID int64) ([]*model.AuditRecord, error) {
	var recs []*model.AuditRecord
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("id ASC").
		Find(&recs).Error
	return recs, err
}

// LedgerView is a ledger entry with its account number, for staff views.
type LedgerView struct {
	ID        int64
	AccountNo string
	Category  string
	Amount    decimal.Decimal
	Operation string
	Receiver  string
	Status    string
	CreatedAt time.Time
}

func (r *LedgerRepository) ListRecent(ctx context.Context, limit int) ([]LedgerView, error) {
	var rows []LedgerView
	err := r.db.WithContext(ctx).
		Table("payment_service AS ps").
		Select("ps.id, a.account_no, ps.category, ps.amount, ps.operation, ps.receiver, ps.status, ps.created_at").
		Joins("JOIN account AS a ON a.id = ps.account_id").
		Order("ps.created_at DESC, ps.id DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *LedgerRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.LedgerEntry{}).Count(&n).Error
	return n, err
}

// AccountTotals is the ledger replay of one account.
type AccountTotals struct {
	AccountID      int64
	AccountNo      string
	OpeningBalance decimal.Decimal
	Balance        decimal.Decimal
	Credits        decimal.Decimal
	Debits         decimal.Decimal
}

// Totals sums credits and debits per account.
func (r *LedgerRepository) Totals(ctx context.Context) ([]AccountTotals, error) {
	var rows []AccountTotals
	err := r.db.WithContext(ctx).
		Table("account AS a").
		Select("a.id AS account_id, a.account_no, a.opening_balance, a.balance, " +
			"COALESCE(SUM(CASE WHEN ps.operation = 'Credit' THEN ps.amount ELSE 0 END), 0) AS credits, " +
			"COALESCE(SUM(CASE WHEN ps.operation = 'Debit' THEN ps.amount ELSE 0 END), 0) AS debits").
		Joins("LEFT JOIN payment_service AS ps ON ps.account_id = a.id").
		Group("a.id, a.account_no, a.opening_balance, a.balance").
		Order("a.id").
		Scan(&rows).Error
	for i := range rows {
		// sqlite sums as REAL
		rows[i].Credits = rows[i].Credits.Round(2)
		rows[i].Debits = rows[i].Debits.Round(2)
	}
	return rows, err
}

func (r *LedgerRepository) DeleteByAccount(ctx context.Context, tx *gorm.DB, accountID int64) error {
	if err := tx.WithContext(ctx).Where("account_id = ?", accountID).Delete(&model.LedgerEntry{}).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).Where("account_id = ?", accountID).Delete(&model.AuditRecord{}).Error
}
