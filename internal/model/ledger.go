package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================================
// Ledger categories
// ============================================================================

const (
	CategoryDeposit       = "Deposit"
	CategoryWithdrawal    = "Withdrawal"
	CategoryTransfer      = "Transfer"
	CategoryLoanApproval  = "LoanApproval"
	CategoryLoanRepayment = "LoanRepayment"
)

// CoreCategories are every category that is not a bill payment.
var CoreCategories = []string{
	CategoryDeposit,
	CategoryWithdrawal,
	CategoryTransfer,
	CategoryLoanApproval,
	CategoryLoanRepayment,
}

const (
	OperationCredit = "Credit"
	OperationDebit  = "Debit"

	EntryStatusCompleted = "Completed"

	ReceiverSelf           = "Self"
	ReceiverCash           = "Cash"
	ReceiverLoanDepartment = "Loan Department"
)

// LedgerEntry is one money movement against one account.
//
// Rows are append-only. Amount is always positive and Operation carries the
// direction; BalanceAfter is the account balance right after this entry.
type LedgerEntry struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNo string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_no"`
	AccountID     int64           `gorm:"index:idx_ledger_account_time,priority:1;not null" json:"account_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"balance_after"`
	Status        string          `gorm:"type:varchar(20);not null" json:"status"`
	Category      string          `gorm:"type:varchar(50);index;not null" json:"category"`
	Receiver      string          `gorm:"type:varchar(100)" json:"receiver"`
	Operation     string          `gorm:"type:varchar(10);not null" json:"operation"`
	Reference     string          `gorm:"type:varchar(100)" json:"reference"`
	CreatedAt     time.Time       `gorm:"autoCreateTime;index:idx_ledger_account_time,priority:2" json:"created_at"`
}

func (LedgerEntry) TableName() string {
	return "payment_service"
}

func (e *LedgerEntry) IsCredit() bool {
	return e.Operation == OperationCredit
}

// AuditRecord is the coarse per-movement row kept next to the ledger for
// deposits, withdrawals, transfers and bill payments.
type AuditRecord struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID int64           `gorm:"index;not null" json:"account_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Status    string          `gorm:"type:varchar(20);not null" json:"status"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (AuditRecord) TableName() string {
	return "records"
}
