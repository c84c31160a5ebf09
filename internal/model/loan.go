package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	LoanStatusApproved = "Approved"
	LoanStatusPaid     = "Paid"

	LoanRolePrimaryBorrower = "Primary Borrower"

	// MaxLoansPerAccount bounds the lifetime number of loans one account may take.
	MaxLoansPerAccount = 3
)

type Loan struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Type           string          `gorm:"type:varchar(50);not null" json:"type"`
	Status         string          `gorm:"type:varchar(20);not null" json:"status"`
	InterestRate   decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"interest_rate"`
	DurationMonths int             `gorm:"not null" json:"duration_months"`
	Purpose        string          `gorm:"type:varchar(255)" json:"purpose"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (Loan) TableName() string {
	return "loan"
}

// LoanHolding links an account to a loan it took.
type LoanHolding struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID int64           `gorm:"index;not null" json:"account_id"`
	LoanID    int64           `gorm:"uniqueIndex;not null" json:"loan_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Role      string          `gorm:"type:varchar(30);not null" json:"role"`
	TakenAt   time.Time       `gorm:"not null" json:"taken_at"`
}

func (LoanHolding) TableName() string {
	return "takes"
}

// Repayment is the running total for one loan. The loan is settled when
// RemainingAmount is exactly zero.
type Repayment struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	LoanID          int64           `gorm:"uniqueIndex;not null" json:"loan_id"`
	PaymentID       int64           `gorm:"not null" json:"payment_id"`
	AmountPaid      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount_paid"`
	RemainingAmount decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"remaining_amount"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Repayment) TableName() string {
	return "repayment"
}
