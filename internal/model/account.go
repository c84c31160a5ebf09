package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	AccountStatusActive  = "Active"
	AccountStatusFrozen  = "Frozen"
	AccountStatusPending = "Pending"
	AccountStatusClosed  = "Closed"

	AccountTypeSavings = "Savings"
)

// Account holds one customer's money.
//
// Balance must always equal OpeningBalance plus the sum of credit ledger
// entries minus the sum of debit ledger entries. Version is bumped on every
// balance write and checked by the repository to detect lost updates.
type Account struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountNo      string          `gorm:"type:varchar(20);uniqueIndex;not null" json:"account_no"`
	Type           string          `gorm:"type:varchar(20);not null;default:Savings" json:"type"`
	Balance        decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"balance"`
	OpeningBalance decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"opening_balance"`
	Status         string          `gorm:"type:varchar(20);index;not null;default:Active" json:"status"`
	CustomerID     int64           `gorm:"uniqueIndex;not null" json:"customer_id"`
	Version        int             `gorm:"not null;default:0" json:"version"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string {
	return "account"
}

func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// MaxAccountSerial is the largest customer id that still fits the four
// digit ACC0000 account number.
const MaxAccountSerial = 9999

// FormatAccountNo renders the public account number for a customer id.
func FormatAccountNo(customerID int64) string {
	return fmt.Sprintf("ACC%04d", customerID)
}
