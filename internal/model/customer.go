package model

import (
	"time"
)

// Customer is the person behind an account.
type Customer struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string     `gorm:"type:varchar(100);not null" json:"name"`
	Email     string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"email"`
	Phone     string     `gorm:"type:varchar(15);uniqueIndex;not null" json:"phone"`
	Address   string     `gorm:"type:varchar(255)" json:"address"`
	DOB       *time.Time `gorm:"column:dob;type:date" json:"dob,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (Customer) TableName() string {
	return "customer"
}
