package model

import (
	"time"
)

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
)

type Employee struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string     `gorm:"type:varchar(100);not null" json:"name"`
	DOB       *time.Time `gorm:"column:dob;type:date" json:"dob,omitempty"`
	Address   string     `gorm:"type:varchar(255)" json:"address"`
	Role      string     `gorm:"type:varchar(20);not null;default:manager" json:"role"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (Employee) TableName() string {
	return "employee"
}
