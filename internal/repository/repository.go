package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrLoanNotFound     = errors.New("no active loan")
	ErrOptimisticLock   = errors.New("optimistic lock conflict")
	ErrDuplicate        = errors.New("duplicate key")
)

// pick returns tx when the caller is inside a transaction, db otherwise.
func pick(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}

func notFound(err error, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

func duplicate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}
