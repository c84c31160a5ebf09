package model

// All lists every table, in creation order, for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&Customer{},
		&Account{},
		&Employee{},
		&LedgerEntry{},
		&AuditRecord{},
		&Loan{},
		&LoanHolding{},
		&Repayment{},
		&OutboxMessage{},
	}
}
