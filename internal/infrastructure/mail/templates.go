package mail

import (
	"fmt"
	"html"

	"github.com/shopspring/decimal"
)

func LoanApprovedEmail(name, accountNo, loanType string, principal, total decimal.Decimal, months int) (subject, body string) {
	subject = "Your loan has been approved"
	body = fmt.Sprintf(`
		<h2>Loan approved</h2>
		<p>Dear %s,</p>
		<p>Your %s loan for account %s has been approved and credited.</p>
		<p>Principal: %s</p>
		<p>Total payable: %s over %d months</p>
	`, html.EscapeString(name), html.EscapeString(loanType), accountNo,
		principal.StringFixed(2), total.StringFixed(2), months)
	return subject, body
}

func LoanPaidOffEmail(name, accountNo, loanType string) (subject, body string) {
	subject = "Your loan is fully repaid"
	body = fmt.Sprintf(`
		<h2>Loan closed</h2>
		<p>Dear %s,</p>
		<p>The %s loan on account %s is now fully paid. Thank you.</p>
	`, html.EscapeString(name), html.EscapeString(loanType), accountNo)
	return subject, body
}
