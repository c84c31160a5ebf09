package validation

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// BillType is one of the fixed bill categories and the counterparty that
// receives its payments.
type BillType struct {
	Name     string
	Receiver string
}

var billTypes = []BillType{
	{Name: "Electricity", Receiver: "DESCO"},
	{Name: "Internet", Receiver: "ISP"},
	{Name: "Water", Receiver: "WASA"},
	{Name: "Gas", Receiver: "Gas Company"},
	{Name: "Education", Receiver: "Institution"},
	{Name: "Donation", Receiver: "Charity"},
	{Name: "Other", Receiver: "Service Provider"},
}

// BillTypes lists the accepted categories in display order.
func BillTypes() []BillType {
	out := make([]BillType, len(billTypes))
	copy(out, billTypes)
	return out
}

// ParseBillType matches raw against the enumerated categories, ignoring case
// and an optional trailing " Bill". "electricity bill" and "Electricity" both
// resolve to Electricity; "Electricity and Gas" is rejected.
func ParseBillType(raw string) (BillType, error) {
	name := trimSuffixFold(strings.TrimSpace(raw), " bill")
	if name == "" {
		return BillType{}, fail("Bill type is required")
	}
	for _, bt := range billTypes {
		if strings.EqualFold(bt.Name, name) {
			return bt, nil
		}
	}
	return BillType{}, fail("Unknown bill type %q", strings.TrimSpace(raw))
}

// LoanType is one of the fixed loan products with its annual interest rate in percent.
type LoanType struct {
	Name string
	Rate decimal.Decimal
}

var loanTypes = []LoanType{
	{Name: "Personal", Rate: decimal.RequireFromString("12.50")},
	{Name: "Business", Rate: decimal.RequireFromString("14.00")},
	{Name: "Education", Rate: decimal.RequireFromString("8.75")},
	{Name: "Home", Rate: decimal.RequireFromString("9.20")},
	{Name: "Auto", Rate: decimal.RequireFromString("10.00")},
}

func LoanTypes() []LoanType {
	out := make([]LoanType, len(loanTypes))
	copy(out, loanTypes)
	return out
}

// ParseLoanType accepts "Personal", "personal loan" and so on.
func ParseLoanType(raw string) (LoanType, error) {
	name := trimSuffixFold(strings.TrimSpace(raw), " loan")
	if name == "" {
		return LoanType{}, fail("Loan type and duration are required")
	}
	for _, lt := range loanTypes {
		if strings.EqualFold(lt.Name, name) {
			return lt, nil
		}
	}
	return LoanType{}, fail("Unknown loan type %q", strings.TrimSpace(raw))
}

// Months is a loan duration. The JSON form may be a number or a numeric string.
type Months int

func (m *Months) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*m = 0
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
	}
	if raw == "" {
		*m = 0
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		// keep it invalid; LoanDuration reports the message
		*m = -1
		return nil
	}
	*m = Months(n)
	return nil
}

const MaxLoanMonths = 360

func LoanDuration(m Months) (int, error) {
	if m == 0 {
		return 0, fail("Loan type and duration are required")
	}
	if m < 1 || m > MaxLoanMonths {
		return 0, fail("Loan duration must be between 1 and %d months", MaxLoanMonths)
	}
	return int(m), nil
}

func trimSuffixFold(s, suffix string) string {
	if len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix) {
		return strings.TrimSpace(s[:len(s)-len(suffix)])
	}
	return s
}
