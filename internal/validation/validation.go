// Package validation holds the field-level checks every mutating request runs
// before it touches the database. Each check returns the normalized value and
// a *Error describing the first problem found.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Error is a user-facing validation failure.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func fail(format string, args ...interface{}) error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

var (
	phonePattern     = regexp.MustCompile(`^01[0-9]{9}$`)
	accountNoPattern = regexp.MustCompile(`^ACC\d{4}$`)
	emailPattern     = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	namePattern      = regexp.MustCompile(`^[a-zA-Z\s]+$`)
)

const CurrencySymbol = "₹"

var (
	DefaultMinAmount = decimal.NewFromInt(1)
	DefaultMaxAmount = decimal.NewFromInt(1000000)

	// Deposit, withdraw and transfer share this range.
	TransferMinAmount = decimal.NewFromInt(1)
	TransferMaxAmount = decimal.NewFromInt(100000)

	LoanMinAmount = decimal.NewFromInt(100)
	LoanMaxAmount = decimal.NewFromInt(5000)
)

// Amount is a money value as it arrived on the wire. Clients send either a
// JSON number or a numeric string; both are kept verbatim and parsed by
// ValidateAmount so that no precision is lost through float64.
type Amount string

func (a *Amount) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	switch {
	case raw == "null":
		*a = ""
	case strings.HasPrefix(raw, `"`):
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Amount(strings.TrimSpace(s))
	default:
		*a = Amount(raw)
	}
	return nil
}

// Phone checks an 11 digit number starting with 01.
func Phone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", fail("Phone number is required")
	}
	if !phonePattern.MatchString(phone) {
		return "", fail("Invalid phone number. Must be 11 digits starting with 01")
	}
	return phone, nil
}

// AccountNumber checks the ACC0000 format.
func AccountNumber(accountNo string) (string, error) {
	accountNo = strings.TrimSpace(accountNo)
	if accountNo == "" {
		return "", fail("Account number is required")
	}
	if !accountNoPattern.MatchString(accountNo) {
		return "", fail("Invalid account number format. Expected format: ACC0000")
	}
	return accountNo, nil
}

// amountExponentLimit bounds the decimal exponent accepted from clients.
// Comparing or rounding rescales to the smaller exponent, so 1e-10000000
// would otherwise build a ten-million-digit integer.
const amountExponentLimit = 18

var errNotANumber = errors.New("not a number")

// parseAmount parses raw and rejects exponents no money column can hold
// before anything compares or rounds the value.
func parseAmount(raw string, max decimal.Decimal) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errNotANumber
	}
	exp := d.Exponent()
	if exp >= -amountExponentLimit && exp <= amountExponentLimit {
		return d, nil
	}
	switch {
	case d.IsZero():
		return decimal.Zero, nil
	case d.IsNegative():
		// any negative fails the range checks; keep the exponent small
		return decimal.NewFromInt(-1), nil
	case exp < 0:
		return decimal.Zero, fail("Amount cannot have more than 2 decimal places")
	default:
		return decimal.Zero, fail("Amount cannot exceed %s%s", CurrencySymbol, max.String())
	}
}

// ValidateAmount parses a and checks min <= a <= max. Amounts are limited to
// two decimal places, the precision of every money column.
func ValidateAmount(a Amount, min, max decimal.Decimal) (decimal.Decimal, error) {
	raw := strings.TrimSpace(string(a))
	if raw == "" {
		return decimal.Zero, fail("Amount is required")
	}
	d, err := parseAmount(raw, max)
	if errors.Is(err, errNotANumber) {
		return decimal.Zero, fail("Amount must be a valid number")
	}
	if err != nil {
		return decimal.Zero, err
	}
	if d.LessThan(min) {
		return decimal.Zero, fail("Amount must be at least %s%s", CurrencySymbol, min.String())
	}
	if d.GreaterThan(max) {
		return decimal.Zero, fail("Amount cannot exceed %s%s", CurrencySymbol, max.String())
	}
	if !d.Equal(d.Round(2)) {
		return decimal.Zero, fail("Amount cannot have more than 2 decimal places")
	}
	return d.Round(2), nil
}

// LoanAmount is ValidateAmount over the loan principal range.
func LoanAmount(a Amount) (decimal.Decimal, error) {
	return ValidateAmount(a, LoanMinAmount, LoanMaxAmount)
}

// PositiveAmount accepts any amount strictly greater than zero up to max.
// Bill payments and loan repayments have no lower bound beyond that.
func PositiveAmount(a Amount, max decimal.Decimal, invalidMsg string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(string(a))
	if raw == "" {
		return decimal.Zero, fail(invalidMsg)
	}
	d, err := parseAmount(raw, max)
	if errors.Is(err, errNotANumber) {
		return decimal.Zero, fail(invalidMsg)
	}
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, fail(invalidMsg)
	}
	if d.GreaterThan(max) {
		return decimal.Zero, fail("Amount cannot exceed %s%s", CurrencySymbol, max.String())
	}
	if !d.Equal(d.Round(2)) {
		return decimal.Zero, fail("Amount cannot have more than 2 decimal places")
	}
	return d, nil
}

func Email(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", fail("Email is required")
	}
	if !emailPattern.MatchString(email) {
		return "", fail("Invalid email format")
	}
	return email, nil
}

// Name returns the trimmed name.
func Name(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fail("Name is required")
	}
	if n := len([]rune(name)); n < 2 || n > 100 {
		return "", fail("Name must be between 2 and 100 characters")
	}
	if !namePattern.MatchString(name) {
		return "", fail("Name can only contain letters and spaces")
	}
	return name, nil
}

const dateLayout = "2006-01-02"

// DateOfBirth is optional. When present it must be YYYY-MM-DD and the holder
// must be at least 18 on now.
func DateOfBirth(raw string, now time.Time) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if len(raw) > len(dateLayout) {
		// accept full timestamps from date pickers
		raw = raw[:len(dateLayout)]
	}
	dob, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, fail("Invalid date of birth. Expected format: YYYY-MM-DD")
	}
	if Age(dob, now) < 18 {
		return nil, fail("Must be at least 18 years old to register")
	}
	return &dob, nil
}

// Age counts full years between dob and now.
func Age(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}
