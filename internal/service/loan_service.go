package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"netbanking/internal/config"
	"netbanking/internal/infrastructure/lock"
	"netbanking/internal/infrastructure/mail"
	"netbanking/internal/model"
	"netbanking/internal/repository"
	"netbanking/internal/validation"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	msgLoanLimit       = "Maximum loan limit reached (3 loans)"
	msgLoanOutstanding = "Please pay off existing loan before taking a new one"
	msgNoActiveLoan    = "No active loan found"

	mailTimeout = 30 * time.Second
)

var hundred = decimal.NewFromInt(100)

type LoanService struct {
	*ledgerCore
	loans        *repository.LoanRepository
	customers    *repository.CustomerRepository
	mailer       mail.Mailer
	approvalWait time.Duration
}

func NewLoanService(db *gorm.DB, locker lock.Locker, mailer mail.Mailer, cfg *config.Config, log zerolog.Logger) *LoanService {
	return &LoanService{
		ledgerCore:   newLedgerCore(db, locker, cfg, log),
		loans:        repository.NewLoanRepository(db),
		customers:    repository.NewCustomerRepository(db),
		mailer:       mailer,
		approvalWait: cfg.Business.LoanApprovalDelay,
	}
}

type EligibilityResponse struct {
	LoanCount         int64           `json:"loanCount"`
	MaxLoans          int             `json:"maxLoans"`
	ActiveLoanBalance decimal.Decimal `json:"activeLoanBalance"`
	HasActiveLoan     bool            `json:"hasActiveLoan"`
	CanApply          bool            `json:"canApply"`
}

func (s *LoanService) Eligibility(ctx context.Context, caller Caller) (*EligibilityResponse, error) {
	e, err := s.eligibility(ctx, nil, caller.AccountID)
	if err != nil {
		return nil, internalErr("Failed to check eligibility", err)
	}
	return e, nil
}

func (s *LoanService) eligibility(ctx context.Context, tx *gorm.DB, accountID int64) (*EligibilityResponse, error) {
	count, err := s.loans.CountByAccount(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	outstanding, err := s.loans.OutstandingByAccount(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	hasActive := outstanding.IsPositive()
	return &EligibilityResponse{
		LoanCount:         count,
		MaxLoans:          model.MaxLoansPerAccount,
		ActiveLoanBalance: outstanding,
		HasActiveLoan:     hasActive,
		CanApply:          count < model.MaxLoansPerAccount && !hasActive,
	}, nil
}

// checkEligible turns an eligibility snapshot into the rejection a client sees.
func checkEligible(e *EligibilityResponse) error {
	if e.LoanCount >= model.MaxLoansPerAccount {
		return newErr(KindBusiness, msgLoanLimit)
	}
	if e.HasActiveLoan {
		return newErr(KindBusiness, msgLoanOutstanding)
	}
	return nil
}

type TakeLoanRequest struct {
	LoanType string            `json:"loanType"`
	Amount   validation.Amount `json:"amount"`
	Duration validation.Months `json:"duration"`
	Purpose  string            `json:"purpose"`
}

type TakeLoanResponse struct {
	LoanID         int64           `json:"loanId"`
	LoanType       string          `json:"loanType"`
	LoanAmount     decimal.Decimal `json:"loanAmount"`
	InterestRate   decimal.Decimal `json:"interestRate"`
	InterestAmount decimal.Decimal `json:"interestAmount"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	Duration       int             `json:"duration"`
	NewBalance     decimal.Decimal `json:"newBalance"`
}

// TakeLoan approves a loan, credits the principal and opens a repayment
// schedule for principal plus flat interest. Approval is preceded by the
// configured processing delay; eligibility is checked before the wait and
// again under the account lock.
func (s *LoanService) TakeLoan(ctx context.Context, caller Caller, req *TakeLoanRequest) (*TakeLoanResponse, error) {
	if strings.TrimSpace(req.LoanType) == "" || req.Duration == 0 {
		return nil, newErr(KindValidation, "Loan type and duration are required")
	}
	loanType, err := validation.ParseLoanType(req.LoanType)
	if err != nil {
		return nil, asServiceError(err, "")
	}
	months, err := validation.LoanDuration(req.Duration)
	if err != nil {
		return nil, asServiceError(err, "")
	}
	principal, err := validation.LoanAmount(req.Amount)
	if err != nil {
		return nil, asServiceError(err, "")
	}

	interest := principal.Mul(loanType.Rate).Div(hundred).Round(2)
	total := principal.Add(interest)

	pre, err := s.eligibility(ctx, nil, caller.AccountID)
	if err != nil {
		return nil, internalErr("Loan application failed", err)
	}
	if err := checkEligible(pre); err != nil {
		return nil, err
	}

	if err := s.processingDelay(ctx); err != nil {
		return nil, internalErr("Loan application cancelled", err)
	}

	var (
		loan  *model.Loan
		entry *model.LedgerEntry
	)
	err = s.withAccounts(ctx, []int64{caller.AccountID}, func(tx *gorm.DB) error {
		account, err := s.lockActive(ctx, tx, caller.AccountID)
		if err != nil {
			return err
		}
		e, err := s.eligibility(ctx, tx, account.ID)
		if err != nil {
			return err
		}
		if err := checkEligible(e); err != nil {
			return err
		}

		loan = &model.Loan{
			Type:           loanType.Name,
			Status:         model.LoanStatusApproved,
			InterestRate:   loanType.Rate,
			DurationMonths: months,
			Purpose:        strings.TrimSpace(req.Purpose),
		}
		if err := s.loans.CreateLoan(ctx, tx, loan); err != nil {
			return err
		}
		if err := s.loans.CreateHolding(ctx, tx, &model.LoanHolding{
			AccountID: account.ID,
			LoanID:    loan.ID,
			Amount:    principal,
			Role:      model.LoanRolePrimaryBorrower,
			TakenAt:   s.now(),
		}); err != nil {
			return err
		}

		entry, err = s.post(ctx, tx, account, posting{
			Operation: model.OperationCredit,
			Amount:    principal,
			Category:  model.CategoryLoanApproval,
			Receiver:  model.ReceiverLoanDepartment,
			Reference: caller.Phone,
		})
		if err != nil {
			return err
		}

		return s.loans.CreateRepayment(ctx, tx, &model.Repayment{
			LoanID:          loan.ID,
			PaymentID:       entry.ID,
			AmountPaid:      decimal.Zero,
			RemainingAmount: total,
		})
	})
	if err != nil {
		s.logFailure(err, caller.AccountID, model.CategoryLoanApproval)
		return nil, asServiceError(err, "Loan application failed")
	}

	s.log.Info().
		Int64("account_id", caller.AccountID).
		Int64("loan_id", loan.ID).
		Str("type", loan.Type).
		Str("principal", principal.String()).
		Str("total", total.String()).
		Msg("loan approved")

	s.notify(caller.AccountID, func(ca *repository.CustomerAccount) (string, string) {
		return mail.LoanApprovedEmail(ca.Name, ca.AccountNo, loan.Type, principal, total, months)
	})

	return &TakeLoanResponse{
		LoanID:         loan.ID,
		LoanType:       loan.Type,
		LoanAmount:     principal,
		InterestRate:   loanType.Rate,
		InterestAmount: interest,
		TotalAmount:    total,
		Duration:       months,
		NewBalance:     entry.BalanceAfter,
	}, nil
}

func (s *LoanService) processingDelay(ctx context.Context) error {
	if s.approvalWait <= 0 {
		return nil
	}
	timer := time.NewTimer(s.approvalWait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type LoanView struct {
	ID                 int64           `json:"id"`
	LoanType           string          `json:"loanType"`
	LoanAmount         decimal.Decimal `json:"loanAmount"`
	InterestRate       decimal.Decimal `json:"interestRate"`
	OutstandingBalance decimal.Decimal `json:"outstandingBalance"`
	AmountPaid         decimal.Decimal `json:"amountPaid"`
	Status             string          `json:"status"`
	Role               string          `json:"role,omitempty"`
	TakenDate          time.Time       `json:"takenDate"`
}

func loanView(d *repository.LoanDetail) LoanView {
	return LoanView{
		ID:                 d.LoanID,
		LoanType:           d.Type,
		LoanAmount:         d.Amount,
		InterestRate:       d.InterestRate,
		OutstandingBalance: d.RemainingAmount,
		AmountPaid:         d.AmountPaid,
		Status:             d.Status,
		Role:               d.Role,
		TakenDate:          d.TakenAt,
	}
}

// Active returns the outstanding loan, or nil when there is none.
func (s *LoanService) Active(ctx context.Context, caller Caller) (*LoanView, error) {
	d, err := s.loans.FindOutstanding(ctx, nil, caller.AccountID)
	if errors.Is(err, repository.ErrLoanNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, internalErr("Failed to fetch loan details", err)
	}
	v := loanView(d)
	v.Role = ""
	return &v, nil
}

func (s *LoanService) History(ctx context.Context, caller Caller) ([]LoanView, error) {
	rows, err := s.loans.ListByAccount(ctx, caller.AccountID)
	if err != nil {
		return nil, internalErr("Failed to fetch loan history", err)
	}
	out := make([]LoanView, 0, len(rows))
	for i := range rows {
		out = append(out, loanView(&rows[i]))
	}
	return out, nil
}

type RepayRequest struct {
	Amount validation.Amount `json:"amount"`
}

type RepayResponse struct {
	PaidAmount       decimal.Decimal `json:"paidAmount"`
	RemainingBalance decimal.Decimal `json:"remainingBalance"`
	NewBalance       decimal.Decimal `json:"newBalance"`
	LoanStatus       string          `json:"loanStatus"`
}

// Settled reports whether the payment closed the loan.
func (r *RepayResponse) Settled() bool {
	return r.LoanStatus == model.LoanStatusPaid
}

// Repay pays amount off the outstanding loan. The loan is Paid once the
// remaining amount reaches exactly zero.
func (s *LoanService) Repay(ctx context.Context, caller Caller, req *RepayRequest) (*RepayResponse, error) {
	amount, err := validation.PositiveAmount(req.Amount, validation.DefaultMaxAmount, "Invalid payment amount")
	if err != nil {
		return nil, asServiceError(err, "")
	}

	var (
		detail    *repository.LoanDetail
		entry     *model.LedgerEntry
		remaining decimal.Decimal
	)
	err = s.withAccounts(ctx, []int64{caller.AccountID}, func(tx *gorm.DB) error {
		account, err := s.lockActive(ctx, tx, caller.AccountID)
		if err != nil {
			return err
		}
		if account.Balance.LessThan(amount) {
			return newErr(KindBusiness, msgInsufficient)
		}

		detail, err = s.loans.FindOutstanding(ctx, tx, account.ID)
		if err != nil {
			if errors.Is(err, repository.ErrLoanNotFound) {
				return newErr(KindNotFound, msgNoActiveLoan)
			}
			return err
		}
		if amount.GreaterThan(detail.RemainingAmount) {
			return newErr(KindBusiness, "Payment amount exceeds outstanding balance (%s%s)",
				validation.CurrencySymbol, detail.RemainingAmount.StringFixed(2))
		}

		remaining = detail.RemainingAmount.Sub(amount)
		if err := s.loans.UpdateRepayment(ctx, tx, detail.RepaymentID, detail.AmountPaid.Add(amount), remaining); err != nil {
			return err
		}
		if remaining.IsZero() {
			if err := s.loans.UpdateStatus(ctx, tx, detail.LoanID, model.LoanStatusPaid); err != nil {
				return err
			}
		}

		entry, err = s.post(ctx, tx, account, posting{
			Operation: model.OperationDebit,
			Amount:    amount,
			Category:  model.CategoryLoanRepayment,
			Receiver:  model.ReceiverLoanDepartment,
			Reference: caller.Phone,
		})
		return err
	})
	if err != nil {
		s.logFailure(err, caller.AccountID, model.CategoryLoanRepayment)
		return nil, asServiceError(err, "Payment failed")
	}

	resp := &RepayResponse{
		PaidAmount:       amount,
		RemainingBalance: remaining,
		NewBalance:       entry.BalanceAfter,
		LoanStatus:       "Active",
	}
	if remaining.IsZero() {
		resp.LoanStatus = model.LoanStatusPaid
		loanType := detail.Type
		s.notify(caller.AccountID, func(ca *repository.CustomerAccount) (string, string) {
			return mail.LoanPaidOffEmail(ca.Name, ca.AccountNo, loanType)
		})
	}

	s.log.Info().
		Int64("account_id", caller.AccountID).
		Int64("loan_id", detail.LoanID).
		Str("amount", amount.String()).
		Str("remaining", remaining.String()).
		Msg("loan repayment posted")

	return resp, nil
}

// notify mails the account holder in the background. Failures are logged
// only; the money movement is already committed.
func (s *LoanService) notify(accountID int64, build func(ca *repository.CustomerAccount) (subject, body string)) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
		defer cancel()

		ca, err := s.customers.FindByAccountID(ctx, accountID)
		if err != nil {
			s.log.Warn().Err(err).Int64("account_id", accountID).Msg("mail recipient lookup failed")
			return
		}
		subject, body := build(ca)
		if err := s.mailer.Send(ctx, ca.Email, subject, body); err != nil {
			s.log.Warn().Err(err).Int64("account_id", accountID).Msg("send mail failed")
		}
	}()
}
