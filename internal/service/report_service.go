package service

import (
	"context"
	"time"

	"netbanking/internal/config"
	"netbanking/internal/model"
	"netbanking/internal/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReportService serves the read-only staff views.
type ReportService struct {
	accounts  *repository.AccountRepository
	customers *repository.CustomerRepository
	ledger    *repository.LedgerRepository
	loans     *repository.LoanRepository
	listLimit int
	log       zerolog.Logger
}

func NewReportService(db *gorm.DB, cfg *config.Config, log zerolog.Logger) *ReportService {
	limit := cfg.Business.AdminListLimit
	if limit <= 0 {
		limit = 100
	}
	return &ReportService{
		accounts:  repository.NewAccountRepository(db),
		customers: repository.NewCustomerRepository(db),
		ledger:    repository.NewLedgerRepository(db),
		loans:     repository.NewLoanRepository(db),
		listLimit: limit,
		log:       log,
	}
}

type StatsResponse struct {
	TotalUsers        int64           `json:"totalUsers"`
	TotalTransactions int64           `json:"totalTransactions"`
	ActiveLoans       int64           `json:"activeLoans"`
	TotalBalance      decimal.Decimal `json:"totalBalance"`
}

func (s *ReportService) Stats(ctx context.Context) (*StatsResponse, error) {
	users, err := s.customers.Count(ctx)
	if err != nil {
		return nil, internalErr("Failed to fetch stats", err)
	}
	txns, err := s.ledger.Count(ctx)
	if err != nil {
		return nil, internalErr("Failed to fetch stats", err)
	}
	loans, err := s.loans.CountOutstanding(ctx)
	if err != nil {
		return nil, internalErr("Failed to fetch stats", err)
	}
	total, err := s.accounts.TotalBalance(ctx)
	if err != nil {
		return nil, internalErr("Failed to fetch stats", err)
	}
	return &StatsResponse{
		TotalUsers:        users,
		TotalTransactions: txns,
		ActiveLoans:       loans,
		TotalBalance:      total,
	}, nil
}

type UserView struct {
	CustomerID int64           `json:"customerId"`
	Name       string          `json:"name"`
	Phone      string          `json:"phone"`
	Email      string          `json:"email,omitempty"`
	AccountNo  string          `json:"accountNo"`
	Balance    decimal.Decimal `json:"balance"`
	Status     string          `json:"status,omitempty"`
}

type UsersResponse struct {
	Users []UserView `json:"users"`
}

// Users lists customer accounts. Admins see every account with contact
// details and status; managers (activeOnly) see Active accounts only.
func (s *ReportService) Users(ctx context.Context, activeOnly bool) (*UsersResponse, error) {
	status := ""
	if activeOnly {
		status = model.AccountStatusActive
	}
	rows, err := s.customers.List(ctx, status)
	if err != nil {
		return nil, internalErr("Failed to fetch users", err)
	}

	users := make([]UserView, 0, len(rows))
	for _, r := range rows {
		u := UserView{
			CustomerID: r.CustomerID,
			Name:       r.Name,
			Phone:      r.Phone,
			AccountNo:  r.AccountNo,
			Balance:    r.Balance,
		}
		if !activeOnly {
			u.Email = r.Email
			u.Status = r.Status
		}
		users = append(users, u)
	}
	return &UsersResponse{Users: users}, nil
}

type TransactionView struct {
	ID        int64           `json:"id"`
	AccountNo string          `json:"accountNo"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Operation string          `json:"operation"`
	Status    string          `json:"status"`
	Date      time.Time       `json:"date"`
}

type TransactionsResponse struct {
	Transactions []TransactionView `json:"transactions"`
}

func (s *ReportService) Transactions(ctx context.Context) (*TransactionsResponse, error) {
	rows, err := s.ledger.ListRecent(ctx, s.listLimit)
	if err != nil {
		return nil, internalErr("Failed to fetch transactions", err)
	}
	out := make([]TransactionView, 0, len(rows))
	for _, r := range rows {
		out = append(out, TransactionView{
			ID:        r.ID,
			AccountNo: r.AccountNo,
			Type:      r.Category,
			Amount:    r.Amount,
			Operation: r.Operation,
			Status:    r.Status,
			Date:      r.CreatedAt,
		})
	}
	return &TransactionsResponse{Transactions: out}, nil
}

type OutstandingLoan struct {
	LoanID    int64           `json:"loanId"`
	AccountNo string          `json:"accountNo"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Remaining decimal.Decimal `json:"remaining"`
	Status    string          `json:"status"`
}

type LoansResponse struct {
	Loans []OutstandingLoan `json:"loans"`
}

func (s *ReportService) Loans(ctx context.Context) (*LoansResponse, error) {
	rows, err := s.loans.ListOutstanding(ctx)
	if err != nil {
		return nil, internalErr("Failed to fetch loans", err)
	}
	out := make([]OutstandingLoan, 0, len(rows))
	for _, r := range rows {
		out = append(out, OutstandingLoan{
			LoanID:    r.LoanID,
			AccountNo: r.AccountNo,
			Type:      r.Type,
			Amount:    r.Amount,
			Remaining: r.RemainingAmount,
			Status:    r.Status,
		})
	}
	return &LoansResponse{Loans: out}, nil
}

// ============================================================================
// Reconciliation
// ============================================================================

type Drift struct {
	AccountID  int64           `json:"accountId"`
	AccountNo  string          `json:"accountNo"`
	Balance    decimal.Decimal `json:"balance"`
	Expected   decimal.Decimal `json:"expected"`
	Difference decimal.Decimal `json:"difference"`
}

type ReconcileResponse struct {
	Checked int       `json:"checked"`
	Drifts  []Drift   `json:"drifts"`
	At      time.Time `json:"at"`
}

func (r *ReconcileResponse) Balanced() bool {
	return len(r.Drifts) == 0
}

// Reconcile replays the ledger of every account and reports the accounts
// whose stored balance is not opening balance + credits - debits.
func (s *ReportService) Reconcile(ctx context.Context) (*ReconcileResponse, error) {
	totals, err := s.ledger.Totals(ctx)
	if err != nil {
		return nil, internalErr("Failed to reconcile balances", err)
	}

	resp := &ReconcileResponse{Checked: len(totals), Drifts: []Drift{}, At: time.Now()}
	for _, t := range totals {
		expected := t.OpeningBalance.Add(t.Credits).Sub(t.Debits).Round(2)
		balance := t.Balance.Round(2)
		if expected.Equal(balance) {
			continue
		}
		resp.Drifts = append(resp.Drifts, Drift{
			AccountID:  t.AccountID,
			AccountNo:  t.AccountNo,
			Balance:    balance,
			Expected:   expected,
			Difference: balance.Sub(expected),
		})
	}

	if !resp.Balanced() {
		s.log.Error().Int("drifted", len(resp.Drifts)).Int("checked", resp.Checked).Msg("ledger reconciliation found drift")
	}
	return resp, nil
}
