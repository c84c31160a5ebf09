package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"netbanking/internal/config"
	"netbanking/internal/infrastructure/lock"
	"netbanking/internal/model"
	"netbanking/internal/testutil"
	"netbanking/internal/token"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type fixture struct {
	db     *gorm.DB
	cfg    *config.Config
	locker lock.Locker
	tokens *token.Manager
	mailer *recordingMailer

	auth   *AuthService
	ledger *LedgerService
	bills  *BillService
	loans  *LoanService
	admin  *AdminService
	report *ReportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := testutil.Config(t)
	return newFixtureWith(t, db, cfg)
}

func newFixtureWith(t *testing.T, db *gorm.DB, cfg *config.Config) *fixture {
	t.Helper()
	log := zerolog.Nop()
	f := &fixture{
		db:     db,
		cfg:    cfg,
		locker: lock.NewLocalLocker(),
		tokens: token.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer),
		mailer: newRecordingMailer(),
	}
	auth, err := NewAuthService(db, cfg, f.tokens, log)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	f.auth = auth
	f.ledger = NewLedgerService(db, f.locker, cfg, log)
	f.bills = NewBillService(db, f.locker, cfg, log)
	f.loans = NewLoanService(db, f.locker, f.mailer, cfg, log)
	f.admin = NewAdminService(db, f.locker, cfg, log)
	f.report = NewReportService(db, cfg, log)
	return f
}

var phoneSeq struct {
	sync.Mutex
	n int
}

// register creates a customer with a unique phone and email.
func (f *fixture) register(t *testing.T, name string) Caller {
	t.Helper()
	phoneSeq.Lock()
	phoneSeq.n++
	n := phoneSeq.n
	phoneSeq.Unlock()

	resp, err := f.auth.Register(context.Background(), &RegisterRequest{
		Name:  name,
		Email: fmt.Sprintf("user%d@example.com", n),
		Phone: fmt.Sprintf("017%08d", n),
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	var account model.Account
	if err := f.db.Where("account_no = ?", resp.AccountNo).First(&account).Error; err != nil {
		t.Fatalf("load account: %v", err)
	}
	return Caller{CustomerID: resp.CustomerID, AccountID: account.ID, Phone: resp.Phone}
}

func (f *fixture) balance(t *testing.T, c Caller) decimal.Decimal {
	t.Helper()
	resp, err := f.ledger.Balance(context.Background(), c)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	return resp.Balance
}

func (f *fixture) countEntries(t *testing.T, accountID int64) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&model.LedgerEntry{}).Where("account_id = ?", accountID).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}

func (f *fixture) countAudit(t *testing.T, accountID int64) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&model.AuditRecord{}).Where("account_id = ?", accountID).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, what string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Errorf("%s = %s, want %s", what, got, want)
	}
}

// assertKind checks err is a *Error of kind with message msg (msg "" skips the message check).
func assertKind(t *testing.T, err error, kind Kind, msg string) {
	t.Helper()
	var se *Error
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *service.Error", err)
	}
	if se.Kind != kind {
		t.Errorf("kind = %s, want %s (%v)", se.Kind, kind, err)
	}
	if msg != "" && se.Message != msg {
		t.Errorf("message = %q, want %q", se.Message, msg)
	}
}

type sentMail struct {
	to, subject, body string
}

type recordingMailer struct {
	sent chan sentMail
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{sent: make(chan sentMail, 16)}
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	m.sent <- sentMail{to: to, subject: subject, body: body}
	return nil
}
