package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"netbanking/internal/config"
	"netbanking/internal/infrastructure/lock"
	"netbanking/internal/model"
	"netbanking/internal/repository"
	"netbanking/pkg/idgen"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ============================================================================
// Shared money-movement machinery
// ============================================================================
//
// Every balance change goes through the same three guards:
//   1. the Locker holds every touched account (sorted, so transfers in
//      opposite directions cannot deadlock);
//   2. inside the transaction the account row is re-read FOR UPDATE;
//   3. the balance write is a compare-and-swap on account.version.
// ============================================================================

type ledgerCore struct {
	db       *gorm.DB
	locker   lock.Locker
	cfg      *config.Config
	log      zerolog.Logger
	accounts *repository.AccountRepository
	ledger   *repository.LedgerRepository
	outbox   *repository.OutboxRepository
	now      func() time.Time
}

func newLedgerCore(db *gorm.DB, locker lock.Locker, cfg *config.Config, log zerolog.Logger) *ledgerCore {
	return &ledgerCore{
		db:       db,
		locker:   locker,
		cfg:      cfg,
		log:      log,
		accounts: repository.NewAccountRepository(db),
		ledger:   repository.NewLedgerRepository(db),
		outbox:   repository.NewOutboxRepository(db),
		now:      time.Now,
	}
}

// withAccounts runs fn in one transaction while holding the locks of every
// account in ids. Errors from fn roll the transaction back.
func (c *ledgerCore) withAccounts(ctx context.Context, ids []int64, fn func(tx *gorm.DB) error) error {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	keys := make([]string, 0, len(sorted))
	for _, id := range sorted {
		keys = append(keys, lock.AccountKey(id))
	}

	release, err := c.locker.Acquire(ctx, keys...)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return internalErr("Request cancelled", err)
		}
		return &Error{Kind: KindConflict, Message: "System busy, please retry", Err: err}
	}
	defer release()

	return c.db.WithContext(ctx).Transaction(fn)
}

// lockActive re-reads the account inside tx and requires it to be Active.
func (c *ledgerCore) lockActive(ctx context.Context, tx *gorm.DB, accountID int64) (*model.Account, error) {
	account, err := c.accounts.GetByIDForUpdate(ctx, tx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, newErr(KindNotFound, msgAccountNotFound)
		}
		return nil, err
	}
	if !account.IsActive() {
		return nil, newErr(KindForbidden, "%s (status: %s)", msgAccountInactive, account.Status)
	}
	return account, nil
}

// posting describes one ledger line.
type posting struct {
	Operation string
	Amount    decimal.Decimal
	Category  string
	Receiver  string
	Reference string
	// Audit also writes a row to records.
	Audit bool
}

// post applies p to account (already locked in tx): moves the balance,
// appends the ledger entry, the optional audit row and the outbox message.
func (c *ledgerCore) post(ctx context.Context, tx *gorm.DB, account *model.Account, p posting) (*model.LedgerEntry, error) {
	newBalance := account.Balance
	switch p.Operation {
	case model.OperationCredit:
		newBalance = newBalance.Add(p.Amount)
	case model.OperationDebit:
		if account.Balance.LessThan(p.Amount) {
			return nil, newErr(KindBusiness, msgInsufficient)
		}
		newBalance = newBalance.Sub(p.Amount)
	default:
		return nil, fmt.Errorf("unknown operation %q", p.Operation)
	}

	if err := c.accounts.UpdateBalance(ctx, tx, account, newBalance); err != nil {
		return nil, err
	}

	entry := &model.LedgerEntry{
		TransactionNo: idgen.GenerateTransactionNo(),
		AccountID:     account.ID,
		Amount:        p.Amount,
		BalanceAfter:  newBalance,
		Status:        model.EntryStatusCompleted,
		Category:      p.Category,
		Receiver:      p.Receiver,
		Operation:     p.Operation,
		Reference:     p.Reference,
		CreatedAt:     c.now(),
	}
	if err := c.ledger.Create(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("insert ledger entry: %w", err)
	}

	if p.Audit {
		rec := &model.AuditRecord{
			AccountID: account.ID,
			Amount:    p.Amount,
			Status:    model.EntryStatusCompleted,
		}
		if err := c.ledger.CreateAudit(ctx, tx, rec); err != nil {
			return nil, fmt.Errorf("insert audit record: %w", err)
		}
	}

	if err := c.enqueue(ctx, tx, model.EventLedgerPosted, entry.TransactionNo, ledgerEvent{
		TransactionNo: entry.TransactionNo,
		AccountID:     account.ID,
		AccountNo:     account.AccountNo,
		Category:      entry.Category,
		Operation:     entry.Operation,
		Amount:        entry.Amount.StringFixed(2),
		BalanceAfter:  entry.BalanceAfter.StringFixed(2),
		Receiver:      entry.Receiver,
		CreatedAt:     entry.CreatedAt.UTC().Format(time.RFC3339),
	}); err != nil {
		return nil, err
	}

	return entry, nil
}

type ledgerEvent struct {
	TransactionNo string `json:"transaction_no"`
	AccountID     int64  `json:"account_id"`
	AccountNo     string `json:"account_no"`
	Category      string `json:"category"`
	Operation     string `json:"operation"`
	Amount        string `json:"amount"`
	BalanceAfter  string `json:"balance_after"`
	Receiver      string `json:"receiver"`
	CreatedAt     string `json:"created_at"`
}

// enqueue writes an outbox message in tx. It is a no-op when Kafka is off.
func (c *ledgerCore) enqueue(ctx context.Context, tx *gorm.DB, eventType, key string, payload interface{}) error {
	if !c.cfg.Kafka.Enabled {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}
	msg := &model.OutboxMessage{
		MessageKey: key,
		EventType:  eventType,
		Topic:      c.cfg.Kafka.Topic.Ledger,
		Payload:    string(body),
		Status:     model.OutboxStatusPending,
	}
	if err := c.outbox.Create(ctx, tx, msg); err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}
	return nil
}
