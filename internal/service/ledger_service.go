package service

import (
	"context"
	"errors"
	"time"

	"netbanking/internal/config"
	"netbanking/internal/infrastructure/lock"
	"netbanking/internal/model"
	"netbanking/internal/repository"
	"netbanking/internal/validation"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Caller is the authenticated customer a request acts for.
type Caller struct {
	CustomerID int64
	AccountID  int64
	Phone      string
}

const msgRecipientNotFound = "Recipient account not found"

// LedgerService moves money in and out of one account and between accounts.
type LedgerService struct {
	*ledgerCore
	historyLimit int
}

func NewLedgerService(db *gorm.DB, locker lock.Locker, cfg *config.Config, log zerolog.Logger) *LedgerService {
	return &LedgerService{
		ledgerCore:   newLedgerCore(db, locker, cfg, log),
		historyLimit: cfg.Business.HistoryLimit,
	}
}

type BalanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

func (s *LedgerService) Balance(ctx context.Context, caller Caller) (*BalanceResponse, error) {
	account, err := s.accounts.GetByID(ctx, caller.AccountID)
	if err != nil {
		return nil, asServiceError(err, "Failed to fetch balance")
	}
	return &BalanceResponse{Balance: account.Balance}, nil
}

type AmountRequest struct {
	Amount validation.Amount `json:"amount"`
}

type MovementResponse struct {
	NewBalance decimal.Decimal `json:"newBalance"`
	Amount     decimal.Decimal `json:"amount"`
}

// Deposit credits the caller's own account.
func (s *LedgerService) Deposit(ctx context.Context, caller Caller, req *AmountRequest) (*MovementResponse, error) {
	amount, err := validation.ValidateAmount(req.Amount, validation.TransferMinAmount, validation.TransferMaxAmount)
	if err != nil {
		return nil, asServiceError(err, "")
	}
	return s.single(ctx, caller, posting{
		Operation: model.OperationCredit,
		Amount:    amount,
		Category:  model.CategoryDeposit,
		Receiver:  model.ReceiverSelf,
		Reference: caller.Phone,
		Audit:     true,
	})
}

// Withdraw debits the caller's account as a cash payout.
func (s *LedgerService) Withdraw(ctx context.Context, caller Caller, req *AmountRequest) (*MovementResponse, error) {
	amount, err := validation.ValidateAmount(req.Amount, validation.TransferMinAmount, validation.TransferMaxAmount)
	if err != nil {
		return nil, asServiceError(err, "")
	}
	return s.single(ctx, caller, posting{
		Operation: model.OperationDebit,
		Amount:    amount,
		Category:  model.CategoryWithdrawal,
		Receiver:  model.ReceiverCash,
		Reference: caller.Phone,
		Audit:     true,
	})
}

func (s *LedgerService) single(ctx context.Context, caller Caller, p posting) (*MovementResponse, error) {
	var entry *model.LedgerEntry
	err := s.withAccounts(ctx, []int64{caller.AccountID}, func(tx *gorm.DB) error {
		account, err := s.lockActive(ctx, tx, caller.AccountID)
		if err != nil {
			return err
		}
		entry, err = s.post(ctx, tx, account, p)
		return err
	})
	if err != nil {
		s.logFailure(err, caller.AccountID, p.Category)
		return nil, asServiceError(err, "Transaction failed")
	}

	s.log.Info().
		Int64("account_id", caller.AccountID).
		Str("category", p.Category).
		Str("amount", p.Amount.String()).
		Str("transaction_no", entry.TransactionNo).
		Msg("ledger posted")

	return &MovementResponse{NewBalance: entry.BalanceAfter, Amount: p.Amount}, nil
}

type TransferRequest struct {
	RecipientAccountNo string            `json:"recipientAccountNo"`
	Amount             validation.Amount `json:"amount"`
	Phone              string            `json:"phone"`
}

type TransferResponse struct {
	NewBalance decimal.Decimal `json:"newBalance"`
	Amount     decimal.Decimal `json:"amount"`
	Recipient  string          `json:"recipient"`
}

// Transfer debits the caller and credits the recipient in one transaction.
func (s *LedgerService) Transfer(ctx context.Context, caller Caller, req *TransferRequest) (*TransferResponse, error) {
	recipientNo, err := validation.AccountNumber(req.RecipientAccountNo)
	if err != nil {
		return nil, asServiceError(err, "")
	}
	amount, err := validation.ValidateAmount(req.Amount, validation.TransferMinAmount, validation.TransferMaxAmount)
	if err != nil {
		return nil, asServiceError(err, "")
	}

	// The recipient id is needed up front to take both locks in order.
	recipient, err := s.accounts.GetByAccountNo(ctx, nil, recipientNo)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, newErr(KindNotFound, msgRecipientNotFound)
		}
		return nil, internalErr("Transaction failed", err)
	}
	if recipient.ID == caller.AccountID {
		return nil, newErr(KindBusiness, "Cannot transfer to yourself")
	}

	senderRef := caller.Phone
	if req.Phone != "" {
		senderRef = req.Phone
	}

	var debit *model.LedgerEntry
	err = s.withAccounts(ctx, []int64{caller.AccountID, recipient.ID}, func(tx *gorm.DB) error {
		sender, err := s.lockActive(ctx, tx, caller.AccountID)
		if err != nil {
			return err
		}
		if sender.Balance.LessThan(amount) {
			return newErr(KindBusiness, msgInsufficient)
		}

		to, err := s.accounts.GetByIDForUpdate(ctx, tx, recipient.ID)
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				return newErr(KindNotFound, msgRecipientNotFound)
			}
			return err
		}
		if !to.IsActive() {
			return newErr(KindNotFound, msgRecipientNotFound)
		}

		debit, err = s.post(ctx, tx, sender, posting{
			Operation: model.OperationDebit,
			Amount:    amount,
			Category:  model.CategoryTransfer,
			Receiver:  to.AccountNo,
			Reference: senderRef,
			Audit:     true,
		})
		if err != nil {
			return err
		}
		_, err = s.post(ctx, tx, to, posting{
			Operation: model.OperationCredit,
			Amount:    amount,
			Category:  model.CategoryTransfer,
			Receiver:  sender.AccountNo,
			Reference: req.Phone,
			Audit:     true,
		})
		return err
	})
	if err != nil {
		s.logFailure(err, caller.AccountID, model.CategoryTransfer)
		return nil, asServiceError(err, "Transaction failed")
	}

	s.log.Info().
		Int64("account_id", caller.AccountID).
		Int64("recipient_id", recipient.ID).
		Str("amount", amount.String()).
		Msg("transfer completed")

	return &TransferResponse{
		NewBalance: debit.BalanceAfter,
		Amount:     amount,
		Recipient:  recipient.AccountNo,
	}, nil
}

type HistoryItem struct {
	ID        int64           `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"date"`
	Status    string          `json:"status"`
	BillType  string          `json:"billType"`
	Receiver  string          `json:"receiver"`
	Operation string          `json:"operation"`
}

type HistoryResponse struct {
	Transactions []HistoryItem `json:"transactions"`
}

// History lists the newest ledger entries of the caller, newest first.
func (s *LedgerService) History(ctx context.Context, caller Caller) (*HistoryResponse, error) {
	entries, err := s.ledger.ListByAccount(ctx, caller.AccountID, s.historyLimit)
	if err != nil {
		return nil, internalErr("Failed to fetch transactions", err)
	}

	items := make([]HistoryItem, 0, len(entries))
	for _, e := range entries {
		receiver := e.Receiver
		if receiver == "" {
			receiver = model.ReceiverSelf
		}
		items = append(items, HistoryItem{
			ID:        e.ID,
			Amount:    e.Amount,
			Date:      e.CreatedAt,
			Status:    e.Status,
			BillType:  e.Category,
			Receiver:  receiver,
			Operation: e.Operation,
		})
	}
	return &HistoryResponse{Transactions: items}, nil
}

// logFailure records unexpected failures. Business rejections are the
// client's concern and are not logged as errors.
func (c *ledgerCore) logFailure(err error, accountID int64, category string) {
	switch KindOf(asServiceError(err, "")) {
	case KindInternal:
		c.log.Error().Err(err).Int64("account_id", accountID).Str("category", category).Msg("ledger operation failed")
	case KindConflict:
		c.log.Warn().Err(err).Int64("account_id", accountID).Str("category", category).Msg("ledger operation contended")
	}
}
