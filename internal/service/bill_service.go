package service

import (
	"context"
	"strings"
	"time"

	"netbanking/internal/config"
	"netbanking/internal/infrastructure/lock"
	"netbanking/internal/model"
	"netbanking/internal/validation"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type BillService struct {
	*ledgerCore
	historyLimit int
}

func NewBillService(db *gorm.DB, locker lock.Locker, cfg *config.Config, log zerolog.Logger) *BillService {
	return &BillService{
		ledgerCore:   newLedgerCore(db, locker, cfg, log),
		historyLimit: cfg.Business.HistoryLimit,
	}
}

type PayBillRequest struct {
	BillType        string            `json:"billType"`
	Amount          validation.Amount `json:"amount"`
	ReferenceNumber string            `json:"referenceNumber"`
}

type PayBillResponse struct {
	BillType        string          `json:"billType"`
	Amount          decimal.Decimal `json:"amount"`
	NewBalance      decimal.Decimal `json:"newBalance"`
	Receiver        string          `json:"receiver"`
	ReferenceNumber string          `json:"referenceNumber"`
}

// PayBill debits the caller in favour of the receiver mapped to the bill type.
func (s *BillService) PayBill(ctx context.Context, caller Caller, req *PayBillRequest) (*PayBillResponse, error) {
	if strings.TrimSpace(req.BillType) == "" || strings.TrimSpace(string(req.Amount)) == "" {
		return nil, newErr(KindValidation, "Bill type and amount are required")
	}
	bill, err := validation.ParseBillType(req.BillType)
	if err != nil {
		return nil, asServiceError(err, "")
	}
	amount, err := validation.PositiveAmount(req.Amount, validation.DefaultMaxAmount, "Invalid amount")
	if err != nil {
		return nil, asServiceError(err, "")
	}

	ref := strings.TrimSpace(req.ReferenceNumber)
	ledgerRef := ref
	if ledgerRef == "" {
		ledgerRef = caller.Phone
	}

	var entry *model.LedgerEntry
	err = s.withAccounts(ctx, []int64{caller.AccountID}, func(tx *gorm.DB) error {
		account, err := s.lockActive(ctx, tx, caller.AccountID)
		if err != nil {
			return err
		}
		entry, err = s.post(ctx, tx, account, posting{
			Operation: model.OperationDebit,
			Amount:    amount,
			Category:  bill.Name,
			Receiver:  bill.Receiver,
			Reference: ledgerRef,
			Audit:     true,
		})
		return err
	})
	if err != nil {
		s.logFailure(err, caller.AccountID, bill.Name)
		return nil, asServiceError(err, "Bill payment failed")
	}

	s.log.Info().
		Int64("account_id", caller.AccountID).
		Str("bill_type", bill.Name).
		Str("amount", amount.String()).
		Msg("bill paid")

	if ref == "" {
		ref = "N/A"
	}
	return &PayBillResponse{
		BillType:        bill.Name,
		Amount:          amount,
		NewBalance:      entry.BalanceAfter,
		Receiver:        bill.Receiver,
		ReferenceNumber: ref,
	}, nil
}

type BillItem struct {
	ID              int64           `json:"id"`
	BillType        string          `json:"billType"`
	Amount          decimal.Decimal `json:"amount"`
	Receiver        string          `json:"receiver"`
	ReferenceNumber string          `json:"referenceNumber"`
	Status          string          `json:"status"`
	Date            time.Time       `json:"date"`
}

// History lists bill payments only, newest first.
func (s *BillService) History(ctx context.Context, caller Caller) ([]BillItem, error) {
	entries, err := s.ledger.ListBillsByAccount(ctx, caller.AccountID, s.historyLimit)
	if err != nil {
		return nil, internalErr("Failed to fetch bill history", err)
	}
	items := make([]BillItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, BillItem{
			ID:              e.ID,
			BillType:        e.Category,
			Amount:          e.Amount,
			Receiver:        e.Receiver,
			ReferenceNumber: e.Reference,
			Status:          e.Status,
			Date:            e.CreatedAt,
		})
	}
	return items, nil
}
