package service

import (
	"context"
	"errors"
	"strings"

	"netbanking/internal/config"
	"netbanking/internal/infrastructure/lock"
	"netbanking/internal/model"
	"netbanking/internal/repository"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// AdminService changes account lifecycle state. Every change takes the
// account lock so it cannot interleave with a money movement.
type AdminService struct {
	*ledgerCore
	customers *repository.CustomerRepository
	loans     *repository.LoanRepository
}

func NewAdminService(db *gorm.DB, locker lock.Locker, cfg *config.Config, log zerolog.Logger) *AdminService {
	return &AdminService{
		ledgerCore: newLedgerCore(db, locker, cfg, log),
		customers:  repository.NewCustomerRepository(db),
		loans:      repository.NewLoanRepository(db),
	}
}

type AccountStatusResponse struct {
	AccountNo string `json:"accountNo"`
	Status    string `json:"status,omitempty"`
}

type accountEvent struct {
	AccountID int64  `json:"account_id"`
	AccountNo string `json:"account_no"`
	Status    string `json:"status,omitempty"`
}

// SetFrozen freezes or unfreezes the account. Unfreezing makes it Active.
func (s *AdminService) SetFrozen(ctx context.Context, accountNo string, freeze bool) (*AccountStatusResponse, error) {
	status := model.AccountStatusActive
	if freeze {
		status = model.AccountStatusFrozen
	}
	return s.setStatus(ctx, accountNo, status)
}

// Approve activates a Pending (or any other) account.
func (s *AdminService) Approve(ctx context.Context, accountNo string) (*AccountStatusResponse, error) {
	return s.setStatus(ctx, accountNo, model.AccountStatusActive)
}

func (s *AdminService) setStatus(ctx context.Context, accountNo, status string) (*AccountStatusResponse, error) {
	account, err := s.lookup(ctx, accountNo)
	if err != nil {
		return nil, err
	}

	err = s.withAccounts(ctx, []int64{account.ID}, func(tx *gorm.DB) error {
		// the lookup ran before the lock; judge the status on the locked row
		current, err := s.accounts.GetByIDForUpdate(ctx, tx, account.ID)
		if err != nil {
			return err
		}
		if current.Status == status {
			return nil
		}
		if err := s.accounts.UpdateStatus(ctx, tx, account.AccountNo, status); err != nil {
			return err
		}
		return s.enqueue(ctx, tx, model.EventAccountStatus, account.AccountNo, accountEvent{
			AccountID: account.ID,
			AccountNo: account.AccountNo,
			Status:    status,
		})
	})
	if err != nil {
		s.log.Error().Err(err).Str("account_no", account.AccountNo).Msg("update account status failed")
		return nil, asServiceError(err, "Failed to update account status")
	}

	s.log.Info().Str("account_no", account.AccountNo).Str("status", status).Msg("account status changed")
	return &AccountStatusResponse{AccountNo: account.AccountNo, Status: status}, nil
}

// DeleteAccount purges the account with its customer, loans and ledger in
// one transaction.
func (s *AdminService) DeleteAccount(ctx context.Context, accountNo string) (*AccountStatusResponse, error) {
	account, err := s.lookup(ctx, accountNo)
	if err != nil {
		return nil, err
	}

	err = s.withAccounts(ctx, []int64{account.ID}, func(tx *gorm.DB) error {
		if _, err := s.accounts.GetByIDForUpdate(ctx, tx, account.ID); err != nil {
			return err
		}
		if err := s.loans.DeleteByAccount(ctx, tx, account.ID); err != nil {
			return err
		}
		if err := s.ledger.DeleteByAccount(ctx, tx, account.ID); err != nil {
			return err
		}
		if err := s.accounts.Delete(ctx, tx, account.ID); err != nil {
			return err
		}
		if err := s.customers.Delete(ctx, tx, account.CustomerID); err != nil {
			return err
		}
		return s.enqueue(ctx, tx, model.EventAccountPurged, account.AccountNo, accountEvent{
			AccountID: account.ID,
			AccountNo: account.AccountNo,
		})
	})
	if err != nil {
		s.log.Error().Err(err).Str("account_no", account.AccountNo).Msg("delete account failed")
		return nil, asServiceError(err, "Failed to delete account")
	}

	s.log.Warn().
		Str("account_no", account.AccountNo).
		Int64("customer_id", account.CustomerID).
		Msg("account deleted permanently")
	return &AccountStatusResponse{AccountNo: account.AccountNo}, nil
}

func (s *AdminService) lookup(ctx context.Context, accountNo string) (*model.Account, error) {
	accountNo = strings.TrimSpace(accountNo)
	if accountNo == "" {
		return nil, newErr(KindValidation, "Account number is required")
	}
	account, err := s.accounts.GetByAccountNo(ctx, nil, accountNo)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, newErr(KindNotFound, msgAccountNotFound)
		}
		return nil, internalErr("Failed to load account", err)
	}
	return account, nil
}
