package service

import (
	"context"
	"testing"

	"netbanking/internal/infrastructure/lock"
	"netbanking/internal/model"

	"github.com/rs/zerolog"
)

func TestFreezeUnfreezeApprove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice")
	no := model.FormatAccountNo(alice.CustomerID)

	resp, err := f.admin.SetFrozen(ctx, no, true)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Status != model.AccountStatusFrozen {
		t.Errorf("status = %s", resp.Status)
	}
	// freezing twice is fine
	if _, err := f.admin.SetFrozen(ctx, no, true); err != nil {
		t.Errorf("second freeze: %v", err)
	}

	resp, err = f.admin.SetFrozen(ctx, no, false)
	if err != nil || resp.Status != model.AccountStatusActive {
		t.Errorf("unfreeze = %+v, %v", resp, err)
	}

	f.db.Model(&model.Account{}).Where("id = ?", alice.AccountID).Update("status", model.AccountStatusPending)
	resp, err = f.admin.Approve(ctx, no)
	if err != nil || resp.Status != model.AccountStatusActive {
		t.Errorf("approve = %+v, %v", resp, err)
	}

	_, err = f.admin.SetFrozen(ctx, "ACC9999", true)
	assertKind(t, err, KindNotFound, "Account not found")
	_, err = f.admin.Approve(ctx, "ACC9999")
	assertKind(t, err, KindNotFound, "Account not found")
}

func TestDeleteAccountCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice")
	bob := f.register(t, "Bob")
	no := model.FormatAccountNo(alice.CustomerID)

	if _, err := f.ledger.Transfer(ctx, alice, &TransferRequest{RecipientAccountNo: model.FormatAccountNo(bob.CustomerID), Amount: "100"}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.loans.TakeLoan(ctx, alice, &TakeLoanRequest{LoanType: "Home", Amount: "500", Duration: 12}); err != nil {
		t.Fatal(err)
	}
	<-f.mailer.sent

	if _, err := f.admin.DeleteAccount(ctx, no); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}

	counts := map[string]interface{}{
		"account":   &model.Account{},
		"customer":  &model.Customer{},
		"loan":      &model.Loan{},
		"takes":     &model.LoanHolding{},
		"repayment": &model.Repayment{},
	}
	for name, m := range counts {
		var n int64
		f.db.Model(m).Count(&n)
		// bob's account and customer remain
		want := int64(0)
		if name == "account" || name == "customer" {
			want = 1
		}
		if n != want {
			t.Errorf("%s rows = %d, want %d", name, n, want)
		}
	}
	if f.countEntries(t, alice.AccountID) != 0 || f.countAudit(t, alice.AccountID) != 0 {
		t.Error("ledger rows of deleted account remain")
	}
	if f.countEntries(t, bob.AccountID) != 1 {
		t.Error("recipient ledger must survive")
	}

	_, err := f.admin.DeleteAccount(ctx, no)
	assertKind(t, err, KindNotFound, "Account not found")
}

func TestAdminEventsGoToOutbox(t *testing.T) {
	f := newFixture(t)
	f.cfg.Kafka.Enabled = true
	ctx := context.Background()
	alice := f.register(t, "Alice")
	no := model.FormatAccountNo(alice.CustomerID)

	if _, err := f.ledger.Deposit(ctx, alice, &AmountRequest{Amount: "5"}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.admin.SetFrozen(ctx, no, true); err != nil {
		t.Fatal(err)
	}
	if _, err := f.admin.DeleteAccount(ctx, no); err != nil {
		t.Fatal(err)
	}

	var msgs []model.OutboxMessage
	if err := f.db.Order("id").Find(&msgs).Error; err != nil {
		t.Fatal(err)
	}
	want := []string{model.EventLedgerPosted, model.EventAccountStatus, model.EventAccountPurged}
	if len(msgs) != len(want) {
		t.Fatalf("outbox messages = %d, want %d", len(msgs), len(want))
	}
	for i, m := range msgs {
		if m.EventType != want[i] || m.Topic != f.cfg.Kafka.Topic.Ledger || m.Status != model.OutboxStatusPending {
			t.Errorf("message %d = %+v", i, m)
		}
	}
}

// hookLocker runs before once, after the caller has read the account but
// before it holds the lock, to stand in for a writer that got there first.
type hookLocker struct {
	lock.Locker
	before func()
}

func (l *hookLocker) Acquire(ctx context.Context, keys ...string) (func(), error) {
	if l.before != nil {
		l.before()
		l.before = nil
	}
	return l.Locker.Acquire(ctx, keys...)
}

func TestSetStatusJudgesLockedRow(t *testing.T) {
	f := newFixture(t)
	f.cfg.Kafka.Enabled = true
	ctx := context.Background()
	alice := f.register(t, "Alice")
	no := model.FormatAccountNo(alice.CustomerID)

	hooked := &hookLocker{Locker: f.locker, before: func() {
		f.db.Model(&model.Account{}).Where("id = ?", alice.AccountID).Update("status", model.AccountStatusFrozen)
	}}
	admin := NewAdminService(f.db, hooked, f.cfg, zerolog.Nop())

	resp, err := admin.SetFrozen(ctx, no, true)
	if err != nil || resp.Status != model.AccountStatusFrozen {
		t.Fatalf("freeze = %+v, %v", resp, err)
	}

	var events int64
	f.db.Model(&model.OutboxMessage{}).Where("event_type = ?", model.EventAccountStatus).Count(&events)
	if events != 0 {
		t.Errorf("status events = %d, want 0 for an already frozen account", events)
	}
}

func TestDeleteAccountRemovedWhileWaiting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice")
	no := model.FormatAccountNo(alice.CustomerID)

	hooked := &hookLocker{Locker: f.locker, before: func() {
		f.db.Where("id = ?", alice.AccountID).Delete(&model.Account{})
	}}
	admin := NewAdminService(f.db, hooked, f.cfg, zerolog.Nop())

	_, err := admin.DeleteAccount(ctx, no)
	assertKind(t, err, KindNotFound, "Account not found")

	var customers int64
	f.db.Model(&model.Customer{}).Count(&customers)
	if customers != 1 {
		t.Errorf("customers = %d, want the customer untouched", customers)
	}
}
