package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"netbanking/internal/infrastructure/mq"
	"netbanking/internal/model"
	"netbanking/internal/service"
	"netbanking/internal/testutil"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func seedOutbox(t *testing.T, db *gorm.DB, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		msg := &model.OutboxMessage{
			MessageKey: "TXN" + string(rune('A'+i)),
			EventType:  model.EventLedgerPosted,
			Topic:      "bank.ledger",
			Payload:    `{"amount":"100"}`,
			Status:     model.OutboxStatusPending,
		}
		if err := db.Create(msg).Error; err != nil {
			t.Fatalf("seed outbox: %v", err)
		}
	}
}

func statuses(t *testing.T, db *gorm.DB) []model.OutboxMessage {
	t.Helper()
	var rows []model.OutboxMessage
	if err := db.Order("id").Find(&rows).Error; err != nil {
		t.Fatal(err)
	}
	return rows
}

func TestOutboxSenderPublishesPending(t *testing.T) {
	db := testutil.NewDB(t)
	cfg := testutil.Config(t)
	seedOutbox(t, db, 2)

	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndSucceed()
	producer.ExpectSendMessageAndSucceed()
	pub := mq.NewKafkaPublisher(producer)
	defer pub.Close()

	s := NewOutboxSender(db, pub, cfg, zerolog.Nop())
	s.processPending(context.Background())

	for _, m := range statuses(t, db) {
		if m.Status != model.OutboxStatusSent {
			t.Errorf("message %d status = %s, want SENT", m.ID, m.Status)
		}
	}
}

func TestOutboxSenderRetriesThenFails(t *testing.T) {
	db := testutil.NewDB(t)
	cfg := testutil.Config(t)
	cfg.Business.MaxRetryCount = 2
	seedOutbox(t, db, 1)

	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	pub := mq.NewKafkaPublisher(producer)
	defer pub.Close()

	s := NewOutboxSender(db, pub, cfg, zerolog.Nop())

	s.processPending(context.Background())
	rows := statuses(t, db)
	if rows[0].Status != model.OutboxStatusPending || rows[0].RetryCount != 1 {
		t.Fatalf("after first failure: %+v", rows[0])
	}

	s.processPending(context.Background())
	rows = statuses(t, db)
	if rows[0].Status != model.OutboxStatusFailed || rows[0].RetryCount != 2 {
		t.Fatalf("after second failure: %+v", rows[0])
	}

	// failed rows are not picked up again
	s.processPending(context.Background())
}

type countingPublisher struct {
	mu    sync.Mutex
	count int
}

func (p *countingPublisher) Publish(ctx context.Context, topic, key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count++
	return nil
}

func (p *countingPublisher) Close() error { return nil }

func (p *countingPublisher) sent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

func TestOutboxSenderLoopStopsOnCancel(t *testing.T) {
	db := testutil.NewDB(t)
	cfg := testutil.Config(t)
	seedOutbox(t, db, 3)

	pub := &countingPublisher{}
	s := NewOutboxSender(db, pub, cfg, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	deadline := time.After(5 * time.Second)
	for pub.sent() < 3 {
		select {
		case <-deadline:
			t.Fatalf("published %d of 3", pub.sent())
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("sender did not stop")
	}
}

type fakeReconciler struct {
	resp *service.ReconcileResponse
	err  error
}

func (f *fakeReconciler) Reconcile(ctx context.Context) (*service.ReconcileResponse, error) {
	return f.resp, f.err
}

func TestBalanceReconcileRunOnce(t *testing.T) {
	drifted := &fakeReconciler{resp: &service.ReconcileResponse{
		Checked: 2,
		Drifts: []service.Drift{{
			AccountID:  1,
			AccountNo:  "ACC0001",
			Balance:    decimal.NewFromInt(1000),
			Expected:   decimal.NewFromInt(900),
			Difference: decimal.NewFromInt(100),
		}},
	}}
	if n := NewBalanceReconcileJob(drifted, time.Minute, zerolog.Nop()).RunOnce(context.Background()); n != 1 {
		t.Errorf("drifts = %d, want 1", n)
	}

	failing := &fakeReconciler{err: errors.New("db down")}
	if n := NewBalanceReconcileJob(failing, time.Minute, zerolog.Nop()).RunOnce(context.Background()); n != 0 {
		t.Errorf("drifts on error = %d, want 0", n)
	}
}

func TestBalanceReconcileAgainstLedger(t *testing.T) {
	db := testutil.NewDB(t)
	cfg := testutil.Config(t)
	reports := service.NewReportService(db, cfg, zerolog.Nop())

	j := NewBalanceReconcileJob(reports, time.Minute, zerolog.Nop())
	if n := j.RunOnce(context.Background()); n != 0 {
		t.Errorf("empty ledger drifts = %d", n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	j.Start(ctx) // returns immediately
}
