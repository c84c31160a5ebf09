package job

import (
	"context"
	"time"

	"netbanking/internal/config"
	"netbanking/internal/infrastructure/mq"
	"netbanking/internal/model"
	"netbanking/internal/repository"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// OutboxSender publishes pending outbox rows to Kafka. A row is marked SENT
// once the broker acknowledges it and FAILED after MaxRetryCount attempts.
type OutboxSender struct {
	outboxRepo *repository.OutboxRepository
	publisher  mq.Publisher
	log        zerolog.Logger
	stopCh     chan struct{}
	interval   time.Duration
	batchSize  int
	maxRetries int
}

func NewOutboxSender(db *gorm.DB, publisher mq.Publisher, cfg *config.Config, log zerolog.Logger) *OutboxSender {
	return &OutboxSender{
		outboxRepo: repository.NewOutboxRepository(db),
		publisher:  publisher,
		log:        log.With().Str("job", "outbox_sender").Logger(),
		stopCh:     make(chan struct{}),
		interval:   cfg.Business.OutboxInterval,
		batchSize:  100,
		maxRetries: cfg.Business.MaxRetryCount,
	}
}

// Start blocks until ctx is cancelled or Stop is called.
func (s *OutboxSender) Start(ctx context.Context) {
	s.log.Info().Dur("interval", s.interval).Msg("outbox sender started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("outbox sender stopped: context done")
			return
		case <-s.stopCh:
			s.log.Info().Msg("outbox sender stopped")
			return
		case <-ticker.C:
			s.processPending(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

func (s *OutboxSender) processPending(ctx context.Context) {
	messages, err := s.outboxRepo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Error().Err(err).Msg("query pending outbox messages")
		}
		return
	}

	for _, msg := range messages {
		if ctx.Err() != nil {
			return
		}
		s.send(ctx, msg)
	}
}

func (s *OutboxSender) send(ctx context.Context, msg *model.OutboxMessage) {
	err := s.publisher.Publish(ctx, msg.Topic, msg.MessageKey, msg.Payload)
	if err == nil {
		if err := s.outboxRepo.MarkAsSent(ctx, msg.ID); err != nil {
			s.log.Error().Err(err).Int64("id", msg.ID).Msg("mark outbox message sent")
			return
		}
		s.log.Debug().
			Int64("id", msg.ID).
			Str("topic", msg.Topic).
			Str("key", msg.MessageKey).
			Str("event", msg.EventType).
			Msg("outbox message published")
		return
	}

	s.log.Warn().Err(err).Int64("id", msg.ID).Int("retry", msg.RetryCount).Msg("publish outbox message")

	if msg.RetryCount+1 >= s.maxRetries {
		if err := s.outboxRepo.MarkAsFailed(ctx, msg.ID); err != nil {
			s.log.Error().Err(err).Int64("id", msg.ID).Msg("mark outbox message failed")
			return
		}
		s.log.Error().Int64("id", msg.ID).Msg("outbox message exceeded max retries")
		return
	}
	if err := s.outboxRepo.IncrementRetryCount(ctx, msg.ID); err != nil {
		s.log.Error().Err(err).Int64("id", msg.ID).Msg("increment outbox retry count")
	}
}
