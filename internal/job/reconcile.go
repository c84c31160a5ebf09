package job

import (
	"context"
	"time"

	"netbanking/internal/service"

	"github.com/rs/zerolog"
)

// Reconciler is satisfied by *service.ReportService.
type Reconciler interface {
	Reconcile(ctx context.Context) (*service.ReconcileResponse, error)
}

// BalanceReconcileJob periodically replays the ledger and logs every account
// whose stored balance has drifted from it. It never corrects balances.
type BalanceReconcileJob struct {
	reports  Reconciler
	log      zerolog.Logger
	stopCh   chan struct{}
	interval time.Duration
}

func NewBalanceReconcileJob(reports Reconciler, interval time.Duration, log zerolog.Logger) *BalanceReconcileJob {
	return &BalanceReconcileJob{
		reports:  reports,
		log:      log.With().Str("job", "balance_reconcile").Logger(),
		stopCh:   make(chan struct{}),
		interval: interval,
	}
}

func (j *BalanceReconcileJob) Start(ctx context.Context) {
	j.log.Info().Dur("interval", j.interval).Msg("balance reconcile job started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.log.Info().Msg("balance reconcile job stopped: context done")
			return
		case <-j.stopCh:
			j.log.Info().Msg("balance reconcile job stopped")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

func (j *BalanceReconcileJob) Stop() {
	close(j.stopCh)
}

// RunOnce performs a single pass and returns the number of drifted accounts.
func (j *BalanceReconcileJob) RunOnce(ctx context.Context) int {
	report, err := j.reports.Reconcile(ctx)
	if err != nil {
		if ctx.Err() == nil {
			j.log.Error().Err(err).Msg("reconcile balances")
		}
		return 0
	}
	if report.Balanced() {
		j.log.Debug().Int("checked", report.Checked).Msg("balances reconciled")
		return 0
	}
	for _, d := range report.Drifts {
		j.log.Error().
			Int64("account_id", d.AccountID).
			Str("account_no", d.AccountNo).
			Str("balance", d.Balance.StringFixed(2)).
			Str("expected", d.Expected.StringFixed(2)).
			Str("difference", d.Difference.StringFixed(2)).
			Msg("balance drift detected")
	}
	return len(report.Drifts)
}
