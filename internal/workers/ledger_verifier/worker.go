// Package ledger_verifier schedules periodic double-entry consistency
// sweeps over the ledger.
package ledger_verifier

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ledger-service/ledger_service/internal/domain/services/verification"
)

const sweepTimeout = 5 * time.Minute

// Worker runs the ledger verification sweep on a cron schedule
type Worker struct {
	verifier *verification.Service
	schedule string
	cron     *cron.Cron
	logger   *zap.Logger
}

// NewWorker creates a new ledger verifier worker. The schedule uses the
// standard five-field cron syntax.
func NewWorker(verifier *verification.Service, schedule string, logger *zap.Logger) *Worker {
	return &Worker{
		verifier: verifier,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger,
	}
}

// Start registers the sweep and starts the scheduler. One sweep runs
// immediately so a fresh deployment reports ledger health without
// waiting for the first tick.
func (w *Worker) Start() error {
	_, err := w.cron.AddFunc(w.schedule, w.sweep)
	if err != nil {
		return err
	}

	w.cron.Start()
	w.logger.Info("Ledger verifier started", zap.String("schedule", w.schedule))

	go w.sweep()
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish
func (w *Worker) Stop() {
	ctx := w.cron.Stop()
	<-ctx.Done()
	w.logger.Info("Ledger verifier stopped")
}

func (w *Worker) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	report, err := w.verifier.VerifyLedger(ctx)
	if err != nil {
		w.logger.Error("Ledger verification sweep failed", zap.Error(err))
		return
	}

	if !report.Clean() {
		w.logger.Warn("Ledger verification sweep found inconsistencies",
			zap.Int("unbalanced_transactions", len(report.UnbalancedTransactions)),
			zap.Int64("orphaned_entries", report.OrphanedEntries),
			zap.Int64("currency_mismatches", report.CurrencyMismatches))
	}
}
