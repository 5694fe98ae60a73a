// Package verification sweeps the ledger for double-entry violations.
// Every check is read-only; findings are reported through logs and
// metrics, never corrected in place, because ledger rows are immutable.
package verification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"

	"github.com/ledger-service/ledger_service/internal/domain/entities"
	"github.com/ledger-service/ledger_service/pkg/logger"
	"github.com/ledger-service/ledger_service/pkg/metrics"
)

const tracerName = "verification.sweep"

// LedgerStore is the slice of the ledger repository the sweep reads
type LedgerStore interface {
	UnbalancedTransactions(ctx context.Context) ([]uuid.UUID, error)
	CountOrphanedEntries(ctx context.Context) (int64, error)
	CountCurrencyMismatchedEntries(ctx context.Context) (int64, error)
	GlobalDebitCreditTotals(ctx context.Context) (totalDebits, totalCredits decimal.Decimal, err error)
}

// Service runs consistency checks over the whole ledger
type Service struct {
	ledger LedgerStore
	logger *logger.Logger
}

// NewService creates a new verification service
func NewService(ledger LedgerStore, logger *logger.Logger) *Service {
	return &Service{
		ledger: ledger,
		logger: logger,
	}
}

// VerifyLedger runs every consistency check and returns the combined
// report. A partial failure of one check aborts the sweep; a sweep that
// cannot complete must not report a clean ledger.
func (s *Service) VerifyLedger(ctx context.Context) (*entities.LedgerVerificationReport, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "VerifyLedger")
	defer span.End()

	report := &entities.LedgerVerificationReport{CheckedAt: time.Now().UTC()}

	unbalanced, err := s.ledger.UnbalancedTransactions(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	report.UnbalancedTransactions = unbalanced

	orphaned, err := s.ledger.CountOrphanedEntries(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	report.OrphanedEntries = orphaned

	mismatched, err := s.ledger.CountCurrencyMismatchedEntries(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	report.CurrencyMismatches = mismatched

	debits, credits, err := s.ledger.GlobalDebitCreditTotals(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	report.TotalDebits = debits
	report.TotalCredits = credits

	s.record(report)
	return report, nil
}

// record publishes the sweep outcome to logs and the failure gauge
func (s *Service) record(report *entities.LedgerVerificationReport) {
	metrics.VerificationFailuresGauge.WithLabelValues("unbalanced_transactions").
		Set(float64(len(report.UnbalancedTransactions)))
	metrics.VerificationFailuresGauge.WithLabelValues("orphaned_entries").
		Set(float64(report.OrphanedEntries))
	metrics.VerificationFailuresGauge.WithLabelValues("currency_mismatches").
		Set(float64(report.CurrencyMismatches))

	globalImbalance := 0.0
	if !report.TotalDebits.Equal(report.TotalCredits) {
		globalImbalance = 1.0
	}
	metrics.VerificationFailuresGauge.WithLabelValues("global_imbalance").Set(globalImbalance)

	if report.Clean() {
		s.logger.Info("Ledger verification passed",
			"total_debits", report.TotalDebits.String(),
			"total_credits", report.TotalCredits.String())
		return
	}

	s.logger.Error("Ledger verification found inconsistencies",
		"unbalanced_transactions", len(report.UnbalancedTransactions),
		"orphaned_entries", report.OrphanedEntries,
		"currency_mismatches", report.CurrencyMismatches,
		"total_debits", report.TotalDebits.String(),
		"total_credits", report.TotalCredits.String())

	for _, id := range report.UnbalancedTransactions {
		s.logger.Error("Unbalanced transaction", "transaction_id", id)
	}
}
