// Package balance derives account balances from ledger entries. The
// ledger is the only source of truth for value; no balance is ever
// stored, so every query here reduces to sums over entries.
package balance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledger-service/ledger_service/internal/domain/entities"
	"github.com/ledger-service/ledger_service/pkg/logger"
)

// LedgerStore is the slice of the ledger repository the deriver needs
type LedgerStore interface {
	SumByAccountAndKind(ctx context.Context, accountID uuid.UUID) (totalDebits, totalCredits decimal.Decimal, err error)
	SumByAccountAndKindBefore(ctx context.Context, accountID uuid.UUID, before time.Time) (totalDebits, totalCredits decimal.Decimal, err error)
	SumByAccountAndKindThrough(ctx context.Context, accountID uuid.UUID, asOf time.Time) (totalDebits, totalCredits decimal.Decimal, err error)
	EntriesForAccountBetween(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]*entities.LedgerEntry, error)
}

// Service computes derived balances. All operations are read-only; when
// the caller holds an open database transaction in ctx the reads join
// it and see its snapshot.
type Service struct {
	ledger LedgerStore
	logger *logger.Logger
}

// NewService creates a new balance deriver
func NewService(ledger LedgerStore, logger *logger.Logger) *Service {
	return &Service{
		ledger: ledger,
		logger: logger,
	}
}

// Balance returns the current derived balance of an account: the sum of
// its credits minus the sum of its debits.
func (s *Service) Balance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	debits, credits, err := s.ledger.SumByAccountAndKind(ctx, accountID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("derive balance: %w", err)
	}
	return credits.Sub(debits), nil
}

// BalanceAsOf returns the derived balance over entries stamped at or
// before the cutoff.
func (s *Service) BalanceAsOf(ctx context.Context, accountID uuid.UUID, asOf time.Time) (decimal.Decimal, error) {
	debits, credits, err := s.ledger.SumByAccountAndKindThrough(ctx, accountID, asOf)
	if err != nil {
		return decimal.Zero, fmt.Errorf("derive balance as of %s: %w", asOf, err)
	}
	return credits.Sub(debits), nil
}

// BalanceBefore returns the derived balance over entries strictly
// before the cutoff. Statements use it for the opening balance.
func (s *Service) BalanceBefore(ctx context.Context, accountID uuid.UUID, before time.Time) (decimal.Decimal, error) {
	debits, credits, err := s.ledger.SumByAccountAndKindBefore(ctx, accountID, before)
	if err != nil {
		return decimal.Zero, fmt.Errorf("derive balance before %s: %w", before, err)
	}
	return credits.Sub(debits), nil
}

// Statement summarises an account's activity over the closed interval
// [from, to]. The opening balance covers entries strictly before the
// window; the closing balance is opening plus the signed sum inside it.
// Currency is left for the caller, which holds the account row.
func (s *Service) Statement(ctx context.Context, accountID uuid.UUID, from, to time.Time) (*entities.AccountStatement, error) {
	opening, err := s.BalanceBefore(ctx, accountID, from)
	if err != nil {
		return nil, err
	}

	entries, err := s.ledger.EntriesForAccountBetween(ctx, accountID, from, to)
	if err != nil {
		return nil, fmt.Errorf("statement entries: %w", err)
	}

	statement := &entities.AccountStatement{
		AccountID:      accountID,
		StartDate:      from,
		EndDate:        to,
		OpeningBalance: opening,
		TotalDebits:    decimal.Zero,
		TotalCredits:   decimal.Zero,
		Lines:          make([]entities.StatementLine, 0, len(entries)),
	}

	seen := make(map[uuid.UUID]struct{}, len(entries))
	for _, entry := range entries {
		if entry.EntryType == entities.EntryTypeCredit {
			statement.TotalCredits = statement.TotalCredits.Add(entry.Amount)
		} else {
			statement.TotalDebits = statement.TotalDebits.Add(entry.Amount)
		}
		if _, ok := seen[entry.TransactionID]; !ok {
			seen[entry.TransactionID] = struct{}{}
			statement.TransactionCount++
		}
		statement.Lines = append(statement.Lines, entities.StatementLine{
			TransactionID: entry.TransactionID,
			Timestamp:     entry.CreatedAt,
			Description:   entry.Description,
			Amount:        entry.Amount,
			IsCredit:      entry.EntryType == entities.EntryTypeCredit,
		})
	}

	statement.ClosingBalance = opening.Add(statement.TotalCredits).Sub(statement.TotalDebits)
	return statement, nil
}

// RunningBalances folds entries into per-entry running balances,
// starting from the given opening balance. Entries must already be
// ordered by (created_at, id) ascending, the order every ledger query
// uses, so ties between equal timestamps resolve the same way on every
// read.
func RunningBalances(opening decimal.Decimal, entries []*entities.LedgerEntry) []entities.LedgerLine {
	lines := make([]entities.LedgerLine, 0, len(entries))
	running := opening
	for _, entry := range entries {
		running = running.Add(entry.SignedAmount())
		lines = append(lines, entities.LedgerLine{
			Entry:          *entry,
			RunningBalance: running,
		})
	}
	return lines
}
