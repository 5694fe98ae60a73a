// Package reporting serves read-only views over the ledger: transaction
// histories, paginated account ledgers with running balances, and
// period statements.
package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ledger-service/ledger_service/internal/domain/entities"
	apperrors "github.com/ledger-service/ledger_service/internal/domain/errors"
	"github.com/ledger-service/ledger_service/internal/domain/services/balance"
	"github.com/ledger-service/ledger_service/pkg/logger"
)

var tracer = otel.Tracer("reporting-service")

// AccountStore resolves accounts for report headers
type AccountStore interface {
	GetAccountByID(ctx context.Context, accountID uuid.UUID) (*entities.Account, error)
}

// LedgerStore is the slice of the ledger repository reporting reads from
type LedgerStore interface {
	GetTransactionByID(ctx context.Context, transactionID uuid.UUID) (*entities.Transaction, error)
	FindTransactionByReferenceCI(ctx context.Context, reference string) (*entities.Transaction, error)
	TransactionsForAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*entities.Transaction, error)
	EntriesForTransaction(ctx context.Context, transactionID uuid.UUID) ([]*entities.LedgerEntry, error)
	EntriesForAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*entities.LedgerEntry, error)
	EntriesForAccountAsc(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*entities.LedgerEntry, error)
	CountEntriesForAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
	SignedSumFirstN(ctx context.Context, accountID uuid.UUID, n int) (decimal.Decimal, error)
}

// Deriver is the slice of the balance service reporting composes
type Deriver interface {
	Balance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
	Statement(ctx context.Context, accountID uuid.UUID, from, to time.Time) (*entities.AccountStatement, error)
}

// Config bounds report pagination
type Config struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Service assembles ledger reports
type Service struct {
	accounts AccountStore
	ledger   LedgerStore
	deriver  Deriver
	config   Config
	logger   *logger.Logger
}

// NewService creates a new reporting service
func NewService(accounts AccountStore, ledger LedgerStore, deriver Deriver, config Config, logger *logger.Logger) *Service {
	if config.DefaultPageSize <= 0 {
		config.DefaultPageSize = 50
	}
	if config.MaxPageSize <= 0 {
		config.MaxPageSize = 500
	}

	return &Service{
		accounts: accounts,
		ledger:   ledger,
		deriver:  deriver,
		config:   config,
		logger:   logger,
	}
}

// GetTransactionHistory returns a transaction header together with all
// of its ledger entries.
func (s *Service) GetTransactionHistory(ctx context.Context, transactionID uuid.UUID) (*entities.TransactionHistory, error) {
	transaction, err := s.ledger.GetTransactionByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	entries, err := s.ledger.EntriesForTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	history := &entities.TransactionHistory{
		Transaction: *transaction,
		Entries:     make([]entities.LedgerEntry, 0, len(entries)),
	}
	for _, entry := range entries {
		history.Entries = append(history.Entries, *entry)
	}

	return history, nil
}

// GetTransactionByReference resolves a transaction by its client
// reference, compared case-insensitively.
func (s *Service) GetTransactionByReference(ctx context.Context, reference string) (*entities.Transaction, error) {
	transaction, err := s.ledger.FindTransactionByReferenceCI(ctx, reference)
	if err != nil {
		return nil, err
	}
	if transaction == nil {
		return nil, fmt.Errorf("%w: reference %q", apperrors.ErrTransactionNotFound, reference)
	}
	return transaction, nil
}

// GetTransactionsForAccount lists the transaction headers touching an
// account on either side, newest first.
func (s *Service) GetTransactionsForAccount(ctx context.Context, accountID uuid.UUID, pageSize, pageNumber int) ([]*entities.Transaction, error) {
	if _, err := s.accounts.GetAccountByID(ctx, accountID); err != nil {
		return nil, err
	}

	limit, offset := s.page(pageSize, pageNumber)
	return s.ledger.TransactionsForAccount(ctx, accountID, limit, offset)
}

// GetEntriesForAccount lists an account's ledger entries newest first
func (s *Service) GetEntriesForAccount(ctx context.Context, accountID uuid.UUID, pageSize, pageNumber int) ([]*entities.LedgerEntry, error) {
	if _, err := s.accounts.GetAccountByID(ctx, accountID); err != nil {
		return nil, err
	}

	limit, offset := s.page(pageSize, pageNumber)
	return s.ledger.EntriesForAccount(ctx, accountID, limit, offset)
}

// GetEntriesForTransaction lists the entries posted by one transaction
func (s *Service) GetEntriesForTransaction(ctx context.Context, transactionID uuid.UUID) ([]*entities.LedgerEntry, error) {
	if _, err := s.ledger.GetTransactionByID(ctx, transactionID); err != nil {
		return nil, err
	}
	return s.ledger.EntriesForTransaction(ctx, transactionID)
}

// GetAccountLedger returns one page of an account's ledger in
// chronological order with a running balance per entry. The page's
// opening balance is the signed sum of every entry before it, so the
// running balance of any line is independent of the page size used to
// reach it.
func (s *Service) GetAccountLedger(ctx context.Context, accountID uuid.UUID, pageSize, pageNumber int) (*entities.AccountLedgerReport, error) {
	ctx, span := tracer.Start(ctx, "reporting.GetAccountLedger",
		trace.WithAttributes(
			attribute.String("account_id", accountID.String()),
			attribute.Int("page_size", pageSize),
			attribute.Int("page_number", pageNumber),
		))
	defer span.End()

	account, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	limit, offset := s.page(pageSize, pageNumber)

	total, err := s.ledger.CountEntriesForAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	entries, err := s.ledger.EntriesForAccountAsc(ctx, accountID, limit, offset)
	if err != nil {
		return nil, err
	}

	opening, err := s.ledger.SignedSumFirstN(ctx, accountID, offset)
	if err != nil {
		return nil, err
	}

	finalBalance, err := s.deriver.Balance(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return &entities.AccountLedgerReport{
		AccountID:    account.ID,
		Currency:     account.Currency,
		PageNumber:   offset / limit,
		PageSize:     limit,
		TotalEntries: total,
		Lines:        balance.RunningBalances(opening, entries),
		Balance:      finalBalance,
	}, nil
}

// GetAccountStatement returns the account's statement over [from, to]
func (s *Service) GetAccountStatement(ctx context.Context, accountID uuid.UUID, from, to time.Time) (*entities.AccountStatement, error) {
	ctx, span := tracer.Start(ctx, "reporting.GetAccountStatement",
		trace.WithAttributes(
			attribute.String("account_id", accountID.String()),
			attribute.String("start_date", from.Format(time.RFC3339)),
			attribute.String("end_date", to.Format(time.RFC3339)),
		))
	defer span.End()

	if to.Before(from) {
		return nil, fmt.Errorf("%w: statement end %s precedes start %s", apperrors.ErrInvalidInput, to, from)
	}

	account, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	statement, err := s.deriver.Statement(ctx, accountID, from, to)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	statement.Currency = account.Currency
	return statement, nil
}

// VerifyTransactionBalanced checks the double-entry invariant for one
// transaction: its debits and credits must sum to the same value.
func (s *Service) VerifyTransactionBalanced(ctx context.Context, transactionID uuid.UUID) error {
	entries, err := s.GetEntriesForTransaction(ctx, transactionID)
	if err != nil {
		return err
	}

	debits, credits := decimal.Zero, decimal.Zero
	for _, entry := range entries {
		if entry.EntryType == entities.EntryTypeCredit {
			credits = credits.Add(entry.Amount)
		} else {
			debits = debits.Add(entry.Amount)
		}
	}

	if !debits.Equal(credits) {
		s.logger.Error("Transaction failed zero-sum verification",
			"transaction_id", transactionID,
			"total_debits", debits.String(),
			"total_credits", credits.String())
		return fmt.Errorf("%w: transaction %s has debits %s and credits %s",
			apperrors.ErrBalanceVerification, transactionID, debits, credits)
	}

	return nil
}

// page clamps the requested page size and converts the zero-based page
// number into limit and offset.
func (s *Service) page(pageSize, pageNumber int) (limit, offset int) {
	limit = pageSize
	if limit <= 0 {
		limit = s.config.DefaultPageSize
	}
	if limit > s.config.MaxPageSize {
		limit = s.config.MaxPageSize
	}
	if pageNumber < 0 {
		pageNumber = 0
	}
	return limit, pageNumber * limit
}
