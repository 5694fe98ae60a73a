// Package transfer posts double-entry transactions between accounts.
// Every transfer debits one account and credits another inside a single
// database transaction, with row locks taken in a global order.
package transfer

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ledger-service/ledger_service/internal/domain/entities"
	apperrors "github.com/ledger-service/ledger_service/internal/domain/errors"
	"github.com/ledger-service/ledger_service/internal/infrastructure/config"
	"github.com/ledger-service/ledger_service/pkg/logger"
	"github.com/ledger-service/ledger_service/pkg/metrics"
	"github.com/ledger-service/ledger_service/pkg/retry"
)

var tracer = otel.Tracer("transfer-service")

// AccountStore is the slice of the account repository the engine needs
type AccountStore interface {
	LockAccounts(ctx context.Context, accountIDs []uuid.UUID) ([]*entities.Account, error)
	SetLockTimeout(ctx context.Context, timeout time.Duration) error
}

// LedgerStore is the slice of the ledger repository the engine needs
type LedgerStore interface {
	InTransaction(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context) error) error
	FindTransactionByReferenceCI(ctx context.Context, reference string) (*entities.Transaction, error)
	InsertTransactionWithEntries(ctx context.Context, transaction *entities.Transaction, entries []*entities.LedgerEntry) error
	SumByAccountAndKind(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, decimal.Decimal, error)
}

// Service is the transfer engine
type Service struct {
	accounts    AccountStore
	ledger      LedgerStore
	retrier     *retry.Retrier
	lockTimeout time.Duration
	logger      *logger.Logger
}

// NewService creates a new transfer engine
func NewService(accounts AccountStore, ledger LedgerStore, cfg config.LedgerConfig, log *logger.Logger) *Service {
	policy := retry.Policy{
		MaxRetries:    cfg.TransferMaxRetries,
		InitialDelay:  cfg.TransferRetryDelay,
		MaxDelay:      10 * cfg.TransferRetryDelay,
		Multiplier:    2,
		Jitter:        true,
		RetryableFunc: apperrors.ShouldRetry,
	}

	return &Service{
		accounts:    accounts,
		ledger:      ledger,
		retrier:     retry.NewRetrier(policy, log.Zap()),
		lockTimeout: cfg.LockTimeout,
		logger:      log,
	}
}

// Transfer posts a transaction moving req.Amount from one account to
// another. The call is idempotent on req.Reference: replaying the same
// parameters returns the previously posted transaction, while reusing
// the reference with different parameters is rejected.
func (s *Service) Transfer(ctx context.Context, req *entities.TransferRequest) (*entities.Transaction, error) {
	ctx, span := tracer.Start(ctx, "transfer.Transfer",
		trace.WithAttributes(
			attribute.String("from_account_id", req.FromAccountID.String()),
			attribute.String("to_account_id", req.ToAccountID.String()),
			attribute.String("amount", req.Amount.String()),
			attribute.String("currency", string(req.Currency)),
			attribute.String("type", string(req.Type)),
		))
	defer span.End()

	if err := s.validateRequest(req); err != nil {
		span.RecordError(err)
		metrics.TransfersTotal.WithLabelValues(string(req.Type), "rejected").Inc()
		return nil, err
	}

	// Idempotency short-circuit before any locks are taken
	if req.Reference != nil {
		existing, err := s.ledger.FindTransactionByReferenceCI(ctx, *req.Reference)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if existing != nil {
			return s.resolveExistingReference(req, existing)
		}
	}

	result, err := s.retrier.DoWithResult(ctx, func() (interface{}, error) {
		return s.attemptTransfer(ctx, req)
	})
	if err != nil {
		// A duplicate reference that appeared while we were posting
		// means a concurrent request with the same reference won the
		// race. Recheck so an identical replay still succeeds.
		if apperrors.IsDuplicateReference(err) && req.Reference != nil {
			existing, findErr := s.ledger.FindTransactionByReferenceCI(ctx, *req.Reference)
			if findErr == nil && existing != nil {
				return s.resolveExistingReference(req, existing)
			}
		}
		if errors.Is(err, retry.ErrMaxRetriesExceeded) {
			err = fmt.Errorf("%w: transfer retries exhausted: %v", apperrors.ErrTransient, err)
		}
		span.RecordError(err)
		metrics.TransfersTotal.WithLabelValues(string(req.Type), "failed").Inc()
		return nil, err
	}

	transaction := result.(*entities.Transaction)
	metrics.TransfersTotal.WithLabelValues(string(req.Type), "posted").Inc()
	s.logger.Info("Transfer posted",
		"transaction_id", transaction.ID,
		"type", transaction.Type,
		"from_account_id", transaction.FromAccountID,
		"to_account_id", transaction.ToAccountID,
		"amount", transaction.Amount.String(),
		"currency", transaction.Currency)

	return transaction, nil
}

// attemptTransfer runs one posting attempt inside its own database
// transaction. Lock waits and serialization failures surface as
// transient errors and are retried by the caller.
func (s *Service) attemptTransfer(ctx context.Context, req *entities.TransferRequest) (*entities.Transaction, error) {
	var posted *entities.Transaction

	opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead}
	err := s.ledger.InTransaction(ctx, opts, func(txCtx context.Context) error {
		if err := s.accounts.SetLockTimeout(txCtx, s.lockTimeout); err != nil {
			return err
		}

		locked, err := s.accounts.LockAccounts(txCtx, lockOrder(req.FromAccountID, req.ToAccountID))
		if err != nil {
			return err
		}

		from, to := pick(locked, req.FromAccountID), pick(locked, req.ToAccountID)
		if from == nil || to == nil {
			return fmt.Errorf("%w: locked account set incomplete", apperrors.ErrStoreIO)
		}

		if err := s.validateAccounts(txCtx, req, from, to); err != nil {
			return err
		}

		transaction := &entities.Transaction{
			ID:            uuid.New(),
			FromAccountID: from.ID,
			ToAccountID:   to.ID,
			Amount:        req.Amount,
			Currency:      req.Currency,
			Type:          req.Type,
			Reference:     req.Reference,
		}

		entries := []*entities.LedgerEntry{
			{
				ID:            uuid.New(),
				AccountID:     from.ID,
				TransactionID: transaction.ID,
				EntryType:     entities.EntryTypeDebit,
				Amount:        req.Amount,
				Currency:      req.Currency,
				Description:   req.Description,
			},
			{
				ID:            uuid.New(),
				AccountID:     to.ID,
				TransactionID: transaction.ID,
				EntryType:     entities.EntryTypeCredit,
				Amount:        req.Amount,
				Currency:      req.Currency,
				Description:   req.Description,
			},
		}

		if err := s.ledger.InsertTransactionWithEntries(txCtx, transaction, entries); err != nil {
			return err
		}

		posted = transaction
		return nil
	})
	if err != nil {
		if apperrors.IsTransient(err) {
			metrics.TransferRetriesTotal.Inc()
		}
		return nil, err
	}

	return posted, nil
}

// validateRequest checks everything that needs no database access
func (s *Service) validateRequest(req *entities.TransferRequest) error {
	if err := entities.ValidateAmount(req.Amount); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidTransaction, err)
	}
	if req.FromAccountID == uuid.Nil || req.ToAccountID == uuid.Nil {
		return fmt.Errorf("%w: both accounts are required", apperrors.ErrInvalidTransaction)
	}
	if req.FromAccountID == req.ToAccountID {
		return fmt.Errorf("%w: cannot transfer between an account and itself", apperrors.ErrInvalidTransaction)
	}
	if err := req.Currency.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidTransaction, err)
	}
	if err := req.Type.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidTransaction, err)
	}
	if req.Reference != nil && *req.Reference == "" {
		return fmt.Errorf("%w: reference must not be empty when supplied", apperrors.ErrInvalidTransaction)
	}
	return nil
}

// validateAccounts checks the rules that need the locked account rows:
// currency agreement and the source account's debit policy.
func (s *Service) validateAccounts(ctx context.Context, req *entities.TransferRequest, from, to *entities.Account) error {
	if from.Currency != req.Currency {
		return fmt.Errorf("%w: account %s holds %s, transfer is %s",
			apperrors.ErrCurrencyMismatch, from.ID, from.Currency, req.Currency)
	}
	if to.Currency != req.Currency {
		return fmt.Errorf("%w: account %s holds %s, transfer is %s",
			apperrors.ErrCurrencyMismatch, to.ID, to.Currency, req.Currency)
	}

	switch from.Type.DebitPolicy() {
	case entities.DebitDenied:
		return fmt.Errorf("%w: %s accounts cannot be debited", apperrors.ErrInvalidTransaction, from.Type)
	case entities.DebitUnbounded:
		// System accounts fund the ledger and may run negative
		return nil
	}

	debits, credits, err := s.ledger.SumByAccountAndKind(ctx, from.ID)
	if err != nil {
		return err
	}
	balance := credits.Sub(debits)
	if balance.LessThan(req.Amount) {
		return fmt.Errorf("%w: account %s holds %s, transfer needs %s",
			apperrors.ErrInsufficientFunds, from.ID, balance, req.Amount)
	}

	return nil
}

// resolveExistingReference decides between an idempotent replay and a
// reference collision.
func (s *Service) resolveExistingReference(req *entities.TransferRequest, existing *entities.Transaction) (*entities.Transaction, error) {
	if req.Matches(existing) {
		metrics.IdempotentReplaysTotal.Inc()
		s.logger.Info("Transfer replayed idempotently",
			"transaction_id", existing.ID,
			"reference", *req.Reference)
		return existing, nil
	}

	metrics.TransfersTotal.WithLabelValues(string(req.Type), "rejected").Inc()
	return nil, apperrors.WrapWithCode(apperrors.ErrInvalidTransaction,
		"DUPLICATE_REFERENCE_DIFFERENT_PARAMS",
		fmt.Sprintf("reference %q was already used with different parameters", *req.Reference))
}

// lockOrder returns the two account ids sorted by their byte-wise uuid
// representation. Locking in one global order keeps concurrent
// transfers that touch the same accounts deadlock free.
func lockOrder(a, b uuid.UUID) []uuid.UUID {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return []uuid.UUID{a, b}
	}
	return []uuid.UUID{b, a}
}

func pick(accounts []*entities.Account, id uuid.UUID) *entities.Account {
	for _, account := range accounts {
		if account.ID == id {
			return account
		}
	}
	return nil
}
