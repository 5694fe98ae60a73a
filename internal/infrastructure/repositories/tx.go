package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	apperrors "github.com/ledger-service/ledger_service/internal/domain/errors"
)

// txContextKey carries an open *sqlx.Tx through a context so every
// repository call inside a transfer runs on the same transaction.
type txContextKey struct{}

// WithTx returns a context that routes repository calls through tx
func WithTx(ctx context.Context, tx *sqlx.Tx) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// TxFromContext extracts the transaction from ctx, if any
func TxFromContext(ctx context.Context) (*sqlx.Tx, bool) {
	tx, ok := ctx.Value(txContextKey{}).(*sqlx.Tx)
	return tx, ok
}

// ext picks the context transaction when present, the pool otherwise
func ext(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return db
}

// Postgres SQLSTATE codes the repositories classify
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUniqueViolation
	}
	return false
}

func isTransientSQLState(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return true
		}
	}
	return false
}

// wrapStoreErr classifies a raw database error onto the domain's
// storage sentinels, keeping the original detail in the message.
func wrapStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if isTransientSQLState(err) {
		return fmt.Errorf("%w: %s: %v", apperrors.ErrTransient, op, err)
	}
	return fmt.Errorf("%w: %s: %v", apperrors.ErrStoreIO, op, err)
}
