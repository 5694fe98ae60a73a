package repositories

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ledger-service/ledger_service/internal/domain/errors"
)

func TestTxContextRoundTrip(t *testing.T) {
	tx := &sqlx.Tx{}
	ctx := WithTx(context.Background(), tx)

	got, ok := TxFromContext(ctx)
	require.True(t, ok)
	assert.Same(t, tx, got)

	_, ok = TxFromContext(context.Background())
	assert.False(t, ok)
}

func TestExtPrefersContextTransaction(t *testing.T) {
	db := &sqlx.DB{}
	tx := &sqlx.Tx{}

	assert.Equal(t, sqlx.ExtContext(db), ext(context.Background(), db))
	assert.Equal(t, sqlx.ExtContext(tx), ext(WithTx(context.Background(), tx), db))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))

	assert.False(t, isUniqueViolation(&pq.Error{Code: "40001"}))
	assert.False(t, isUniqueViolation(errors.New("unique")))
	assert.False(t, isUniqueViolation(nil))
}

func TestIsTransientSQLState(t *testing.T) {
	transientCodes := []pq.ErrorCode{"40001", "40P01", "55P03"}
	for _, code := range transientCodes {
		assert.True(t, isTransientSQLState(&pq.Error{Code: code}), "SQLSTATE %s is transient", code)
	}

	assert.False(t, isTransientSQLState(&pq.Error{Code: "23505"}))
	assert.False(t, isTransientSQLState(errors.New("deadlock")))
}

func TestWrapStoreErr(t *testing.T) {
	assert.NoError(t, wrapStoreErr("insert transaction", nil))

	transient := wrapStoreErr("lock accounts", &pq.Error{Code: "55P03"})
	require.Error(t, transient)
	assert.True(t, apperrors.IsTransient(transient))
	assert.Contains(t, transient.Error(), "lock accounts")

	permanent := wrapStoreErr("insert transaction", &pq.Error{Code: "42P01"})
	require.Error(t, permanent)
	assert.False(t, apperrors.IsTransient(permanent))
	assert.ErrorIs(t, permanent, apperrors.ErrStoreIO)
}
