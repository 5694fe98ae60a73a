package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ledger-service/ledger_service/internal/domain/entities"
	apperrors "github.com/ledger-service/ledger_service/internal/domain/errors"
)

// AccountRepository handles account persistence. Account rows are
// immutable after insert; there is no update path.
type AccountRepository struct {
	db *sqlx.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// InsertAccount persists a new account
func (r *AccountRepository) InsertAccount(ctx context.Context, account *entities.Account) error {
	if err := account.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}

	query := `
		INSERT INTO accounts (id, currency, account_type, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	account.CreatedAt = time.Now().UTC()

	err := ext(ctx, r.db).QueryRowxContext(
		ctx,
		query,
		account.ID,
		account.Currency,
		account.Type,
		account.CreatedAt,
	).Scan(&account.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: account %s already exists", apperrors.ErrInvalidInput, account.ID)
		}
		return wrapStoreErr("insert account", err)
	}

	return nil
}

// GetAccountByID retrieves an account by ID
func (r *AccountRepository) GetAccountByID(ctx context.Context, accountID uuid.UUID) (*entities.Account, error) {
	query := `
		SELECT id, currency, account_type, created_at
		FROM accounts
		WHERE id = $1
	`

	var account entities.Account
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &account, query, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, accountID)
		}
		return nil, wrapStoreErr("get account", err)
	}

	return &account, nil
}

// AccountExists reports whether an account row exists
func (r *AccountRepository) AccountExists(ctx context.Context, accountID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`

	var exists bool
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &exists, query, accountID)
	if err != nil {
		return false, wrapStoreErr("account exists", err)
	}

	return exists, nil
}

// GetAccountByIDWithLock retrieves an account and takes a row lock on
// it. Must be called inside a transaction carried by ctx.
func (r *AccountRepository) GetAccountByIDWithLock(ctx context.Context, accountID uuid.UUID) (*entities.Account, error) {
	query := `
		SELECT id, currency, account_type, created_at
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`

	var account entities.Account
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &account, query, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, accountID)
		}
		return nil, wrapStoreErr("lock account", err)
	}

	return &account, nil
}

// LockAccounts takes row locks on the given accounts strictly in the
// order supplied by the caller. The transfer engine passes ids sorted
// by their byte representation, which is the global lock order that
// keeps concurrent transfers deadlock free.
func (r *AccountRepository) LockAccounts(ctx context.Context, accountIDs []uuid.UUID) ([]*entities.Account, error) {
	accounts := make([]*entities.Account, 0, len(accountIDs))
	for _, id := range accountIDs {
		account, err := r.GetAccountByIDWithLock(ctx, id)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// SetLockTimeout bounds lock waits for the transaction carried by ctx.
// Expiry surfaces as SQLSTATE 55P03, which the repositories classify
// as transient.
func (r *AccountRepository) SetLockTimeout(ctx context.Context, timeout time.Duration) error {
	// SET LOCAL does not accept bind parameters; the value is an
	// integer rendered server-side as milliseconds.
	query := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", timeout.Milliseconds())

	if _, err := ext(ctx, r.db).ExecContext(ctx, query); err != nil {
		return wrapStoreErr("set lock timeout", err)
	}
	return nil
}
