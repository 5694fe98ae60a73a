package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ledger-service/ledger_service/internal/domain/entities"
	apperrors "github.com/ledger-service/ledger_service/internal/domain/errors"
)

// LedgerRepository handles transaction and ledger entry persistence.
// Both tables are append-only; nothing here updates or deletes rows.
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// ===== Transaction Operations =====

// InsertTransactionWithEntries persists a transaction header and its
// ledger entries atomically. When ctx carries an open transaction the
// writes join it; otherwise a local transaction wraps them. A unique
// violation on the case-insensitive reference index surfaces as
// ErrDuplicateReference.
func (r *LedgerRepository) InsertTransactionWithEntries(ctx context.Context, transaction *entities.Transaction, entries []*entities.LedgerEntry) error {
	if _, ok := TxFromContext(ctx); ok {
		return r.insertAll(ctx, transaction, entries)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrapStoreErr("begin insert transaction", err)
	}
	defer tx.Rollback()

	txCtx := WithTx(ctx, tx)
	if err := r.insertAll(txCtx, transaction, entries); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return wrapStoreErr("commit insert transaction", err)
	}
	return nil
}

func (r *LedgerRepository) insertAll(ctx context.Context, transaction *entities.Transaction, entries []*entities.LedgerEntry) error {
	now := time.Now().UTC()

	headerQuery := `
		INSERT INTO transactions (
			id, from_account_id, to_account_id, amount, currency,
			transaction_type, reference, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	transaction.CreatedAt = now
	err := ext(ctx, r.db).QueryRowxContext(
		ctx,
		headerQuery,
		transaction.ID,
		transaction.FromAccountID,
		transaction.ToAccountID,
		transaction.Amount,
		transaction.Currency,
		transaction.Type,
		transaction.Reference,
		transaction.CreatedAt,
	).Scan(&transaction.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", apperrors.ErrDuplicateReference, err)
		}
		return wrapStoreErr("insert transaction", err)
	}

	entryQuery := `
		INSERT INTO ledger_entries (
			id, account_id, transaction_id, entry_type, amount, currency,
			description, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, entry := range entries {
		entry.CreatedAt = now
		if err := entry.Validate(); err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
		}

		_, err := ext(ctx, r.db).ExecContext(
			ctx,
			entryQuery,
			entry.ID,
			entry.AccountID,
			entry.TransactionID,
			entry.EntryType,
			entry.Amount,
			entry.Currency,
			entry.Description,
			entry.CreatedAt,
		)
		if err != nil {
			return wrapStoreErr("insert ledger entry", err)
		}
	}

	return nil
}

// GetTransactionByID retrieves a transaction by ID
func (r *LedgerRepository) GetTransactionByID(ctx context.Context, transactionID uuid.UUID) (*entities.Transaction, error) {
	query := `
		SELECT id, from_account_id, to_account_id, amount, currency,
		       transaction_type, reference, created_at
		FROM transactions
		WHERE id = $1
	`

	var transaction entities.Transaction
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &transaction, query, transactionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrTransactionNotFound, transactionID)
		}
		return nil, wrapStoreErr("get transaction", err)
	}

	return &transaction, nil
}

// FindTransactionByReferenceCI retrieves a transaction by its client
// reference, compared case-insensitively. A miss returns (nil, nil);
// absence is a normal outcome for the idempotency check.
func (r *LedgerRepository) FindTransactionByReferenceCI(ctx context.Context, reference string) (*entities.Transaction, error) {
	query := `
		SELECT id, from_account_id, to_account_id, amount, currency,
		       transaction_type, reference, created_at
		FROM transactions
		WHERE reference IS NOT NULL AND LOWER(reference) = LOWER($1)
	`

	var transaction entities.Transaction
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &transaction, query, reference)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapStoreErr("find transaction by reference", err)
	}

	return &transaction, nil
}

// TransactionsForAccount retrieves transactions touching an account on
// either side, newest first.
func (r *LedgerRepository) TransactionsForAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*entities.Transaction, error) {
	query := `
		SELECT id, from_account_id, to_account_id, amount, currency,
		       transaction_type, reference, created_at
		FROM transactions
		WHERE from_account_id = $1 OR to_account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	var transactions []*entities.Transaction
	err := sqlx.SelectContext(ctx, ext(ctx, r.db), &transactions, query, accountID, limit, offset)
	if err != nil {
		return nil, wrapStoreErr("list transactions for account", err)
	}

	return transactions, nil
}

// ===== Entry Operations =====

// EntriesForTransaction retrieves all entries of a transaction in
// insertion order.
func (r *LedgerRepository) EntriesForTransaction(ctx context.Context, transactionID uuid.UUID) ([]*entities.LedgerEntry, error) {
	query := `
		SELECT id, account_id, transaction_id, entry_type, amount, currency,
		       description, created_at
		FROM ledger_entries
		WHERE transaction_id = $1
		ORDER BY created_at, id
	`

	var entries []*entities.LedgerEntry
	err := sqlx.SelectContext(ctx, ext(ctx, r.db), &entries, query, transactionID)
	if err != nil {
		return nil, wrapStoreErr("list entries for transaction", err)
	}

	return entries, nil
}

// EntriesForAccount retrieves an account's entries newest first
func (r *LedgerRepository) EntriesForAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*entities.LedgerEntry, error) {
	query := `
		SELECT id, account_id, transaction_id, entry_type, amount, currency,
		       description, created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	var entries []*entities.LedgerEntry
	err := sqlx.SelectContext(ctx, ext(ctx, r.db), &entries, query, accountID, limit, offset)
	if err != nil {
		return nil, wrapStoreErr("list entries for account", err)
	}

	return entries, nil
}

// EntriesForAccountAsc retrieves an account's entries oldest first,
// ordered by (created_at, id) so running balances are reproducible.
func (r *LedgerRepository) EntriesForAccountAsc(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*entities.LedgerEntry, error) {
	query := `
		SELECT id, account_id, transaction_id, entry_type, amount, currency,
		       description, created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3
	`

	var entries []*entities.LedgerEntry
	err := sqlx.SelectContext(ctx, ext(ctx, r.db), &entries, query, accountID, limit, offset)
	if err != nil {
		return nil, wrapStoreErr("list entries for account", err)
	}

	return entries, nil
}

// CountEntriesForAccount returns the number of entries on an account
func (r *LedgerRepository) CountEntriesForAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM ledger_entries WHERE account_id = $1`

	var count int64
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &count, query, accountID)
	if err != nil {
		return 0, wrapStoreErr("count entries for account", err)
	}

	return count, nil
}

// EntriesForAccountBetween retrieves entries inside the closed interval
// [from, to], oldest first.
func (r *LedgerRepository) EntriesForAccountBetween(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]*entities.LedgerEntry, error) {
	query := `
		SELECT id, account_id, transaction_id, entry_type, amount, currency,
		       description, created_at
		FROM ledger_entries
		WHERE account_id = $1 AND created_at >= $2 AND created_at <= $3
		ORDER BY created_at, id
	`

	var entries []*entities.LedgerEntry
	err := sqlx.SelectContext(ctx, ext(ctx, r.db), &entries, query, accountID, from, to)
	if err != nil {
		return nil, wrapStoreErr("list entries for account between", err)
	}

	return entries, nil
}

// ===== Balance Queries =====

// SumByAccountAndKind returns the debit and credit totals of an account
func (r *LedgerRepository) SumByAccountAndKind(ctx context.Context, accountID uuid.UUID) (totalDebits, totalCredits decimal.Decimal, err error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN entry_type = 'DEBIT' THEN amount ELSE 0 END), 0) AS total_debits,
			COALESCE(SUM(CASE WHEN entry_type = 'CREDIT' THEN amount ELSE 0 END), 0) AS total_credits
		FROM ledger_entries
		WHERE account_id = $1
	`

	return r.sumByKind(ctx, query, accountID)
}

// SumByAccountAndKindBefore returns the debit and credit totals of an
// account over entries strictly before the cutoff.
func (r *LedgerRepository) SumByAccountAndKindBefore(ctx context.Context, accountID uuid.UUID, before time.Time) (totalDebits, totalCredits decimal.Decimal, err error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN entry_type = 'DEBIT' THEN amount ELSE 0 END), 0) AS total_debits,
			COALESCE(SUM(CASE WHEN entry_type = 'CREDIT' THEN amount ELSE 0 END), 0) AS total_credits
		FROM ledger_entries
		WHERE account_id = $1 AND created_at < $2
	`

	return r.sumByKind(ctx, query, accountID, before)
}

// SumByAccountAndKindThrough returns the debit and credit totals of an
// account over entries up to and including the cutoff.
func (r *LedgerRepository) SumByAccountAndKindThrough(ctx context.Context, accountID uuid.UUID, asOf time.Time) (totalDebits, totalCredits decimal.Decimal, err error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN entry_type = 'DEBIT' THEN amount ELSE 0 END), 0) AS total_debits,
			COALESCE(SUM(CASE WHEN entry_type = 'CREDIT' THEN amount ELSE 0 END), 0) AS total_credits
		FROM ledger_entries
		WHERE account_id = $1 AND created_at <= $2
	`

	return r.sumByKind(ctx, query, accountID, asOf)
}

func (r *LedgerRepository) sumByKind(ctx context.Context, query string, args ...interface{}) (decimal.Decimal, decimal.Decimal, error) {
	var debitsStr, creditsStr string
	err := ext(ctx, r.db).QueryRowxContext(ctx, query, args...).Scan(&debitsStr, &creditsStr)
	if err != nil {
		return decimal.Zero, decimal.Zero, wrapStoreErr("sum entries by kind", err)
	}

	totalDebits, err := decimal.NewFromString(debitsStr)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("parse debits: %w", err)
	}

	totalCredits, err := decimal.NewFromString(creditsStr)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("parse credits: %w", err)
	}

	return totalDebits, totalCredits, nil
}

// SignedSumFirstN returns the signed sum (credits minus debits) of the
// first n entries of an account in (created_at, id) order. Reporting
// uses it as the opening balance of a ledger page.
func (r *LedgerRepository) SignedSumFirstN(ctx context.Context, accountID uuid.UUID, n int) (decimal.Decimal, error) {
	if n <= 0 {
		return decimal.Zero, nil
	}

	query := `
		SELECT COALESCE(SUM(CASE WHEN entry_type = 'CREDIT' THEN amount ELSE -amount END), 0)
		FROM (
			SELECT entry_type, amount
			FROM ledger_entries
			WHERE account_id = $1
			ORDER BY created_at, id
			LIMIT $2
		) first_entries
	`

	var sumStr string
	err := ext(ctx, r.db).QueryRowxContext(ctx, query, accountID, n).Scan(&sumStr)
	if err != nil {
		return decimal.Zero, wrapStoreErr("signed sum of first entries", err)
	}

	sum, err := decimal.NewFromString(sumStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse signed sum: %w", err)
	}

	return sum, nil
}

// ===== Verification Queries =====

// UnbalancedTransactions returns ids of transactions whose entries do
// not form a balanced double-entry pair.
func (r *LedgerRepository) UnbalancedTransactions(ctx context.Context) ([]uuid.UUID, error) {
	query := `
		SELECT transaction_id
		FROM ledger_entries
		GROUP BY transaction_id
		HAVING COUNT(*) <> 2
		    OR SUM(CASE WHEN entry_type = 'DEBIT' THEN amount ELSE 0 END)
		    <> SUM(CASE WHEN entry_type = 'CREDIT' THEN amount ELSE 0 END)
	`

	var ids []uuid.UUID
	err := sqlx.SelectContext(ctx, ext(ctx, r.db), &ids, query)
	if err != nil {
		return nil, wrapStoreErr("find unbalanced transactions", err)
	}

	return ids, nil
}

// CountOrphanedEntries returns the count of ledger entries without a
// matching transaction header. The foreign key makes this impossible
// through the API; the sweep checks anyway.
func (r *LedgerRepository) CountOrphanedEntries(ctx context.Context) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM ledger_entries e
		LEFT JOIN transactions t ON t.id = e.transaction_id
		WHERE t.id IS NULL
	`

	var count int64
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &count, query)
	if err != nil {
		return 0, wrapStoreErr("count orphaned entries", err)
	}

	return count, nil
}

// CountCurrencyMismatchedEntries returns the count of entries whose
// currency disagrees with their account or transaction.
func (r *LedgerRepository) CountCurrencyMismatchedEntries(ctx context.Context) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM ledger_entries e
		JOIN accounts a ON a.id = e.account_id
		JOIN transactions t ON t.id = e.transaction_id
		WHERE e.currency <> a.currency OR e.currency <> t.currency
	`

	var count int64
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &count, query)
	if err != nil {
		return 0, wrapStoreErr("count currency mismatched entries", err)
	}

	return count, nil
}

// GlobalDebitCreditTotals returns the sum of all debits and credits in
// the ledger. The two totals are equal in a consistent ledger.
func (r *LedgerRepository) GlobalDebitCreditTotals(ctx context.Context) (totalDebits, totalCredits decimal.Decimal, err error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN entry_type = 'DEBIT' THEN amount ELSE 0 END), 0) AS total_debits,
			COALESCE(SUM(CASE WHEN entry_type = 'CREDIT' THEN amount ELSE 0 END), 0) AS total_credits
		FROM ledger_entries
	`

	return r.sumByKind(ctx, query)
}

// InTransaction runs fn inside a database transaction with the given
// options. The context passed to fn carries the transaction, so every
// repository call inside fn joins it. The transaction commits when fn
// returns nil and rolls back otherwise, including on panic.
func (r *LedgerRepository) InTransaction(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context) error) error {
	tx, err := r.db.BeginTxx(ctx, opts)
	if err != nil {
		return wrapStoreErr("begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(WithTx(ctx, tx)); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return wrapStoreErr("commit transaction", err)
	}
	return nil
}
