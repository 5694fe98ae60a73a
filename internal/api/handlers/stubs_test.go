package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ledger-service/ledger_service/internal/domain/entities"
	apperrors "github.com/ledger-service/ledger_service/internal/domain/errors"
	"github.com/ledger-service/ledger_service/internal/domain/services/account"
	"github.com/ledger-service/ledger_service/internal/domain/services/balance"
	"github.com/ledger-service/ledger_service/internal/domain/services/reporting"
	"github.com/ledger-service/ledger_service/internal/domain/services/transfer"
	"github.com/ledger-service/ledger_service/internal/infrastructure/config"
	"github.com/ledger-service/ledger_service/pkg/logger"
)

// stubAccountStore satisfies every account store slice the services
// consume, so one instance backs a whole handler stack.
type stubAccountStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*entities.Account
}

func newStubAccountStore() *stubAccountStore {
	return &stubAccountStore{accounts: make(map[uuid.UUID]*entities.Account)}
}

func (s *stubAccountStore) add(account *entities.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = account
}

func (s *stubAccountStore) InsertAccount(ctx context.Context, account *entities.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account.CreatedAt = time.Now().UTC()
	s.accounts[account.ID] = account
	return nil
}

func (s *stubAccountStore) GetAccountByID(ctx context.Context, accountID uuid.UUID) (*entities.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if account, ok := s.accounts[accountID]; ok {
		return account, nil
	}
	return nil, fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, accountID)
}

func (s *stubAccountStore) AccountExists(ctx context.Context, accountID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.accounts[accountID]
	return ok, nil
}

func (s *stubAccountStore) LockAccounts(ctx context.Context, accountIDs []uuid.UUID) ([]*entities.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	locked := make([]*entities.Account, 0, len(accountIDs))
	for _, id := range accountIDs {
		if account, ok := s.accounts[id]; ok {
			locked = append(locked, account)
		}
	}
	return locked, nil
}

func (s *stubAccountStore) SetLockTimeout(ctx context.Context, timeout time.Duration) error {
	return nil
}

// stubLedgerStore is an in-memory ledger satisfying the transfer,
// balance and reporting store slices at once.
type stubLedgerStore struct {
	mu           sync.Mutex
	transactions map[uuid.UUID]*entities.Transaction
	byReference  map[string]*entities.Transaction
	entries      []*entities.LedgerEntry
	seedCredits  map[uuid.UUID]decimal.Decimal
}

func newStubLedgerStore() *stubLedgerStore {
	return &stubLedgerStore{
		transactions: make(map[uuid.UUID]*entities.Transaction),
		byReference:  make(map[string]*entities.Transaction),
		seedCredits:  make(map[uuid.UUID]decimal.Decimal),
	}
}

func (s *stubLedgerStore) seed(accountID uuid.UUID, credits string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seedCredits[accountID] = decimal.RequireFromString(credits)
}

func (s *stubLedgerStore) InTransaction(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *stubLedgerStore) FindTransactionByReferenceCI(ctx context.Context, reference string) (*entities.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx, ok := s.byReference[strings.ToLower(reference)]; ok {
		return tx, nil
	}
	return nil, nil
}

func (s *stubLedgerStore) InsertTransactionWithEntries(ctx context.Context, transaction *entities.Transaction, entries []*entities.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if transaction.Reference != nil {
		key := strings.ToLower(*transaction.Reference)
		if _, taken := s.byReference[key]; taken {
			return fmt.Errorf("%w: reference %q", apperrors.ErrDuplicateReference, *transaction.Reference)
		}
		s.byReference[key] = transaction
	}

	now := time.Now().UTC()
	transaction.CreatedAt = now
	s.transactions[transaction.ID] = transaction
	for _, entry := range entries {
		entry.CreatedAt = now
		s.entries = append(s.entries, entry)
	}
	return nil
}

func (s *stubLedgerStore) GetTransactionByID(ctx context.Context, transactionID uuid.UUID) (*entities.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx, ok := s.transactions[transactionID]; ok {
		return tx, nil
	}
	return nil, fmt.Errorf("%w: %s", apperrors.ErrTransactionNotFound, transactionID)
}

func (s *stubLedgerStore) TransactionsForAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*entities.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matching := make([]*entities.Transaction, 0)
	for _, tx := range s.transactions {
		if tx.FromAccountID == accountID || tx.ToAccountID == accountID {
			matching = append(matching, tx)
		}
	}
	sort.Slice(matching, func(i, j int) bool { return matching[i].CreatedAt.After(matching[j].CreatedAt) })
	return paginate(matching, limit, offset), nil
}

func (s *stubLedgerStore) EntriesForTransaction(ctx context.Context, transactionID uuid.UUID) ([]*entities.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matching := make([]*entities.LedgerEntry, 0)
	for _, entry := range s.entries {
		if entry.TransactionID == transactionID {
			matching = append(matching, entry)
		}
	}
	return matching, nil
}

func (s *stubLedgerStore) EntriesForAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*entities.LedgerEntry, error) {
	asc, err := s.EntriesForAccountAsc(ctx, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	desc := make([]*entities.LedgerEntry, len(asc))
	for i, entry := range asc {
		desc[len(asc)-1-i] = entry
	}
	return desc, nil
}

func (s *stubLedgerStore) EntriesForAccountAsc(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*entities.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return paginate(s.accountEntriesLocked(accountID), limit, offset), nil
}

func (s *stubLedgerStore) CountEntriesForAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.accountEntriesLocked(accountID))), nil
}

func (s *stubLedgerStore) SignedSumFirstN(ctx context.Context, accountID uuid.UUID, n int) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := decimal.Zero
	for i, entry := range s.accountEntriesLocked(accountID) {
		if i >= n {
			break
		}
		sum = sum.Add(entry.SignedAmount())
	}
	return sum, nil
}

func (s *stubLedgerStore) SumByAccountAndKind(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	debits, credits := decimal.Zero, decimal.Zero
	if seed, ok := s.seedCredits[accountID]; ok {
		credits = seed
	}
	for _, entry := range s.accountEntriesLocked(accountID) {
		if entry.EntryType == entities.EntryTypeDebit {
			debits = debits.Add(entry.Amount)
		} else {
			credits = credits.Add(entry.Amount)
		}
	}
	return debits, credits, nil
}

func (s *stubLedgerStore) SumByAccountAndKindBefore(ctx context.Context, accountID uuid.UUID, before time.Time) (decimal.Decimal, decimal.Decimal, error) {
	return s.sumWindow(accountID, func(entry *entities.LedgerEntry) bool { return entry.CreatedAt.Before(before) })
}

func (s *stubLedgerStore) SumByAccountAndKindThrough(ctx context.Context, accountID uuid.UUID, asOf time.Time) (decimal.Decimal, decimal.Decimal, error) {
	return s.sumWindow(accountID, func(entry *entities.LedgerEntry) bool { return !entry.CreatedAt.After(asOf) })
}

func (s *stubLedgerStore) sumWindow(accountID uuid.UUID, include func(*entities.LedgerEntry) bool) (decimal.Decimal, decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	debits, credits := decimal.Zero, decimal.Zero
	if seed, ok := s.seedCredits[accountID]; ok {
		credits = seed
	}
	for _, entry := range s.accountEntriesLocked(accountID) {
		if !include(entry) {
			continue
		}
		if entry.EntryType == entities.EntryTypeDebit {
			debits = debits.Add(entry.Amount)
		} else {
			credits = credits.Add(entry.Amount)
		}
	}
	return debits, credits, nil
}

func (s *stubLedgerStore) EntriesForAccountBetween(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]*entities.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matching := make([]*entities.LedgerEntry, 0)
	for _, entry := range s.accountEntriesLocked(accountID) {
		if entry.CreatedAt.Before(from) || entry.CreatedAt.After(to) {
			continue
		}
		matching = append(matching, entry)
	}
	return matching, nil
}

func (s *stubLedgerStore) accountEntriesLocked(accountID uuid.UUID) []*entities.LedgerEntry {
	matching := make([]*entities.LedgerEntry, 0)
	for _, entry := range s.entries {
		if entry.AccountID == accountID {
			matching = append(matching, entry)
		}
	}
	return matching
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// handlerStack wires real services over the in-memory stores, so
// handler tests cover the full request path below the router.
type handlerStack struct {
	accounts     *stubAccountStore
	ledger       *stubLedgerStore
	accountSvc   *account.Service
	transferSvc  *transfer.Service
	reportingSvc *reporting.Service
}

func newHandlerStack() *handlerStack {
	log := logger.NewNop()
	accounts := newStubAccountStore()
	ledger := newStubLedgerStore()

	balanceSvc := balance.NewService(ledger, log)
	accountSvc := account.NewService(accounts, balanceSvc, nil, 0, log)
	transferSvc := transfer.NewService(accounts, ledger, config.LedgerConfig{
		LockTimeout:        time.Second,
		TransferMaxRetries: 1,
		TransferRetryDelay: time.Millisecond,
	}, log)
	reportingSvc := reporting.NewService(accounts, ledger, balanceSvc, reporting.Config{}, log)

	return &handlerStack{
		accounts:     accounts,
		ledger:       ledger,
		accountSvc:   accountSvc,
		transferSvc:  transferSvc,
		reportingSvc: reportingSvc,
	}
}

func (s *handlerStack) addAccount(currency entities.Currency, accountType entities.AccountType, credits string) *entities.Account {
	account := &entities.Account{
		ID:        uuid.New(),
		Currency:  currency,
		Type:      accountType,
		CreatedAt: time.Now().UTC(),
	}
	s.accounts.add(account)
	if credits != "" {
		s.ledger.seed(account.ID, credits)
	}
	return account
}

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func performRequest(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func performRawRequest(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decodeJSON[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &out))
	return out
}

func errorBody(t *testing.T, recorder *httptest.ResponseRecorder) entities.ErrorResponse {
	return decodeJSON[entities.ErrorResponse](t, recorder)
}

func strPtr(s string) *string {
	return &s
}
