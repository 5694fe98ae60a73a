package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledger-service/ledger_service/internal/domain/entities"
	apperrors "github.com/ledger-service/ledger_service/internal/domain/errors"
	"github.com/ledger-service/ledger_service/internal/infrastructure/cache"
	"github.com/ledger-service/ledger_service/pkg/logger"
)

type mockAccountStore struct {
	accounts map[uuid.UUID]*entities.Account
	inserted []*entities.Account
	getCalls int
}

func newMockAccountStore(accounts ...*entities.Account) *mockAccountStore {
	store := &mockAccountStore{accounts: make(map[uuid.UUID]*entities.Account)}
	for _, account := range accounts {
		store.accounts[account.ID] = account
	}
	return store
}

func (m *mockAccountStore) InsertAccount(ctx context.Context, account *entities.Account) error {
	m.inserted = append(m.inserted, account)
	m.accounts[account.ID] = account
	return nil
}

func (m *mockAccountStore) GetAccountByID(ctx context.Context, accountID uuid.UUID) (*entities.Account, error) {
	m.getCalls++
	if account, ok := m.accounts[accountID]; ok {
		return account, nil
	}
	return nil, fmt.Errorf("%w: %s", apperrors.ErrAccountNotFound, accountID)
}

func (m *mockAccountStore) AccountExists(ctx context.Context, accountID uuid.UUID) (bool, error) {
	_, ok := m.accounts[accountID]
	return ok, nil
}

type mockDeriver struct {
	balance decimal.Decimal
	err     error
}

func (m *mockDeriver) Balance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	return m.balance, m.err
}

// mockCache is an in-memory stand-in for the Redis client. Values round
// trip through JSON the way the real client stores them.
type mockCache struct {
	data   map[string][]byte
	getErr error
	setErr error
	sets   []string
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (m *mockCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	m.sets = append(m.sets, key)
	return nil
}

func (m *mockCache) Get(ctx context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.data[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mockCache) Del(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *mockCache) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.data[key]
	return ok, nil
}

func (m *mockCache) Incr(ctx context.Context, key string) (int64, error) { return 0, nil }

func (m *mockCache) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return nil
}

func (m *mockCache) Ping(ctx context.Context) error { return nil }

func (m *mockCache) Close() error { return nil }

func (m *mockCache) Client() *redis.Client { return nil }

func eurAccount() *entities.Account {
	return &entities.Account{
		ID:        uuid.New(),
		Currency:  entities.CurrencyEUR,
		Type:      entities.AccountTypeMain,
		CreatedAt: time.Now().UTC(),
	}
}

func TestCreate(t *testing.T) {
	store := newMockAccountStore()
	svc := NewService(store, &mockDeriver{}, nil, 0, logger.NewNop())

	account, err := svc.Create(context.Background(), entities.CurrencyEUR, entities.AccountTypeMain)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, account.ID)
	assert.Equal(t, entities.CurrencyEUR, account.Currency)
	assert.Equal(t, entities.AccountTypeMain, account.Type)
	require.Len(t, store.inserted, 1)
}

func TestCreate_RejectsInvalidInput(t *testing.T) {
	store := newMockAccountStore()
	svc := NewService(store, &mockDeriver{}, nil, 0, logger.NewNop())

	_, err := svc.Create(context.Background(), entities.Currency("JPY"), entities.AccountTypeMain)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = svc.Create(context.Background(), entities.CurrencyEUR, entities.AccountType("SAVINGS"))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	assert.Empty(t, store.inserted, "invalid accounts must never reach the store")
}

func TestGet_WithoutCache(t *testing.T) {
	account := eurAccount()
	store := newMockAccountStore(account)
	svc := NewService(store, &mockDeriver{}, nil, 0, logger.NewNop())

	found, err := svc.Get(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, account.ID, found.ID)
	assert.Equal(t, 1, store.getCalls)
}

func TestGet_CacheMissFillsCache(t *testing.T) {
	account := eurAccount()
	store := newMockAccountStore(account)
	redisMock := newMockCache()
	svc := NewService(store, &mockDeriver{}, redisMock, 5*time.Minute, logger.NewNop())

	found, err := svc.Get(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, account.ID, found.ID)
	assert.Equal(t, 1, store.getCalls)
	assert.Contains(t, redisMock.sets, "account:"+account.ID.String())

	// Second read is served from the cache
	cached, err := svc.Get(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, account.ID, cached.ID)
	assert.Equal(t, account.Currency, cached.Currency)
	assert.Equal(t, 1, store.getCalls, "a cache hit must not touch the database")
}

func TestGet_BrokenCacheFallsThrough(t *testing.T) {
	account := eurAccount()
	store := newMockAccountStore(account)
	redisMock := newMockCache()
	redisMock.getErr = errors.New("connection refused")
	redisMock.setErr = errors.New("connection refused")
	svc := NewService(store, &mockDeriver{}, redisMock, 5*time.Minute, logger.NewNop())

	found, err := svc.Get(context.Background(), account.ID)
	require.NoError(t, err, "a broken cache must never fail a read")
	assert.Equal(t, account.ID, found.ID)
	assert.Equal(t, 1, store.getCalls)
}

func TestGet_UnknownAccount(t *testing.T) {
	svc := NewService(newMockAccountStore(), &mockDeriver{}, nil, 0, logger.NewNop())

	_, err := svc.Get(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.IsAccountNotFound(err))
}

func TestExists(t *testing.T) {
	account := eurAccount()
	store := newMockAccountStore(account)
	svc := NewService(store, &mockDeriver{}, nil, 0, logger.NewNop())

	exists, err := svc.Exists(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = svc.Exists(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGetBalance(t *testing.T) {
	account := eurAccount()
	store := newMockAccountStore(account)
	deriver := &mockDeriver{balance: decimal.RequireFromString("250.75")}
	svc := NewService(store, deriver, nil, 0, logger.NewNop())

	response, err := svc.GetBalance(context.Background(), account.ID)
	require.NoError(t, err)

	assert.Equal(t, account.ID, response.AccountID)
	assert.Equal(t, entities.CurrencyEUR, response.Currency)
	assert.True(t, response.Balance.Equal(decimal.RequireFromString("250.75")))
	assert.False(t, response.Timestamp.IsZero())
}

func TestGetBalance_DeriverError(t *testing.T) {
	account := eurAccount()
	store := newMockAccountStore(account)
	deriver := &mockDeriver{err: fmt.Errorf("%w: sum query", apperrors.ErrStoreIO)}
	svc := NewService(store, deriver, nil, 0, logger.NewNop())

	_, err := svc.GetBalance(context.Background(), account.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStoreIO)
}
