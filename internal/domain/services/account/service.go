// Package account manages wallet accounts. Accounts are immutable rows
// carrying a currency and a kind; their balances live entirely in the
// ledger and are served through the balance deriver.
package account

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledger-service/ledger_service/internal/domain/entities"
	apperrors "github.com/ledger-service/ledger_service/internal/domain/errors"
	"github.com/ledger-service/ledger_service/internal/infrastructure/cache"
	"github.com/ledger-service/ledger_service/pkg/logger"
	"github.com/ledger-service/ledger_service/pkg/metrics"
)

const cacheKeyPrefix = "account:"

// AccountStore is the slice of the account repository the service needs
type AccountStore interface {
	InsertAccount(ctx context.Context, account *entities.Account) error
	GetAccountByID(ctx context.Context, accountID uuid.UUID) (*entities.Account, error)
	AccountExists(ctx context.Context, accountID uuid.UUID) (bool, error)
}

// BalanceDeriver computes derived balances for the balance endpoint
type BalanceDeriver interface {
	Balance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
}

// Service handles account creation and reads. Reads go through a Redis
// cache when one is configured; account rows never change after insert,
// so cached copies cannot go stale.
type Service struct {
	accounts AccountStore
	deriver  BalanceDeriver
	cache    cache.RedisClient
	cacheTTL time.Duration
	logger   *logger.Logger
}

// NewService creates a new account service. The redis client may be nil,
// in which case every read goes to the database.
func NewService(accounts AccountStore, deriver BalanceDeriver, redis cache.RedisClient, cacheTTL time.Duration, logger *logger.Logger) *Service {
	return &Service{
		accounts: accounts,
		deriver:  deriver,
		cache:    redis,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Create validates and persists a new account
func (s *Service) Create(ctx context.Context, currency entities.Currency, accountType entities.AccountType) (*entities.Account, error) {
	if err := currency.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	if err := accountType.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}

	account := &entities.Account{
		ID:       uuid.New(),
		Currency: currency,
		Type:     accountType,
	}

	if err := s.accounts.InsertAccount(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("Account created",
		"account_id", account.ID,
		"currency", account.Currency,
		"account_type", account.Type)

	return account, nil
}

// Get retrieves an account, serving from the cache when possible. Cache
// failures are logged and fall through to the database; a broken Redis
// never fails a read.
func (s *Service) Get(ctx context.Context, accountID uuid.UUID) (*entities.Account, error) {
	if s.cache != nil {
		var cached entities.Account
		err := s.cache.Get(ctx, cacheKey(accountID), &cached)
		if err == nil {
			metrics.AccountCacheTotal.WithLabelValues("hit").Inc()
			return &cached, nil
		}
		if !cache.IsMiss(err) {
			s.logger.Warn("Account cache read failed", "account_id", accountID, "error", err)
		}
		metrics.AccountCacheTotal.WithLabelValues("miss").Inc()
	}

	account, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey(accountID), account, s.cacheTTL); err != nil {
			s.logger.Warn("Account cache write failed", "account_id", accountID, "error", err)
		}
	}

	return account, nil
}

// Exists reports whether an account row exists
func (s *Service) Exists(ctx context.Context, accountID uuid.UUID) (bool, error) {
	if s.cache != nil {
		if exists, err := s.cache.Exists(ctx, cacheKey(accountID)); err == nil && exists {
			return true, nil
		}
	}
	return s.accounts.AccountExists(ctx, accountID)
}

// GetBalance resolves the account and pairs it with its derived balance
func (s *Service) GetBalance(ctx context.Context, accountID uuid.UUID) (*entities.BalanceResponse, error) {
	account, err := s.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	balance, err := s.deriver.Balance(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return &entities.BalanceResponse{
		AccountID: account.ID,
		Currency:  account.Currency,
		Balance:   balance,
		Timestamp: time.Now().UTC(),
	}, nil
}

func cacheKey(accountID uuid.UUID) string {
	return cacheKeyPrefix + accountID.String()
}
