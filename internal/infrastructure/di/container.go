// Package di wires repositories and services together for the HTTP
// layer and workers.
package di

import (
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/ledger-service/ledger_service/internal/domain/services/account"
	"github.com/ledger-service/ledger_service/internal/domain/services/balance"
	"github.com/ledger-service/ledger_service/internal/domain/services/reporting"
	"github.com/ledger-service/ledger_service/internal/domain/services/transfer"
	"github.com/ledger-service/ledger_service/internal/domain/services/verification"
	"github.com/ledger-service/ledger_service/internal/infrastructure/cache"
	"github.com/ledger-service/ledger_service/internal/infrastructure/config"
	"github.com/ledger-service/ledger_service/internal/infrastructure/repositories"
	"github.com/ledger-service/ledger_service/pkg/logger"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	DB     *sql.DB
	Logger *logger.Logger
	Cache  cache.RedisClient

	accountRepo *repositories.AccountRepository
	ledgerRepo  *repositories.LedgerRepository

	balanceService      *balance.Service
	accountService      *account.Service
	transferService     *transfer.Service
	reportingService    *reporting.Service
	verificationService *verification.Service
}

// NewContainer creates the dependency container. Redis is optional: when
// disabled or unreachable the account cache is skipped and every read
// goes to the database.
func NewContainer(cfg *config.Config, db *sql.DB, log *logger.Logger) (*Container, error) {
	// Wrap sql.DB with sqlx for the repositories
	sqlxDB := sqlx.NewDb(db, "postgres")

	c := &Container{
		Config: cfg,
		DB:     db,
		Logger: log,
	}

	if cfg.Redis.Enabled {
		client, err := cache.NewRedisClient(&cfg.Redis, log.Zap())
		if err != nil {
			log.Warn("Redis unavailable, account cache disabled", "error", err)
		} else {
			c.Cache = client
		}
	}

	c.accountRepo = repositories.NewAccountRepository(sqlxDB)
	c.ledgerRepo = repositories.NewLedgerRepository(sqlxDB)

	c.balanceService = balance.NewService(c.ledgerRepo, log)
	c.accountService = account.NewService(c.accountRepo, c.balanceService, c.Cache, cfg.Ledger.AccountCacheTTL, log)
	c.transferService = transfer.NewService(c.accountRepo, c.ledgerRepo, cfg.Ledger, log)
	c.reportingService = reporting.NewService(c.accountRepo, c.ledgerRepo, c.balanceService, reporting.Config{
		DefaultPageSize: cfg.Ledger.DefaultPageSize,
		MaxPageSize:     cfg.Ledger.MaxPageSize,
	}, log)
	c.verificationService = verification.NewService(c.ledgerRepo, log)

	return c, nil
}

// GetAccountService returns the account service
func (c *Container) GetAccountService() *account.Service {
	return c.accountService
}

// GetBalanceService returns the balance deriver
func (c *Container) GetBalanceService() *balance.Service {
	return c.balanceService
}

// GetTransferService returns the transfer engine
func (c *Container) GetTransferService() *transfer.Service {
	return c.transferService
}

// GetReportingService returns the reporting service
func (c *Container) GetReportingService() *reporting.Service {
	return c.reportingService
}

// GetVerificationService returns the ledger verification service
func (c *Container) GetVerificationService() *verification.Service {
	return c.verificationService
}

// Close releases resources held by the container
func (c *Container) Close() error {
	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil {
			c.Logger.Warn("Failed to close Redis client", "error", err)
		}
	}
	return nil
}
