package routes

import (
	"github.com/ledger-service/ledger_service/internal/api/handlers"
	"github.com/ledger-service/ledger_service/internal/api/middleware"
	"github.com/ledger-service/ledger_service/internal/infrastructure/di"
	"github.com/ledger-service/ledger_service/pkg/tracing"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SetupRoutes configures all application routes
func SetupRoutes(container *di.Container) *gin.Engine {
	router := gin.New()

	// Global middleware - order matters
	router.Use(tracing.HTTPMiddleware()) // Tracing should be early in the chain
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestSizeLimit())
	router.Use(middleware.Logger(container.Logger))
	router.Use(middleware.Recovery(container.Logger))
	router.Use(middleware.CORS(container.Config.Server.AllowedOrigins))
	router.Use(middleware.RateLimit(container.Config.Server.RateLimitPerMin))
	router.Use(middleware.SecurityHeaders())

	// Initialize handlers with services from DI container
	coreHandlers := handlers.NewCoreHandlers(container.DB, container.Cache, container.Logger)
	accountHandlers := handlers.NewAccountHandlers(
		container.GetAccountService(),
		container.GetReportingService(),
		container.Logger,
	)
	transferHandlers := handlers.NewTransferHandlers(
		container.GetTransferService(),
		container.GetAccountService(),
		container.Logger,
	)
	transactionHandlers := handlers.NewTransactionHandlers(container.GetReportingService(), container.Logger)
	reportHandlers := handlers.NewReportHandlers(container.GetReportingService(), container.Logger)

	// Health checks and metrics live outside the versioned API
	router.GET("/health", coreHandlers.Health)
	router.GET("/ready", coreHandlers.Ready)
	router.GET("/live", coreHandlers.Live)
	router.GET("/version", coreHandlers.Version)
	router.GET("/metrics", coreHandlers.Metrics)

	// Swagger documentation (development only)
	if !container.Config.IsProduction() {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		accounts := v1.Group("/accounts")
		{
			accounts.POST("", accountHandlers.CreateAccount)
			accounts.GET("/:id", accountHandlers.GetAccount)
			accounts.GET("/:id/balance", accountHandlers.GetBalance)
			accounts.GET("/:id/transactions", accountHandlers.GetAccountTransactions)
			accounts.GET("/:id/ledger-entries", accountHandlers.GetAccountEntries)
		}

		v1.POST("/transfers", transferHandlers.CreateTransfer)

		transactions := v1.Group("/transactions")
		{
			transactions.GET("/reference/:ref", transactionHandlers.GetTransactionByReference)
			transactions.GET("/:id/ledger-entries", transactionHandlers.GetTransactionEntries)
		}

		reports := v1.Group("/reports")
		{
			reports.GET("/transactions/:id", reportHandlers.GetTransactionHistory)
			reports.GET("/accounts/:id/ledger", reportHandlers.GetAccountLedger)
			reports.GET("/accounts/:id/statement", reportHandlers.GetAccountStatement)
		}
	}

	return router
}
