package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ledger-service/ledger_service/internal/api/routes"
	"github.com/ledger-service/ledger_service/internal/infrastructure/config"
	"github.com/ledger-service/ledger_service/internal/infrastructure/database"
	"github.com/ledger-service/ledger_service/internal/infrastructure/di"
	"github.com/ledger-service/ledger_service/internal/workers/ledger_verifier"
	"github.com/ledger-service/ledger_service/pkg/graceful"
	"github.com/ledger-service/ledger_service/pkg/logger"
	"github.com/ledger-service/ledger_service/pkg/metrics"
	"github.com/ledger-service/ledger_service/pkg/tracing"

	"github.com/gin-gonic/gin"
)

// @title Wallet Ledger Service API
// @version 1.0
// @description Double-entry wallet ledger: accounts, transfers, derived balances, statements.

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api/v1

// verifierShutdowner adapts the cron worker to the shutdown manager
type verifierShutdowner struct {
	worker *ledger_verifier.Worker
}

func (s verifierShutdowner) Shutdown(time.Duration) error {
	s.worker.Stop()
	return nil
}

// containerShutdowner releases container resources on shutdown
type containerShutdowner struct {
	container *di.Container
}

func (s containerShutdowner) Shutdown(time.Duration) error {
	return s.container.Close()
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel, cfg.Environment)
	defer log.Sync()

	// Initialize OpenTelemetry tracing
	tracingConfig := tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		CollectorURL: cfg.Tracing.CollectorURL,
		Environment:  cfg.Environment,
		SampleRate:   cfg.Tracing.SampleRate,
		Insecure:     cfg.Tracing.Insecure,
	}

	tracingShutdown, err := tracing.InitTracer(context.Background(), tracingConfig, log.Zap())
	if err != nil {
		log.Fatal("Failed to initialize tracing", "error", err)
	}
	defer tracingShutdown(context.Background())

	// Initialize database
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}

	// Run migrations
	if err := database.RunMigrations(cfg.Database.URL); err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Build dependency injection container
	container, err := di.NewContainer(cfg, db, log)
	if err != nil {
		log.Fatal("Failed to create DI container", "error", err)
	}

	// Initialize router with DI container
	router := routes.SetupRoutes(container)

	// Start the ledger verification worker
	var verifier *ledger_verifier.Worker
	if cfg.Workers.VerifierEnabled {
		verifier = ledger_verifier.NewWorker(
			container.GetVerificationService(),
			cfg.Workers.VerifierSchedule,
			log.Zap(),
		)
		if err := verifier.Start(); err != nil {
			log.Fatal("Failed to start ledger verifier", "error", err)
		}
	} else {
		log.Info("Ledger verifier disabled in configuration")
	}

	// Create server
	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	// Start server in goroutine
	go func() {
		log.Info("Starting server",
			"port", cfg.Server.Port,
			"environment", cfg.Environment,
			"read_timeout", cfg.Server.ReadTimeout,
			"write_timeout", cfg.Server.WriteTimeout,
		)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	// Publish database pool stats
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			stats := db.Stats()
			metrics.DatabaseConnectionsGauge.WithLabelValues("open").Set(float64(stats.OpenConnections))
			metrics.DatabaseConnectionsGauge.WithLabelValues("idle").Set(float64(stats.Idle))
			metrics.DatabaseConnectionsGauge.WithLabelValues("in_use").Set(float64(stats.InUse))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	shutdown := graceful.NewShutdownManager(server, db, log)
	if verifier != nil {
		shutdown.Register(verifierShutdowner{worker: verifier})
	}
	shutdown.Register(containerShutdowner{container: container})
	shutdown.WaitForShutdown()
}
