// Package metrics registers the service's Prometheus collectors. All
// collectors are registered on the default registry and served by the
// /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts processed HTTP requests by method, route
	// and status code
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_http_requests_total",
		Help: "Total HTTP requests processed, by method, route and status code",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration observes request latency by method and route
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_http_request_duration_seconds",
		Help:    "HTTP request latency distribution",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// DatabaseConnectionsGauge tracks connection pool state, labelled
	// open, idle or in_use
	DatabaseConnectionsGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ledger_database_connections",
		Help: "Database connection pool state",
	}, []string{"state"})

	// TransfersTotal counts posted transfers by transaction type and outcome
	TransfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_transfers_total",
		Help: "Transfer attempts by transaction type and outcome",
	}, []string{"type", "outcome"})

	// TransferRetriesTotal counts transfer attempts retried after a
	// transient locking failure
	TransferRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_transfer_lock_retries_total",
		Help: "Transfer attempts retried after a transient locking failure",
	})

	// IdempotentReplaysTotal counts transfers answered from an existing
	// transaction with the same reference
	IdempotentReplaysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_idempotent_replays_total",
		Help: "Transfers short-circuited by an already-used reference",
	})

	// VerificationFailuresGauge reports inconsistencies found by the
	// last ledger sweep, labelled by check
	VerificationFailuresGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ledger_verification_failures",
		Help: "Inconsistencies found by the last ledger sweep, by check",
	}, []string{"check"})

	// AccountCacheTotal counts account cache lookups by result (hit or miss)
	AccountCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_account_cache_requests_total",
		Help: "Account cache lookups by result",
	}, []string{"result"})
)
