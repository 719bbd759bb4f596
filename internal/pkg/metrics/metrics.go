// Package metrics defines and registers the custom Prometheus metrics of the
// road damage portal. Metrics are registered with the default registry on
// package init (promauto) and exposed by the router at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "roaddamage"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// LoginAttemptsTotal counts login outcomes.
// Label:
//   - result: "success" or "invalid_credentials"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// TokenChecksTotal counts auth gate decisions.
// Label:
//   - result: "missing", "invalid", "revoked" or "valid"
var TokenChecksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_checks_total",
		Help:      "Total number of bearer token checks performed by the auth gate.",
	},
	[]string{"result"},
)

// SeedAccountsTotal counts bootstrap seeding outcomes per account.
// Label:
//   - result: "created", "skipped" or "failed"
var SeedAccountsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "seed_accounts_total",
		Help:      "Default accounts processed by the bootstrap seeder, by result.",
	},
	[]string{"result"},
)

// ── Damage metrics ────────────────────────────────────────────────────────────

// DamagesCreatedTotal counts stored damage reports.
// Label:
//   - severity: Low, Medium, High or Critical
var DamagesCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "damages_created_total",
		Help:      "Total number of damage reports stored, by severity.",
	},
	[]string{"severity"},
)

// IngestErrorsTotal counts batch-ingested reports that could not be stored.
var IngestErrorsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingest_errors_total",
		Help:      "Total number of queued damage reports that failed to persist.",
	},
)

// IngestQueueDepth tracks pending reports in each ingestion worker channel.
// Label:
//   - worker_id: numeric worker index
var IngestQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ingest_queue_depth",
		Help:      "Current number of damage reports pending in each ingestion worker channel.",
	},
	[]string{"worker_id"},
)

// ── HTTP metrics ──────────────────────────────────────────────────────────────

// HTTPRequestDuration measures request latency.
// Labels:
//   - method, route (echo path template), status (status code)
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests by method, route and status.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route", "status"},
)
