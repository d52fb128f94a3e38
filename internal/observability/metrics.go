// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Deployment metrics
	DeploymentsStarted   prometheus.Counter
	DeploymentsByOutcome *prometheus.CounterVec // network, state
	DeployDuration       *prometheus.HistogramVec
	InvalidSpecsRejected prometheus.Counter

	// Liquidity metrics
	PoolsCreated   *prometheus.CounterVec // network, venue
	PoolFailures   *prometheus.CounterVec // network
	PoolsUnlocked  prometheus.Counter
	PoolDuration   *prometheus.HistogramVec
	LockedPoolsNow prometheus.Gauge

	// Adapter metrics
	AdapterCallLatency *prometheus.HistogramVec // network, operation
	AdapterErrors      *prometheus.CounterVec   // network, class

	// Reconciler metrics
	VersionConflicts  prometheus.Counter
	AuditRecordsTotal *prometheus.CounterVec // type

	// Withdrawal metrics
	WithdrawalsTotal        *prometheus.CounterVec // provider
	UnauthorizedWithdrawals prometheus.Counter

	// Health metrics
	LastSuccessfulDeploy prometheus.Gauge
	UptimeSeconds        prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "token_launchpad"
	}

	return &Metrics{
		DeploymentsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deploy",
			Name:      "started_total",
			Help:      "Total number of deployment requests accepted",
		}),
		DeploymentsByOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deploy",
			Name:      "records_total",
			Help:      "Terminal deployment records by network and state",
		}, []string{"network", "state"}),
		DeployDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "deploy",
			Name:      "duration_seconds",
			Help:      "Per-network deployment duration",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"network"}),
		InvalidSpecsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deploy",
			Name:      "invalid_specs_total",
			Help:      "Total number of requests rejected at validation",
		}),

		PoolsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "liquidity",
			Name:      "pools_created_total",
			Help:      "Liquidity pools created by network and venue",
		}, []string{"network", "venue"}),
		PoolFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "liquidity",
			Name:      "pool_failures_total",
			Help:      "Failed pool creation attempts by network",
		}, []string{"network"}),
		PoolsUnlocked: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "liquidity",
			Name:      "pools_unlocked_total",
			Help:      "Pools transitioned to unlocked",
		}),
		PoolDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "liquidity",
			Name:      "pool_creation_duration_seconds",
			Help:      "Pool creation duration by network",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"network"}),
		LockedPoolsNow: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "liquidity",
			Name:      "locked_pools",
			Help:      "Number of pools currently locked",
		}),

		AdapterCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "adapter",
			Name:      "call_duration_seconds",
			Help:      "Adapter call latency by network and operation",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"network", "operation"}),
		AdapterErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "adapter",
			Name:      "errors_total",
			Help:      "Adapter errors by network and failure class",
		}, []string{"network", "class"}),

		VersionConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "version_conflicts_total",
			Help:      "Optimistic update conflicts resolved by re-reading",
		}),
		AuditRecordsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "audit_records_total",
			Help:      "Audit trail records appended by type",
		}, []string{"type"}),

		WithdrawalsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admin",
			Name:      "withdrawals_total",
			Help:      "Completed admin withdrawals by provider",
		}, []string{"provider"}),
		UnauthorizedWithdrawals: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admin",
			Name:      "unauthorized_withdrawals_total",
			Help:      "Withdrawal attempts rejected by the admin check",
		}),

		LastSuccessfulDeploy: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_deploy_timestamp",
			Help:      "Unix timestamp of the last fully deployed token",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordDeploymentStarted increments the accepted deployments counter.
func RecordDeploymentStarted() {
	DefaultMetrics.DeploymentsStarted.Inc()
}

// RecordDeploymentRecord counts a terminal deployment record.
func RecordDeploymentRecord(network, state string, durationSeconds float64) {
	DefaultMetrics.DeploymentsByOutcome.WithLabelValues(network, state).Inc()
	DefaultMetrics.DeployDuration.WithLabelValues(network).Observe(durationSeconds)
}

// RecordInvalidSpec increments the validation rejection counter.
func RecordInvalidSpec() {
	DefaultMetrics.InvalidSpecsRejected.Inc()
}

// RecordPoolCreated counts a successful pool creation.
func RecordPoolCreated(network, venue string) {
	DefaultMetrics.PoolsCreated.WithLabelValues(network, venue).Inc()
}

// RecordPoolFailure counts a failed pool creation attempt.
func RecordPoolFailure(network string) {
	DefaultMetrics.PoolFailures.WithLabelValues(network).Inc()
}

// RecordAdapterCall records adapter call latency and errors.
func RecordAdapterCall(network, operation string, seconds float64, errClass string) {
	DefaultMetrics.AdapterCallLatency.WithLabelValues(network, operation).Observe(seconds)
	if errClass != "" {
		DefaultMetrics.AdapterErrors.WithLabelValues(network, errClass).Inc()
	}
}

// RecordVersionConflict counts an optimistic update retry.
func RecordVersionConflict() {
	DefaultMetrics.VersionConflicts.Inc()
}

// RecordAuditRecord counts an appended audit record.
func RecordAuditRecord(recordType string) {
	DefaultMetrics.AuditRecordsTotal.WithLabelValues(recordType).Inc()
}

// RecordWithdrawal counts a completed admin withdrawal.
func RecordWithdrawal(provider string) {
	DefaultMetrics.WithdrawalsTotal.WithLabelValues(provider).Inc()
}

// RecordUnauthorizedWithdrawal counts a rejected withdrawal attempt.
func RecordUnauthorizedWithdrawal() {
	DefaultMetrics.UnauthorizedWithdrawals.Inc()
}
