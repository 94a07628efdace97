package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Execution metrics
	executionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentexec_executions_total",
			Help: "Total number of agent executions",
		},
		[]string{"agent", "status"},
	)

	executionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentexec_execution_duration_seconds",
			Help:    "Agent execution duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"agent"},
	)

	activeExecutions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "agentexec_active_executions",
			Help: "Number of executions currently in flight",
		},
	)

	// Attempt metrics
	attemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentexec_attempts_total",
			Help: "Total number of provider attempts",
		},
		[]string{"provider", "status"},
	)

	attemptDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentexec_attempt_duration_seconds",
			Help:    "Provider attempt duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// Provider health metrics
	providerAvailable = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "agentexec_provider_available",
			Help: "Provider availability (1 = available, 0 = unavailable)",
		},
		[]string{"provider"},
	)

	providerErrorCount = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "agentexec_provider_error_count",
			Help: "Consecutive error count per provider",
		},
		[]string{"provider"},
	)

	initOnce sync.Once
)

// InitMetrics registers the engine's Prometheus metrics. Idempotent.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			executionsTotal,
			executionDuration,
			activeExecutions,
			attemptsTotal,
			attemptDuration,
			providerAvailable,
			providerErrorCount,
		)
	})
}

// MetricsHandler returns an HTTP handler for Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordExecution records the outcome of one logical execution.
func RecordExecution(agent, status string, duration time.Duration) {
	executionsTotal.WithLabelValues(agent, status).Inc()
	executionDuration.WithLabelValues(agent).Observe(duration.Seconds())
}

// RecordAttempt records the outcome of one provider attempt.
func RecordAttempt(provider, status string, duration time.Duration) {
	attemptsTotal.WithLabelValues(provider, status).Inc()
	attemptDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// SetActiveExecutions sets the in-flight executions gauge.
func SetActiveExecutions(count int) {
	activeExecutions.Set(float64(count))
}

// SetProviderHealth updates the per-provider health gauges.
func SetProviderHealth(provider string, available bool, errorCount int) {
	v := 0.0
	if available {
		v = 1.0
	}
	providerAvailable.WithLabelValues(provider).Set(v)
	providerErrorCount.WithLabelValues(provider).Set(float64(errorCount))
}
