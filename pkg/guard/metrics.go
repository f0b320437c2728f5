package guard

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"docforge-hq/sentinel/pkg/guard/breaker"
)

// Metrics contains Prometheus metrics for the execution guard.
type Metrics struct {
	// Guarded runs by outcome
	runs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec

	// Budget enforcement
	budgetRejections *prometheus.CounterVec
	spendRecorded    *prometheus.CounterVec

	// Circuit breakers
	breakerState *prometheus.GaugeVec

	// Fallback queue
	queueDepth *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance with Prometheus collectors.
// Call it at most once per process: collectors register themselves with
// the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		runs: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentinel_guard_runs_total",
				Help: "Total number of guarded runs by outcome",
			},
			[]string{"service", "outcome"},
		),

		runDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sentinel_guard_run_duration_seconds",
				Help:    "Duration of guarded runs in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to 16s
			},
			[]string{"service"},
		),

		budgetRejections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentinel_guard_budget_rejections_total",
				Help: "Total number of runs rejected by a budget cap",
			},
			[]string{"service", "window"},
		),

		spendRecorded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentinel_guard_spend_usd_total",
				Help: "Total recorded spend in USD",
			},
			[]string{"service"},
		),

		breakerState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sentinel_guard_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=half_open, 2=open)",
			},
			[]string{"service"},
		),

		queueDepth: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sentinel_guard_queue_jobs",
				Help: "Fallback queue job counts by status",
			},
			[]string{"status"},
		),
	}
}

// RecordRun records a guarded run's outcome and duration.
func (m *Metrics) RecordRun(service, outcome string, seconds float64) {
	m.runs.WithLabelValues(service, outcome).Inc()
	m.runDuration.WithLabelValues(service).Observe(seconds)
}

// RecordBudgetRejection records a run rejected by a budget cap.
func (m *Metrics) RecordBudgetRejection(service, window string) {
	m.budgetRejections.WithLabelValues(service, window).Inc()
}

// RecordSpend adds recorded spend for a service.
func (m *Metrics) RecordSpend(service string, usd float64) {
	m.spendRecorded.WithLabelValues(service).Add(usd)
}

// UpdateBreakerState updates a service's breaker state gauge.
func (m *Metrics) UpdateBreakerState(service string, state breaker.State) {
	var v float64
	switch state {
	case breaker.StateHalfOpen:
		v = 1
	case breaker.StateOpen:
		v = 2
	}
	m.breakerState.WithLabelValues(service).Set(v)
}

// UpdateQueueDepth updates the queue depth gauge for one status.
func (m *Metrics) UpdateQueueDepth(status string, count int64) {
	m.queueDepth.WithLabelValues(status).Set(float64(count))
}
