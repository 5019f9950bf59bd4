package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "babelbridge_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "babelbridge_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.ExponentialBuckets(0.005, 4, 10),
		},
		[]string{"method", "route"},
	)

	TranslationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "babelbridge_translations_total",
			Help: "Translation jobs by model tier and outcome",
		},
		[]string{"model", "outcome"},
	)

	TranslationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "babelbridge_translation_duration_seconds",
			Help:    "Wall time of the external translation command",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600, 7200},
		},
		[]string{"model"},
	)

	TranslationsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "babelbridge_translations_in_flight",
			Help: "Translation commands currently running",
		},
	)

	UploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "babelbridge_upload_bytes",
			Help:    "Size of staged uploads",
			Buckets: prometheus.ExponentialBuckets(64*1024, 4, 8),
		},
	)
)

// Outcome labels for TranslationsTotal.
const (
	OutcomeSuccess      = "success"
	OutcomeToolFailure  = "tool_failure"
	OutcomeNoOutput     = "no_output"
	OutcomeTimeout      = "timeout"
	OutcomeRejected     = "rejected"
	OutcomeCancelled    = "cancelled"
	OutcomeInternalFail = "internal_error"
)

// PoolStats is the occupancy view of the worker pool.
type PoolStats interface {
	Running() int
	Pending() int
}

// RegisterPool exposes worker pool occupancy as gauges on reg.
func RegisterPool(reg prometheus.Registerer, p PoolStats) {
	factory := promauto.With(reg)
	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "babelbridge_pool_running_jobs",
			Help: "Jobs holding a worker slot",
		},
		func() float64 { return float64(p.Running()) },
	)
	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "babelbridge_pool_pending_jobs",
			Help: "Admitted jobs waiting for a worker slot",
		},
		func() float64 { return float64(p.Pending()) },
	)
}
