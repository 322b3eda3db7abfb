package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ripline_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ripline_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ripline_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Pipeline metrics
var (
	JobsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ripline_jobs_in_flight",
			Help: "Number of pipeline jobs currently running",
		},
	)

	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ripline_jobs_total",
			Help: "Total number of finished pipeline jobs",
		},
		[]string{"media_kind", "status"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ripline_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: []float64{1, 10, 30, 60, 300, 600, 1200, 1800, 3600, 7200, 14400},
		},
		[]string{"stage", "outcome"},
	)

	StageErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ripline_stage_errors_total",
			Help: "Total number of stage failures by error kind",
		},
		[]string{"stage", "kind"},
	)

	CancellationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ripline_cancellations_total",
			Help: "Total number of jobs cancelled by the client",
		},
	)
)

// ObserveStage records how long a stage ran and how it ended.
func ObserveStage(stage, outcome string, elapsed time.Duration) {
	StageDuration.WithLabelValues(stage, outcome).Observe(elapsed.Seconds())
}
