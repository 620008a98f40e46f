// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	LenderEvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lender_evaluations_total",
			Help: "Total per-lender evaluations by outcome (rich, fallback, cached)",
		},
		[]string{"outcome"},
	)

	EvaluationFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evaluation_fallbacks_total",
			Help: "Rule-based fallbacks by reason (assessor_error, malformed_response)",
		},
		[]string{"reason"},
	)

	MatchBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "match_batch_duration_seconds",
			Help:    "Duration of a full matching run across all lenders",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	EvaluationsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lender_evaluations_in_flight",
			Help: "Number of lender evaluations currently executing",
		},
	)
)
