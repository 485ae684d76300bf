// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueriesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copilot_queries_processed_total",
			Help: "Total number of pipeline requests by outcome",
		},
		[]string{"outcome"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "copilot_stage_duration_seconds",
			Help: "Duration of each pipeline stage in seconds",
		},
		[]string{"stage"},
	)

	ValidationRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copilot_validation_rejections_total",
			Help: "Queries rejected by the safety validator, by reason",
		},
		[]string{"reason"},
	)

	SynthesisFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copilot_synthesis_fallbacks_total",
			Help: "Generative-path failures recovered by the rule-based fallback",
		},
		[]string{"cause"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copilot_cache_lookups_total",
			Help: "Result cache lookups by outcome (hit, miss, error)",
		},
		[]string{"outcome"},
	)

	QueryExecutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "copilot_query_execution_seconds",
			Help:    "Duration of SQL execution against the store",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
	)

	QueryExecutionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copilot_query_execution_failures_total",
			Help: "SQL execution failures by kind (timeout, transient, permanent)",
		},
		[]string{"kind"},
	)

	RowsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "copilot_rows_returned",
			Help:    "Row counts of accepted query results",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)
)
