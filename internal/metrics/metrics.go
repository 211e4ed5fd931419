// Package metrics exposes Prometheus collectors for ingestion and payment closing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Statements processed partitioned by carrier and outcome (processed, mismatch, failed)
	ImportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commission_imports_total",
			Help: "Carrier statements ingested",
		},
		[]string{"insurer", "result"},
	)

	// Rows routed by the matcher partitioned by carrier and status
	ImportRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commission_import_rows_total",
			Help: "Commission rows ingested by routing status",
		},
		[]string{"insurer", "status"},
	)

	// Time spent extracting and parsing a statement
	ParseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "commission_parse_duration_seconds",
			Help:    "Extraction plus parsing latency per statement",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 180},
		},
		[]string{"insurer"},
	)

	// Fortnight close attempts partitioned by result (paid, rejected, failed)
	FortnightCloses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fortnight_close_total",
			Help: "Fortnight close attempts",
		},
		[]string{"result"},
	)

	// Reverts of advance discounts partitioned by result (reverted, blocked)
	AdvanceReverts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advance_revert_total",
			Help: "Advance discount revert attempts",
		},
		[]string{"result"},
	)
)

// Background job executions partitioned by job name and result (ok, failed, panic)
var JobRuns = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "background_job_runs_total",
		Help: "Background job executions",
	},
	[]string{"job", "result"},
)
