// Package metrics exposes Prometheus instrumentation for pipeline
// stages and the sharing facade.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StageRuns counts stage executions by outcome.
	StageRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scout_etl_stage_runs_total",
		Help: "Total number of stage runs by stage and status",
	}, []string{"stage", "status"})

	// StageDuration observes wall-clock time per stage.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scout_etl_stage_duration_seconds",
		Help:    "Duration of pipeline stages",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
	}, []string{"stage"})

	// RowsWritten counts rows written per layer table.
	RowsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scout_etl_rows_written_total",
		Help: "Total rows written per layer",
	}, []string{"layer"})

	// ShareRequests counts sharing facade requests by route and status code.
	ShareRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scout_share_requests_total",
		Help: "Total sharing facade requests by route and status",
	}, []string{"route", "status"})
)
