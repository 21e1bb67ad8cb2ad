package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Status label values shared by the domain counters.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Ingestion metrics.
var (
	IngestTasksSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cmsdex",
			Name:      "ingest_tasks_submitted_total",
			Help:      "Day tasks offered to the ingestion queue",
		},
		[]string{"status"},
	)

	IngestQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cmsdex",
			Name:      "ingest_queue_depth",
			Help:      "Pending day tasks observed by the worker",
		},
	)

	WorkerTasksProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cmsdex",
			Name:      "worker_tasks_processed_total",
			Help:      "Day tasks processed by the ingestion worker",
		},
		[]string{"status"},
	)

	WorkerRecordsUpserted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cmsdex",
			Name:      "worker_records_upserted_total",
			Help:      "CMS records written to the index",
		},
	)
)

// Search metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cmsdex",
			Name:      "search_requests_total",
			Help:      "Keyword searches sent to the index",
		},
		[]string{"status"},
	)

	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "cmsdex",
			Name:      "search_duration_seconds",
			Help:      "Keyword search duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)
)

// Export metrics.
var (
	ExportRowsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cmsdex",
			Name:      "export_rows_total",
			Help:      "Data rows written to spreadsheet exports",
		},
	)

	ExportBuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cmsdex",
			Name:      "export_builds_total",
			Help:      "Spreadsheet export builds",
		},
		[]string{"status"},
	)
)

var registerOnce sync.Once

// RegisterDomainMetrics registers ingestion, search and export metrics. Safe to call more than once.
func RegisterDomainMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			IngestTasksSubmitted,
			IngestQueueDepth,
			WorkerTasksProcessed,
			WorkerRecordsUpserted,
			SearchRequestsTotal,
			SearchDuration,
			ExportRowsTotal,
			ExportBuildsTotal,
		)
	})
}

// StatusLabel maps an error to the status label value.
func StatusLabel(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}
