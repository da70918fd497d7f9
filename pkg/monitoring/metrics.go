package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Service name for metrics
	ServiceName = "osmdelta"
)

var (
	// Merge metrics
	MergesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osmdelta_merges_total",
			Help: "Total number of pairwise feature change merges",
		},
		[]string{"kind", "change_type", "status"},
	)

	MergeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "osmdelta_merge_duration_seconds",
			Help:    "Pairwise merge duration in seconds",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
		[]string{"kind"},
	)

	MergeConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osmdelta_merge_conflicts_total",
			Help: "Total number of field conflicts raised while merging",
		},
		[]string{"field", "conflict"},
	)

	// Batch metrics
	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osmdelta_batches_total",
			Help: "Total number of change batches merged",
		},
		[]string{"status"},
	)

	BatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "osmdelta_batch_size_changes",
			Help:    "Number of feature changes submitted per batch",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	// Base store metrics
	StoreLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osmdelta_store_lookups_total",
			Help: "Total number of base store entity lookups",
		},
		[]string{"result"},
	)

	StoreCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "osmdelta_store_cache_size",
			Help: "Current number of entities held in the store cache",
		},
	)

	// MCP request metrics
	ToolRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osmdelta_tool_requests_total",
			Help: "Total number of MCP tool requests processed",
		},
		[]string{"tool", "status"},
	)

	ToolRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "osmdelta_tool_request_duration_seconds",
			Help:    "MCP tool request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		},
		[]string{"tool"},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osmdelta_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// System metrics
	SystemInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "osmdelta_system_info",
			Help: "System information",
		},
		[]string{"version", "go_version", "build_commit", "build_date"},
	)

	GoRoutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "osmdelta_goroutines",
			Help: "Number of goroutines",
		},
	)

	MemoryUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "osmdelta_memory_usage_bytes",
			Help: "Memory usage in bytes",
		},
	)
)

// Store lookup results
const (
	LookupHit      = "hit"
	LookupMiss     = "miss"
	LookupNotFound = "not_found"
)

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordMerge records one pairwise merge
func RecordMerge(kind, changeType string, duration time.Duration, success bool) {
	MergesTotal.WithLabelValues(kind, changeType, status(success)).Inc()
	MergeDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func RecordConflict(field, conflict string) {
	MergeConflicts.WithLabelValues(field, conflict).Inc()
}

func RecordBatch(size int, success bool) {
	BatchesTotal.WithLabelValues(status(success)).Inc()
	BatchSize.Observe(float64(size))
}

func RecordStoreLookup(result string) {
	StoreLookups.WithLabelValues(result).Inc()
}

func UpdateStoreCacheSize(size int) {
	StoreCacheSize.Set(float64(size))
}

func RecordToolRequest(tool string, duration time.Duration, success bool) {
	ToolRequestsTotal.WithLabelValues(tool, status(success)).Inc()
	ToolRequestDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
