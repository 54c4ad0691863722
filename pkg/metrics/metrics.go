// Package metrics provides Prometheus metrics for Basalt. It tracks
// file opens, query executions, and row throughput so callers can
// observe access patterns against their columnar data.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesOpened tracks the total number of DataFrames opened.
	// Labels: mode (full/projected/query), status (success/failure)
	FramesOpened = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basalt_frames_opened_total",
			Help: "Total number of DataFrames opened",
		},
		[]string{"mode", "status"},
	)

	// QueriesExecuted tracks the total number of collect calls.
	// Labels: status (success/failure)
	QueriesExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "basalt_queries_executed_total",
			Help: "Total number of query collect calls",
		},
		[]string{"status"},
	)

	// RowsRead tracks the total number of rows materialized from files
	RowsRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "basalt_rows_read_total",
			Help: "Total number of rows read from Parquet files",
		},
	)

	// RowsWritten tracks the total number of rows flushed to files
	RowsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "basalt_rows_written_total",
			Help: "Total number of rows written to Parquet files",
		},
	)

	// OpenLatency tracks the distribution of file open latencies
	OpenLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "basalt_open_latency_seconds",
			Help:    "Latency of Parquet file opens",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
	)

	// CollectLatency tracks the distribution of query collect latencies
	CollectLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "basalt_collect_latency_seconds",
			Help:    "Latency of query collect calls",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
	)
)

// Timer measures the duration of a single operation.
type Timer struct {
	start time.Time
}

// NewTimer starts a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the elapsed time since the timer was started.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ObserveSince records the elapsed seconds since start in the histogram.
func ObserveSince(h prometheus.Histogram, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}
