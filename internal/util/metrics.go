package util

import (
	"database/sql"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueryRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_summary_requests_total",
		Help: "Total number of order summary requests by outcome",
	}, []string{"strategy", "outcome"})

	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_summary_duration_seconds",
		Help:    "End-to-end latency of order summary requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"strategy"})

	SubqueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "subquery_duration_seconds",
		Help:    "Latency of the content and count sub-queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"strategy", "part"})

	PageRows = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_summary_page_rows",
		Help:    "Number of rows returned per page",
		Buckets: []float64{0, 1, 10, 50, 100, 250, 500, 1000},
	}, []string{"strategy"})

	QueryErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_summary_errors_total",
		Help: "Total number of failed order summary requests",
	}, []string{"strategy", "kind"})

	WorkloadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "workload_duration_seconds",
		Help:    "Latency of CPU workload fan-outs",
		Buckets: prometheus.DefBuckets,
	}, []string{"strategy"})

	PoolRunningWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "executor_pool_running_workers",
		Help: "Number of busy workers in the blocking pool",
	})

	PoolWaitingRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "executor_pool_waiting_requests",
		Help: "Number of requests waiting for a pool worker",
	})

	TelemetryFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_failures_total",
		Help: "Total number of telemetry events that could not be published or recorded",
	}, []string{"stage"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)

// RegisterDBStats exports the connection pool statistics of db. Registering
// the same pool twice is not an error.
func RegisterDBStats(db *sql.DB, name string) error {
	err := prometheus.Register(collectors.NewDBStatsCollector(db, name))
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		return nil
	}
	return err
}
