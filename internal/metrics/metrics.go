// Package metrics declares the Prometheus collectors of the dashboard.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Load outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeEmpty  = "empty"
	OutcomeFailed = "failed"
)

var (
	// DatasetLoads counts load attempts per source and outcome.
	DatasetLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bilancio_dataset_loads_total",
			Help: "Total number of dataset load attempts",
		},
		[]string{"source", "outcome"},
	)

	RowsLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bilancio_rows_loaded_total",
			Help: "Total number of transaction rows loaded",
		},
		[]string{"source"},
	)

	LoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bilancio_dataset_load_duration_seconds",
			Help:    "Time spent reading and preparing a dataset",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	ActiveDatasets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bilancio_active_datasets",
			Help: "Number of datasets held in the session store",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bilancio_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "code"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bilancio_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bilancio_rate_limited_requests_total",
			Help: "Requests rejected by the rate limiter",
		},
	)

	// SuspiciousRequests counts requests flagged by the security
	// detector, by reason.
	SuspiciousRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bilancio_suspicious_requests_total",
			Help: "Requests matching a known attack pattern",
		},
		[]string{"reason"},
	)

	// EventsConsumed counts dataset events handled by the worker, by
	// type and result.
	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bilancio_events_consumed_total",
			Help: "Dataset events consumed from the broker",
		},
		[]string{"type", "result"},
	)
)

// ObserveLoad records one finished load.
func ObserveLoad(source, outcome string, rows int, started time.Time) {
	DatasetLoads.WithLabelValues(source, outcome).Inc()
	LoadDuration.WithLabelValues(source).Observe(time.Since(started).Seconds())
	if rows > 0 {
		RowsLoaded.WithLabelValues(source).Add(float64(rows))
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
