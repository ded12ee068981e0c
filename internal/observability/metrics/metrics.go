package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "bikecloud_"

	resultAccepted = "accepted"
	resultIgnored  = "ignored"
	resultRejected = "rejected"
	resultError    = "error"
)

var (
	registerOnce sync.Once

	ingestEvents   *prometheus.CounterVec
	ingestLatency  *prometheus.HistogramVec
	ingestIgnored  *prometheus.CounterVec
	queryRequests  *prometheus.CounterVec
	reportExports  *prometheus.CounterVec
	sessionsActive prometheus.Gauge
)

// Init registers service metrics. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		ingestEvents = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_events_total",
				Help: "Total ingested webhook events by kind and result",
			},
			[]string{"kind", "result"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Webhook event handling latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		ingestIgnored = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_ignored_total",
				Help: "Total ignored webhook events by reason",
			},
			[]string{"reason"},
		)
		queryRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "query_requests_total",
				Help: "Total dashboard query requests by endpoint and result",
			},
			[]string{"endpoint", "result"},
		)
		reportExports = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_exports_total",
				Help: "Total session report exports by format and result",
			},
			[]string{"format", "result"},
		)
		sessionsActive = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "session_active",
				Help: "1 while a ride session is in progress",
			},
		)

		prometheus.MustRegister(
			ingestEvents,
			ingestLatency,
			ingestIgnored,
			queryRequests,
			reportExports,
			sessionsActive,
		)
	})
}

// ObserveIngest records one webhook event outcome.
func ObserveIngest(kind, result string, duration time.Duration) {
	if kind == "" {
		kind = "unknown"
	}
	if result == "" {
		result = resultAccepted
	}
	if ingestEvents != nil {
		ingestEvents.WithLabelValues(kind, result).Inc()
	}
	if ingestLatency != nil {
		ingestLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncIngestIgnored increments the ignored-event counter.
func IncIngestIgnored(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if ingestIgnored != nil {
		ingestIgnored.WithLabelValues(reason).Inc()
	}
}

// IncQuery increments a dashboard query counter.
func IncQuery(endpoint, result string) {
	if endpoint == "" {
		endpoint = "unknown"
	}
	if result == "" {
		result = resultAccepted
	}
	if queryRequests != nil {
		queryRequests.WithLabelValues(endpoint, result).Inc()
	}
}

// IncReportExport increments the report export counter.
func IncReportExport(format, result string) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultAccepted
	}
	if reportExports != nil {
		reportExports.WithLabelValues(format, result).Inc()
	}
}

// SetSessionActive flips the active-session gauge.
func SetSessionActive(active bool) {
	if sessionsActive == nil {
		return
	}
	if active {
		sessionsActive.Set(1)
		return
	}
	sessionsActive.Set(0)
}

// Exported constants for callers.
const (
	ResultAccepted = resultAccepted
	ResultIgnored  = resultIgnored
	ResultRejected = resultRejected
	ResultError    = resultError
)
