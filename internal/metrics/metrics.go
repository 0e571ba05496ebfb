// Package metrics exposes ezekiel's Prometheus instrumentation: lock
// table transitions, REST request latency and counts, and the number of
// open WebSocket and SSE sessions. WebSocket and SSE traffic has no
// latency metric.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/MarsStirner/ezekiel/internal/locks"
)

// Metrics is the process's Prometheus registration. Construct one with
// NewMetrics at startup and pass it to locks.WithObserver and the
// gateway's HTTP handlers.
type Metrics struct {
	LocksAcquired   *prometheus.CounterVec
	LocksReleased   *prometheus.CounterVec
	LocksRejected   prometheus.Counter
	ActiveLocks     *prometheus.GaugeVec
	// Waiters is registered but nothing in this repository updates it,
	// so it always reads 0.
	Waiters         prometheus.Gauge

	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestCounter  *prometheus.CounterVec

	WSConnections  prometheus.Gauge
	SSEConnections prometheus.Gauge

	RelayErrors prometheus.Counter
}

// NewMetrics creates and registers all Prometheus collectors against
// the default registry. Call once at process startup.
func NewMetrics() *Metrics {
	return &Metrics{
		LocksAcquired: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ezekiel_locks_acquired_total",
				Help: "Total number of locks acquired, by kind (permanent|temporary)",
			},
			[]string{"kind"},
		),
		LocksReleased: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ezekiel_locks_released_total",
				Help: "Total number of locks released, by kind (permanent|temporary)",
			},
			[]string{"kind"},
		),
		LocksRejected: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ezekiel_locks_rejected_total",
				Help: "Total number of acquire attempts rejected because the resource was already held",
			},
		),
		ActiveLocks: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ezekiel_active_locks",
				Help: "Current number of held locks, by kind",
			},
			[]string{"kind"},
		),
		Waiters: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ezekiel_waiters",
				Help: "Current number of streaming sessions waiting on a held resource",
			},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ezekiel_http_request_duration_seconds",
				Help:    "Duration of REST RPC requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"command", "status_code"},
		),
		HTTPRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ezekiel_http_requests_total",
				Help: "Total number of REST RPC requests",
			},
			[]string{"command", "status_code"},
		),
		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ezekiel_ws_connections",
				Help: "Current number of open push (WebSocket) sessions",
			},
		),
		SSEConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ezekiel_sse_connections",
				Help: "Current number of open pull (SSE) sessions",
			},
		),
		RelayErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ezekiel_relay_errors_total",
				Help: "Total number of failures publishing to the downstream message-bus relay",
			},
		),
	}
}

// Acquired implements locks.Observer.
func (m *Metrics) Acquired(kind locks.Kind) {
	m.LocksAcquired.WithLabelValues(kind.String()).Inc()
	m.ActiveLocks.WithLabelValues(kind.String()).Inc()
}

// Released implements locks.Observer.
func (m *Metrics) Released(kind locks.Kind) {
	m.LocksReleased.WithLabelValues(kind.String()).Inc()
	m.ActiveLocks.WithLabelValues(kind.String()).Dec()
}

// Rejected implements locks.Observer.
func (m *Metrics) Rejected() {
	m.LocksRejected.Inc()
}

// RecordHTTPRequest records one REST RPC request's outcome.
func (m *Metrics) RecordHTTPRequest(command, statusCode string, d time.Duration) {
	m.HTTPRequestCounter.WithLabelValues(command, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(command, statusCode).Observe(d.Seconds())
}

// RecordRelayError counts a failed relay publish.
func (m *Metrics) RecordRelayError() {
	m.RelayErrors.Inc()
}
