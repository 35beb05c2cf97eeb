// Package metrics defines the Prometheus instrumentation for the workspace backend.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP Request Metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Signaling Metrics
	signalingConnections prometheus.Gauge
	signalingEventsTotal *prometheus.CounterVec
	signalingErrorsTotal *prometheus.CounterVec

	// Session Metrics
	activeRooms    prometheus.Gauge
	activePeers    prometheus.Gauge
	producersTotal *prometheus.CounterVec
	consumersTotal prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(serviceName string) *Metrics {
	labels := prometheus.Labels{"service": serviceName}

	return &Metrics{
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests",
				ConstLabels: labels,
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "HTTP request latency in seconds",
				ConstLabels: labels,
				Buckets:     prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		httpRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name:        "http_requests_in_flight",
				Help:        "Number of HTTP requests currently being processed",
				ConstLabels: labels,
			},
		),
		signalingConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name:        "signaling_connections",
				Help:        "Number of open signaling WebSocket connections",
				ConstLabels: labels,
			},
		),
		signalingEventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "signaling_events_total",
				Help:        "Total number of handled signaling events",
				ConstLabels: labels,
			},
			[]string{"event"},
		),
		signalingErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "signaling_errors_total",
				Help:        "Total number of signaling events answered with an error",
				ConstLabels: labels,
			},
			[]string{"event", "code"},
		),
		activeRooms: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name:        "rtc_active_rooms",
				Help:        "Number of rooms with a live media session",
				ConstLabels: labels,
			},
		),
		activePeers: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name:        "rtc_active_peers",
				Help:        "Number of peers registered across all active rooms",
				ConstLabels: labels,
			},
		),
		producersTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "rtc_producers_total",
				Help:        "Total number of created producers",
				ConstLabels: labels,
			},
			[]string{"kind"},
		),
		consumersTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name:        "rtc_consumers_total",
				Help:        "Total number of created consumers",
				ConstLabels: labels,
			},
		),
	}
}

// RecordHTTPRequest records a completed HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments the in-flight request gauge
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements the in-flight request gauge
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Dec()
}

// SignalingConnectionOpened increments the connection gauge
func (m *Metrics) SignalingConnectionOpened() {
	m.signalingConnections.Inc()
}

// SignalingConnectionClosed decrements the connection gauge
func (m *Metrics) SignalingConnectionClosed() {
	m.signalingConnections.Dec()
}

// RecordSignalingEvent records one handled signaling event
func (m *Metrics) RecordSignalingEvent(event string) {
	m.signalingEventsTotal.WithLabelValues(event).Inc()
}

// RecordSignalingError records a signaling event answered with an error code
func (m *Metrics) RecordSignalingError(event, code string) {
	m.signalingErrorsTotal.WithLabelValues(event, code).Inc()
}

// SetActiveRooms sets the active room gauge
func (m *Metrics) SetActiveRooms(n int) {
	m.activeRooms.Set(float64(n))
}

// SetActivePeers sets the active peer gauge
func (m *Metrics) SetActivePeers(n int) {
	m.activePeers.Set(float64(n))
}

// RecordProducer records a created producer of the given media kind
func (m *Metrics) RecordProducer(kind string) {
	m.producersTotal.WithLabelValues(kind).Inc()
}

// RecordConsumer records a created consumer
func (m *Metrics) RecordConsumer() {
	m.consumersTotal.Inc()
}
