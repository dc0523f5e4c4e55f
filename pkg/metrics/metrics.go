package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the portal
type Metrics struct {
	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// WebSocket metrics
	websocketConnections prometheus.Gauge
	websocketEventsTotal *prometheus.CounterVec

	// Domain metrics
	consultationsTotal *prometheus.CounterVec
	callsActive        prometheus.Gauge
	callsTotal         prometheus.Counter
}

// New creates and registers all Prometheus metrics
func New(serviceName string) *Metrics {
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
		websocketConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name:        "websocket_connections",
				Help:        "Number of active WebSocket connections",
				ConstLabels: labels,
			},
		),
		websocketEventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "websocket_events_total",
				Help:        "Total number of WebSocket events by name and direction",
				ConstLabels: labels,
			},
			[]string{"event", "direction"},
		),
		consultationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "consultations_total",
				Help:        "Total number of consultation transitions by status",
				ConstLabels: labels,
			},
			[]string{"status"},
		),
		callsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name:        "calls_active",
				Help:        "Number of calls currently in progress",
				ConstLabels: labels,
			},
		),
		callsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name:        "calls_total",
				Help:        "Total number of calls started",
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

// IncHTTPRequestsInFlight increments the in-flight request gauge
func (m *Metrics) IncHTTPRequestsInFlight() { m.httpRequestsInFlight.Inc() }

// DecHTTPRequestsInFlight decrements the in-flight request gauge
func (m *Metrics) DecHTTPRequestsInFlight() { m.httpRequestsInFlight.Dec() }

// IncWebSocketConnections increments the connection gauge
func (m *Metrics) IncWebSocketConnections() { m.websocketConnections.Inc() }

// DecWebSocketConnections decrements the connection gauge
func (m *Metrics) DecWebSocketConnections() { m.websocketConnections.Dec() }

// RecordEvent records a WebSocket event ("in" for client-originated, "out" for pushes)
func (m *Metrics) RecordEvent(event, direction string) {
	m.websocketEventsTotal.WithLabelValues(event, direction).Inc()
}

// RecordConsultation records a consultation status transition
func (m *Metrics) RecordConsultation(status string) {
	m.consultationsTotal.WithLabelValues(status).Inc()
}

// CallStarted records a new active call
func (m *Metrics) CallStarted() {
	m.callsTotal.Inc()
	m.callsActive.Inc()
}

// CallEnded records an ended call
func (m *Metrics) CallEnded() { m.callsActive.Dec() }
