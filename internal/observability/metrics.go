package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes Prometheus collectors for the service.
type Metrics struct {
	RequestTotal      *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	ErrorTotal        *prometheus.CounterVec
	AssignmentTotal   *prometheus.CounterVec
	AutoResolveTotal  *prometheus.CounterVec
	QueueDepth        *prometheus.GaugeVec
	TaskRetries       *prometheus.CounterVec
	WebsocketSessions prometheus.Gauge
	SLABreachTotal    *prometheus.CounterVec
	ClassifyFailures  prometheus.Counter
}

// NewMetrics registers collectors with the provided registerer. Pass
// prometheus.DefaultRegisterer in the binaries; tests use a fresh registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deskhive_http_requests_total",
			Help: "HTTP requests by path, method and status.",
		}, []string{"path", "method", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "deskhive_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		ErrorTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deskhive_http_errors_total",
			Help: "Handler errors by path, method and error code.",
		}, []string{"path", "method", "code"}),
		AssignmentTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deskhive_assignments_total",
			Help: "Ticket assignment attempts by outcome.",
		}, []string{"outcome"}),
		AutoResolveTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deskhive_auto_resolutions_total",
			Help: "Auto-resolution attempts by outcome.",
		}, []string{"outcome"}),
		QueueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "deskhive_queue_depth",
			Help: "Pending tasks per queue.",
		}, []string{"queue"}),
		TaskRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deskhive_task_retries_total",
			Help: "Task retries by queue.",
		}, []string{"queue"}),
		WebsocketSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "deskhive_websocket_sessions",
			Help: "Currently connected websocket sessions.",
		}),
		SLABreachTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deskhive_sla_breaches_total",
			Help: "SLA breaches detected by kind (response, resolution).",
		}, []string{"kind"}),
		ClassifyFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "deskhive_classification_failures_total",
			Help: "Classifier calls that errored and fell back to human routing.",
		}),
	}
}

// RecordRequest increments the per-request counters.
func (m *Metrics) RecordRequest(path, method, status string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestTotal.WithLabelValues(path, method, status).Inc()
	m.RequestDuration.WithLabelValues(path, method).Observe(seconds)
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.ErrorTotal.WithLabelValues(path, method, code).Inc()
}
