// Package metrics provides Prometheus metrics for submission runs, tutor
// requests and the HTTP surface.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ExecutionBuckets covers interpreter start-up through the longest allowed deadline.
var ExecutionBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	ExecutionsTotal   *prometheus.CounterVec
	ExecutionDuration *prometheus.HistogramVec
	CleanupFailures   prometheus.Counter
	TutorRequests     *prometheus.CounterVec
	TutorLatency      prometheus.Histogram
	HTTPRequests      *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutorbox_executions_total",
				Help: "Submission runs by outcome",
			},
			[]string{"outcome"},
		),
		ExecutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tutorbox_execution_duration_seconds",
				Help:    "Submission run duration",
				Buckets: ExecutionBuckets,
			},
			[]string{"outcome"},
		),
		CleanupFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tutorbox_cleanup_failures_total",
				Help: "Submission files that could not be removed",
			},
		),
		TutorRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutorbox_tutor_requests_total",
				Help: "Tutor backend requests by status",
			},
			[]string{"status"},
		),
		TutorLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tutorbox_tutor_latency_seconds",
				Help:    "Tutor backend latency",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutorbox_http_requests_total",
				Help: "HTTP requests by route and status class",
			},
			[]string{"method", "route", "status"},
		),
	}

	m.registry.MustRegister(
		m.ExecutionsTotal,
		m.ExecutionDuration,
		m.CleanupFailures,
		m.TutorRequests,
		m.TutorLatency,
		m.HTTPRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveExecution implements sandbox.Observer.
func (m *Metrics) ObserveExecution(status string, duration time.Duration) {
	m.ExecutionsTotal.WithLabelValues(status).Inc()
	m.ExecutionDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// ObserveCleanupFailure implements sandbox.Observer.
func (m *Metrics) ObserveCleanupFailure() {
	m.CleanupFailures.Inc()
}

// ObserveTutorRequest records one call to the tutor backend.
func (m *Metrics) ObserveTutorRequest(status string, duration time.Duration) {
	m.TutorRequests.WithLabelValues(status).Inc()
	m.TutorLatency.Observe(duration.Seconds())
}

// ObserveHTTPRequest records one served request. status is the HTTP code.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int) {
	m.HTTPRequests.WithLabelValues(method, route, statusClass(status)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
