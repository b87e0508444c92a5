// Package metrics exposes Prometheus collectors for the reservation service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ahlan_reserve"

// Metrics owns a private registry. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	backendRequests *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
	submissions     *prometheus.CounterVec
	artifacts       *prometheus.CounterVec
	artifactTime    *prometheus.HistogramVec
	sessions        *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.backendRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "backend",
		Name:      "requests_total",
		Help:      "Requests sent to the property backend API.",
	}, []string{"operation", "status"})

	m.backendDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "backend",
		Name:      "request_duration_seconds",
		Help:      "Latency of property backend API requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	m.submissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submissions_total",
		Help:      "Reservation submissions by outcome.",
	}, []string{"payment_type", "outcome"})

	m.artifacts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "contract",
		Name:      "artifacts_total",
		Help:      "Rendered contract artifacts by kind and outcome.",
	}, []string{"kind", "outcome"})

	m.artifactTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "contract",
		Name:      "render_duration_seconds",
		Help:      "Time spent rendering and storing contract artifacts.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"kind"})

	m.sessions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_events_total",
		Help:      "Reservation session lifecycle events (opened, load_failed, dismissed, cancelled).",
	}, []string{"event"})

	m.registry.MustRegister(
		m.backendRequests,
		m.backendDuration,
		m.submissions,
		m.artifacts,
		m.artifactTime,
		m.sessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// BackendCall records one backend request. status is the HTTP status text or
// "error" when no response arrived.
func (m *Metrics) BackendCall(operation, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.backendRequests.WithLabelValues(operation, status).Inc()
	m.backendDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) Submission(paymentType, outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(paymentType, outcome).Inc()
}

func (m *Metrics) Artifact(kind, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.artifacts.WithLabelValues(kind, outcome).Inc()
	m.artifactTime.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Metrics) SessionEvent(event string) {
	if m != nil {
		m.sessions.WithLabelValues(event).Inc()
	}
}
