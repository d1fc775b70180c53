package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	registry        *prometheus.Registry
	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorCount      *prometheus.CounterVec
	validations     *prometheus.CounterVec
	revocations     *prometheus.CounterVec
	cleanupRemoved  prometheus.Counter
}

// NewMetrics registers collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"path", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "auth_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errorCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_http_errors_total",
			Help: "HTTP error responses by route, method and error code.",
		}, []string{"path", "method", "code"}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_token_validations_total",
			Help: "Token validations by outcome.",
		}, []string{"outcome"}),
		revocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_token_revocations_total",
			Help: "Revocation requests by outcome.",
		}, []string{"outcome"}),
		cleanupRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_revocation_cleanup_removed_total",
			Help: "Expired revocation entries removed by cleanup.",
		}),
	}
	m.registry.MustRegister(
		m.requestCount,
		m.requestDuration,
		m.errorCount,
		m.validations,
		m.revocations,
		m.cleanupRemoved,
	)
	return m
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorCount.WithLabelValues(path, method, code).Inc()
}

// RecordValidation counts a validation outcome; "ok" for success.
func (m *Metrics) RecordValidation(outcome string) {
	if m == nil {
		return
	}
	m.validations.WithLabelValues(outcome).Inc()
}

// RecordRevocation counts a revocation outcome.
func (m *Metrics) RecordRevocation(outcome string) {
	if m == nil {
		return
	}
	m.revocations.WithLabelValues(outcome).Inc()
}

// RecordCleanup counts removed revocation entries.
func (m *Metrics) RecordCleanup(removed int64) {
	if m == nil || removed <= 0 {
		return
	}
	m.cleanupRemoved.Add(float64(removed))
}
