// Package metrics holds the transport-level Prometheus instruments. Domain
// counters live next to their service packages.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments the HTTP layer. A nil *Metrics disables recording so
// tests can pass nil without touching the default registry.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
}

// New creates and registers the HTTP metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bindery_http_request_duration_seconds",
			Help:    "HTTP request latency by route, method and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		RequestsInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "bindery_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		}),
	}
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(route, method, status string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route, method, status).Observe(seconds)
}

// IncInFlight marks a request entering the handler chain.
func (m *Metrics) IncInFlight() {
	if m == nil {
		return
	}
	m.RequestsInFlight.Inc()
}

// DecInFlight marks a request leaving the handler chain.
func (m *Metrics) DecInFlight() {
	if m == nil {
		return
	}
	m.RequestsInFlight.Dec()
}
