package twincore

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors exported on /metrics.
type Metrics struct {
	Registry *prometheus.Registry

	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	intercept *prometheus.CounterVec
}

// NewMetrics registers the server collectors on reg.
func NewMetrics(reg *prometheus.Registry, server string) *Metrics {
	labels := prometheus.Labels{"server": server}
	m := &Metrics{
		Registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pizza_http_requests_total",
			Help:        "HTTP requests served, by method and status code.",
			ConstLabels: labels,
		}, []string{"method", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "pizza_http_request_duration_seconds",
			Help:        "HTTP request latency.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method"}),
		intercept: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pizza_mock_dispatch_total",
			Help:        "Mock route dispatch outcomes (fulfilled, mismatch, unmatched, error).",
			ConstLabels: labels,
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.requests, m.latency, m.intercept)
	return m
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(method string, code int, d time.Duration) {
	m.requests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.latency.WithLabelValues(method).Observe(d.Seconds())
}

// ObserveDispatch records a mock route outcome.
func (m *Metrics) ObserveDispatch(outcome string) {
	m.intercept.WithLabelValues(outcome).Inc()
}
