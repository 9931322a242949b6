package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "promptrelay"

// Metrics holds the relay's Prometheus collectors on a private registry.
type Metrics struct {
	registry         *prometheus.Registry
	requests         *prometheus.CounterVec
	upstreamDuration prometheus.Histogram
}

// NewMetrics creates and registers the relay collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "Total number of relayed prompt requests by outcome",
		}, []string{"outcome"}),
		upstreamDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "upstream_duration_seconds",
			Help:      "Duration of calls to the inference server in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 30, 45, 60},
		}),
	}

	m.registry.MustRegister(m.requests, m.upstreamDuration)

	return m
}

// ObserveOutcome counts a finished request by its outcome label.
func (m *Metrics) ObserveOutcome(outcome string) {
	m.requests.WithLabelValues(outcome).Inc()
}

// ObserveUpstream records how long an upstream call took.
func (m *Metrics) ObserveUpstream(d time.Duration) {
	m.upstreamDuration.Observe(d.Seconds())
}

// Requests exposes the request counter for inspection.
func (m *Metrics) Requests() *prometheus.CounterVec {
	return m.requests
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
