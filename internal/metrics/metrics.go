package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "subtrack"

// Metrics holds the collectors for the Gmail connection flow. A nil *Metrics is a no-op.
type Metrics struct {
	registry      *prometheus.Registry
	probes        *prometheus.CounterVec
	probeDuration prometheus.Histogram
	attempts      *prometheus.CounterVec
	callbacks     *prometheus.CounterVec
	backendCalls  *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_probe_total",
			Help:      "Backend availability probes by result.",
		}, []string{"result"}),
		probeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_probe_duration_seconds",
			Help:      "Latency of backend availability probes.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gmail_connection_attempts_total",
			Help:      "Gmail connection attempts by chosen strategy or rejection reason.",
		}, []string{"outcome"}),
		callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gmail_callbacks_total",
			Help:      "Gmail OAuth callbacks by resolved branch.",
		}, []string{"branch"}),
		backendCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Outbound backend requests by operation and result.",
		}, []string{"operation", "result"}),
	}
	reg.MustRegister(
		m.probes,
		m.probeDuration,
		m.attempts,
		m.callbacks,
		m.backendCalls,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveProbe(available bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "unavailable"
	if available {
		result = "available"
	}
	m.probes.WithLabelValues(result).Inc()
	m.probeDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) IncAttempt(outcome string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncCallback(branch string) {
	if m == nil {
		return
	}
	m.callbacks.WithLabelValues(branch).Inc()
}

func (m *Metrics) IncBackendCall(operation string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.backendCalls.WithLabelValues(operation, result).Inc()
}
