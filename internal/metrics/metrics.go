// v0
// internal/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the service collectors. Every method is safe on a nil
// receiver so packages can be exercised without instrumentation.
type Metrics struct {
	registry          *prometheus.Registry
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	calculations      prometheus.Counter
	exports           *prometheus.CounterVec
	sessionsActive    prometheus.Gauge
	exportPublish     *prometheus.CounterVec
	breakerState      *prometheus.GaugeVec
}

// New builds the collectors on a dedicated registry together with the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recovery_http_requests_total",
			Help: "Total count of HTTP requests processed by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recovery_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		calculations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recovery_calculations_total",
			Help: "Total recovery recomputations.",
		}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recovery_exports_total",
			Help: "Total exports rendered by format.",
		}, []string{"format"}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "recovery_sessions_active",
			Help: "Number of live dashboard sessions.",
		}),
		exportPublish: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recovery_export_publish_total",
			Help: "Export events handed to the broker by result.",
		}, []string{"result"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "recovery_breaker_state",
			Help: "Circuit breaker state gauge (0 closed, 1 half, 2 open).",
		}, []string{"target"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpDuration,
		m.calculations,
		m.exports,
		m.sessionsActive,
		m.exportPublish,
		m.breakerState,
	)
	return m
}

// Registry exposes the gatherer, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *Metrics) IncCalculation() {
	if m == nil {
		return
	}
	m.calculations.Inc()
}

func (m *Metrics) IncExport(format string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(format).Inc()
}

func (m *Metrics) SetSessionsActive(n int) {
	if m == nil {
		return
	}
	m.sessionsActive.Set(float64(n))
}

// IncExportPublish counts broker deliveries; result is "ok", "fail" or
// "dropped".
func (m *Metrics) IncExportPublish(result string) {
	if m == nil {
		return
	}
	m.exportPublish.WithLabelValues(result).Inc()
}

func (m *Metrics) SetBreakerState(target string, state float64) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(target).Set(state)
}
