package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records permission engine activity.
type Metrics interface {
	ObserveCheck(allowed bool, duration time.Duration)
	ObserveResolution(kind string, results int, duration time.Duration)
}

// Resolution kinds.
const (
	ResolutionResource = "resource"
	ResolutionPrefix   = "prefix"
)

// PrometheusMetrics is the Prometheus implementation of Metrics plus HTTP
// request instrumentation.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	checks            *prometheus.CounterVec
	checkDuration     prometheus.Histogram
	resolutions       *prometheus.CounterVec
	resolutionResults *prometheus.HistogramVec
	resolutionLatency *prometheus.HistogramVec
	httpRequests      *prometheus.CounterVec
	httpLatency       *prometheus.HistogramVec
}

// NewPrometheusMetrics registers all collectors on a fresh registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	m := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rbac_permission_checks_total",
			Help: "Permission checks by outcome.",
		}, []string{"allowed"}),
		checkDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rbac_permission_check_duration_seconds",
			Help:    "Permission check latency.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rbac_effective_permission_resolutions_total",
			Help: "Effective permission resolutions by kind.",
		}, []string{"kind"}),
		resolutionResults: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rbac_effective_permission_results",
			Help:    "Number of effective permissions returned per resolution.",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		}, []string{"kind"}),
		resolutionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rbac_effective_permission_duration_seconds",
			Help:    "Effective permission resolution latency.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}, []string{"kind"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rbac_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rbac_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		m.checks,
		m.checkDuration,
		m.resolutions,
		m.resolutionResults,
		m.resolutionLatency,
		m.httpRequests,
		m.httpLatency,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveCheck records a HasPermission call.
func (m *PrometheusMetrics) ObserveCheck(allowed bool, duration time.Duration) {
	m.checks.WithLabelValues(strconv.FormatBool(allowed)).Inc()
	m.checkDuration.Observe(duration.Seconds())
}

// ObserveResolution records an effective permission resolution.
func (m *PrometheusMetrics) ObserveResolution(kind string, results int, duration time.Duration) {
	m.resolutions.WithLabelValues(kind).Inc()
	m.resolutionResults.WithLabelValues(kind).Observe(float64(results))
	m.resolutionLatency.WithLabelValues(kind).Observe(duration.Seconds())
}

// Registry exposes the underlying registry, mostly for tests.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Instrument records request count and latency per chi route pattern.
func (m *PrometheusMetrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
		m.httpLatency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) ObserveCheck(bool, time.Duration)             {}
func (NopMetrics) ObserveResolution(string, int, time.Duration) {}
