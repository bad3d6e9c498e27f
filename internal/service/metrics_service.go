package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oapet-edu/timetable-api/internal/models"
)

// MetricsService owns the Prometheus registry and the application's
// instrumentation. A nil *MetricsService is safe to call; every observer is a
// no-op so callers never have to nil-check.
type MetricsService struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	optimizationRuns     *prometheus.CounterVec
	optimizationDuration *prometheus.HistogramVec

	generationRuns      *prometheus.CounterVec
	generationDuration  prometheus.Histogram
	generationScheduled prometheus.Histogram
}

// NewMetricsService builds the registry with process and Go runtime
// collectors plus the application series.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &MetricsService{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timetable",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "timetable",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		optimizationRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timetable",
			Name:      "optimization_runs_total",
			Help:      "Optimization runs by algorithm and terminal status.",
		}, []string{"algorithm", "status"}),
		optimizationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "timetable",
			Name:      "optimization_duration_seconds",
			Help:      "Wall-clock time spent per optimization run.",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"algorithm"}),
		generationRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timetable",
			Name:      "generation_runs_total",
			Help:      "Timetable generation runs by outcome.",
		}, []string{"outcome"}),
		generationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "timetable",
			Name:      "generation_duration_seconds",
			Help:      "Wall-clock time spent per generation run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60},
		}),
		generationScheduled: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "timetable",
			Name:      "generation_scheduled_occurrences",
			Help:      "Occurrences placed per generation run.",
			Buckets:   []float64{0, 10, 50, 100, 250, 500, 1000, 2500},
		}),
	}

	registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.optimizationRuns,
		m.optimizationDuration,
		m.generationRuns,
		m.generationDuration,
		m.generationScheduled,
	)
	return m
}

// Handler exposes the registry for the /metrics route.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveOptimization records a finished optimization run.
func (m *MetricsService) ObserveOptimization(algorithm string, status models.RunStatus, duration time.Duration) {
	if m == nil {
		return
	}
	m.optimizationRuns.WithLabelValues(algorithm, string(status)).Inc()
	m.optimizationDuration.WithLabelValues(algorithm).Observe(duration.Seconds())
}

// ObserveGeneration records a finished generation run.
func (m *MetricsService) ObserveGeneration(success bool, duration time.Duration, scheduled int) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.generationRuns.WithLabelValues(outcome).Inc()
	m.generationDuration.Observe(duration.Seconds())
	m.generationScheduled.Observe(float64(scheduled))
}
