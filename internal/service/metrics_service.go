package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry and the domain counters the
// scheduling services report into.
type MetricsService struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	generations   *prometheus.CounterVec
	generationDur *prometheus.HistogramVec
	deficits      prometheus.Counter
	auditFindings *prometheus.CounterVec
	substitutions *prometheus.CounterVec
	goroutines    prometheus.GaugeFunc
}

// NewMetricsService builds and registers all collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	s := &MetricsService{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timetable_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "timetable_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timetable_generations_total",
			Help: "Generation runs by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		generationDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "timetable_generation_duration_seconds",
			Help:    "Generation run duration by strategy.",
			Buckets: []float64{0.01, 0.05, 0.25, 1, 5, 15, 30, 60},
		}, []string{"strategy"}),
		deficits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timetable_generation_deficit_lessons_total",
			Help: "Lessons left unplaced across all generation runs.",
		}),
		auditFindings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timetable_audit_findings_total",
			Help: "Audit findings by dimension.",
		}, []string{"dimension"}),
		substitutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timetable_substitutions_total",
			Help: "Substitution outcomes per lesson.",
		}, []string{"outcome"}),
		goroutines: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "timetable_goroutines",
			Help: "Current number of goroutines.",
		}, func() float64 { return float64(runtime.NumGoroutine()) }),
	}

	registry.MustRegister(
		s.httpRequests,
		s.httpDuration,
		s.generations,
		s.generationDur,
		s.deficits,
		s.auditFindings,
		s.substitutions,
		s.goroutines,
	)
	return s
}

// ObserveHTTPRequest records one served request.
func (s *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	s.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	s.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveGeneration records one generation run.
func (s *MetricsService) ObserveGeneration(strategy, outcome string, duration time.Duration, deficitLessons int) {
	s.generations.WithLabelValues(strategy, outcome).Inc()
	s.generationDur.WithLabelValues(strategy).Observe(duration.Seconds())
	if deficitLessons > 0 {
		s.deficits.Add(float64(deficitLessons))
	}
}

// ObserveAudit records findings per conflict dimension.
func (s *MetricsService) ObserveAudit(dimension string, violations int) {
	if violations > 0 {
		s.auditFindings.WithLabelValues(dimension).Add(float64(violations))
	}
}

// ObserveSubstitution records per-lesson substitution outcomes.
func (s *MetricsService) ObserveSubstitution(outcome string, count int) {
	if count > 0 {
		s.substitutions.WithLabelValues(outcome).Add(float64(count))
	}
}

// Handler exposes the registry for the /metrics endpoint.
func (s *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
