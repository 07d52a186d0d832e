package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Monitor owns the service's Prometheus registry and metrics.
type Monitor struct {
	service  string
	registry *prometheus.Registry

	responseTime     *prometheus.HistogramVec
	membershipEvents *prometheus.CounterVec
	fallbacks        *prometheus.CounterVec
}

func NewMonitor(service string) *Monitor {
	m := &Monitor{
		service:  service,
		registry: prometheus.NewRegistry(),
		responseTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_response_time_seconds",
			Help:    "HTTP response time by route pattern and status code.",
			Buckets: prometheus.DefBuckets,
		}, []string{"service", "method", "route", "status"}),
		membershipEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trip_membership_events_total",
			Help: "Trip membership lifecycle events (joined, left, ownership_transferred, trip_dissolved, link_rotated).",
		}, []string{"service", "event"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "external_fallbacks_total",
			Help: "External collaborator calls that degraded to a fallback result.",
		}, []string{"service", "dependency"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.responseTime,
		m.membershipEvents,
		m.fallbacks,
	)
	return m
}

func (m *Monitor) GetService() string { return m.service }

// Handler exposes the registry in the Prometheus text format.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests that assert on collected values.
func (m *Monitor) Registry() *prometheus.Registry { return m.registry }

func (m *Monitor) MembershipEvent(event string) {
	m.membershipEvents.WithLabelValues(m.service, event).Inc()
}

func (m *Monitor) Fallback(dependency string) {
	m.fallbacks.WithLabelValues(m.service, dependency).Inc()
}

// ResponseTime records request latency keyed by the matched chi route pattern.
func (m *Monitor) ResponseTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.responseTime.
			WithLabelValues(m.service, r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
