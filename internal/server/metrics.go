package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics holds the server's collectors. Each Server registers them on its
// own registry so tests can build many servers in one process.
type metrics struct {
	registry *prometheus.Registry

	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	logins    *prometheus.CounterVec
	uploads   *prometheus.CounterVec
	exports   *prometheus.CounterVec
	displayed prometheus.Counter
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &metrics{
		registry: reg,
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gallery_http_requests_total",
				Help: "HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "code"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gallery_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		logins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gallery_login_attempts_total",
				Help: "Login attempts by result",
			},
			[]string{"result"},
		),
		uploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gallery_upload_files_total",
				Help: "Uploaded files by outcome",
			},
			[]string{"outcome"},
		),
		exports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gallery_exports_total",
				Help: "Archive exports by result",
			},
			[]string{"result"},
		),
		displayed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "gallery_photos_served_total",
				Help: "Photo payloads streamed through display references",
			},
		),
	}
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// instrument records request counts and latency keyed by the matched chi
// route pattern, so path parameters do not explode label cardinality.
func (m *metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
