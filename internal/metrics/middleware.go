package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// unmatchedRoute labels requests no route pattern matched, so arbitrary
// paths never become label values.
const unmatchedRoute = "unmatched"

// HTTP records API requests by chi route pattern.
type HTTP struct {
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
	inFlight prometheus.Gauge
}

// NewHTTP registers the HTTP collectors on reg, reusing collectors an
// earlier call registered.
func NewHTTP(reg prometheus.Registerer) (*HTTP, error) {
	h := &HTTP{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route", "status"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests being served",
		}),
	}
	if err := RegisterOrReuse(reg, &h.duration); err != nil {
		return nil, err
	}
	if err := RegisterOrReuse(reg, &h.requests); err != nil {
		return nil, err
	}
	if err := RegisterOrReuse(reg, &h.inFlight); err != nil {
		return nil, err
	}
	return h, nil
}

// MustHTTP is NewHTTP that panics on a registration conflict.
func MustHTTP(reg prometheus.Registerer) *HTTP {
	h, err := NewHTTP(reg)
	if err != nil {
		panic(err)
	}
	return h
}

// Middleware records duration and count per method, route and status.
func (h *HTTP) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			h.inFlight.Inc()
			defer h.inFlight.Dec()

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			labels := []string{r.Method, routeOf(r), strconv.Itoa(status)}
			h.duration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
			h.requests.WithLabelValues(labels...).Inc()
		})
	}
}

// routeOf is read after the handler ran, when chi has filled in the pattern.
func routeOf(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return unmatchedRoute
}
