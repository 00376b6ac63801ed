package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/facetdex/internal/metrics"
)

// RouterOptions configure NewRouter.
type RouterOptions struct {
	APIKeys []string
	Logger  *zap.Logger
	// Metrics serves /metrics; promhttp.Handler() when nil.
	Metrics http.Handler
	// HTTPMetrics records requests; registered on the default registerer
	// when nil.
	HTTPMetrics *metrics.HTTP
}

// NewRouter mounts the API on a chi router with the standard middleware chain.
func NewRouter(s *Server, opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = s.logger
	}
	metricsHandler := opts.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	httpMetrics := opts.HTTPMetrics
	if httpMetrics == nil {
		httpMetrics = metrics.MustHTTP(prometheus.DefaultRegisterer)
	}

	r := chi.NewRouter()
	r.Use(JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(logger))
	r.Use(BearerAuthMiddleware(opts.APIKeys))
	r.Use(httpMetrics.Middleware())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})

	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/search", s.Search)
		r.Get("/pages", s.ListPages)
		r.Route("/pages/{page}", func(r chi.Router) {
			r.Get("/search", s.Search)
			r.Get("/suggest", s.Suggest)
			r.Get("/explain", s.Explain)
		})
	})
	return r
}
