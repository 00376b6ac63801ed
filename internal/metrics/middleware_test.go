package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newRouter(t *testing.T) (*HTTP, chi.Router) {
	t.Helper()
	h, err := NewHTTP(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}
	r := chi.NewRouter()
	r.Use(h.Middleware())
	r.Get("/api/v1/pages/{page}/search", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`))
	})
	r.Get("/api/v1/pages/{page}/explain", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotImplemented)
	})
	return h, r
}

func serve(r http.Handler, method, path string) int {
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(method, path, http.NoBody))
	return rr.Code
}

func TestHTTP_LabelsByRoutePattern(t *testing.T) {
	h, r := newRouter(t)
	serve(r, http.MethodGet, "/api/v1/pages/catalog/search")
	serve(r, http.MethodGet, "/api/v1/pages/archive/search")

	got := testutil.ToFloat64(h.requests.WithLabelValues("GET", "/api/v1/pages/{page}/search", "200"))
	if got != 2 {
		t.Errorf("requests = %v, want 2", got)
	}
	if n := testutil.CollectAndCount(h.duration); n != 1 {
		t.Errorf("duration series = %d, want 1", n)
	}
}

func TestHTTP_Status(t *testing.T) {
	h, r := newRouter(t)
	tests := []struct {
		name   string
		path   string
		route  string
		status string
	}{
		{"written header", "/api/v1/pages/catalog/explain", "/api/v1/pages/{page}/explain", "501"},
		{"implicit ok", "/api/v1/pages/catalog/search", "/api/v1/pages/{page}/search", "200"},
		{"no route", "/nope", unmatchedRoute, "404"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			serve(r, http.MethodGet, tc.path)
			if got := testutil.ToFloat64(h.requests.WithLabelValues("GET", tc.route, tc.status)); got < 1 {
				t.Errorf("requests{%s,%s} = %v, want >= 1", tc.route, tc.status, got)
			}
		})
	}
}

func TestHTTP_InFlightSettles(t *testing.T) {
	h, r := newRouter(t)
	serve(r, http.MethodGet, "/api/v1/pages/catalog/search")
	if got := testutil.ToFloat64(h.inFlight); got != 0 {
		t.Errorf("in flight = %v, want 0", got)
	}
}

func TestNewHTTP_ReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewHTTP(reg)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := NewHTTP(reg)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	first.requests.WithLabelValues("GET", "/health", "200").Inc()
	if got := testutil.ToFloat64(second.requests.WithLabelValues("GET", "/health", "200")); got != 1 {
		t.Errorf("shared counter = %v, want 1", got)
	}
}
