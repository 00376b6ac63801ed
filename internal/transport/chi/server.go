// Package chi serves the search API over HTTP.
package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
	logpkg "github.com/kailas-cloud/facetdex/internal/logger"
	"github.com/kailas-cloud/facetdex/internal/transport/form"
	healthuc "github.com/kailas-cloud/facetdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/facetdex/internal/usecase/search"
)

// Server holds the HTTP handlers.
type Server struct {
	search        *searchuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search *searchuc.Service, health *healthuc.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		search:        search,
		health:        health,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// PageResponse describes one search page.
type PageResponse struct {
	Name          string          `json:"name"`
	Engine        string          `json:"engine"`
	Default       bool            `json:"default"`
	ResourceTypes []string        `json:"resource_types"`
	Facets        []FacetResponse `json:"facets"`
}

// FacetResponse describes one configured facet.
type FacetResponse struct {
	Name      string   `json:"name"`
	Field     string   `json:"field,omitempty"`
	Label     string   `json:"label,omitempty"`
	Type      string   `json:"type"`
	Order     string   `json:"order"`
	Limit     int      `json:"limit"`
	Languages []string `json:"languages,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ExplainResponse is the body of GET /api/v1/pages/{page}/explain.
type ExplainResponse struct {
	Page    string `json:"page"`
	Explain string `json:"explain"`
}

// ListPages handles GET /api/v1/pages.
func (s *Server) ListPages(w http.ResponseWriter, _ *http.Request) {
	pages := s.search.Pages()
	items := make([]PageResponse, 0, len(pages))
	for _, p := range pages {
		items = append(items, pageToResponse(p, p.Name == s.search.DefaultPage()))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// Search handles GET /api/v1/search and GET /api/v1/pages/{page}/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	q, ok := s.parseQuery(w, r)
	if !ok {
		return
	}
	resp, err := s.search.Search(r.Context(), chi.URLParam(r, "page"), q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Suggest handles GET /api/v1/pages/{page}/suggest.
func (s *Server) Suggest(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("q")
	if text == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "q is required")
		return
	}
	resp, err := s.search.Suggest(r.Context(), chi.URLParam(r, "page"), text)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Explain handles GET /api/v1/pages/{page}/explain.
func (s *Server) Explain(w http.ResponseWriter, r *http.Request) {
	q, ok := s.parseQuery(w, r)
	if !ok {
		return
	}
	page := chi.URLParam(r, "page")
	out, err := s.search.Explain(r.Context(), page, q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ExplainResponse{Page: page, Explain: out})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

func (s *Server) parseQuery(w http.ResponseWriter, r *http.Request) (query.Query, bool) {
	q, err := form.Parse(r.URL.Query())
	if err != nil {
		s.handleDomainError(w, r, err)
		return query.Query{}, false
	}
	return q, true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func pageToResponse(p searchuc.Page, isDefault bool) PageResponse {
	facets := make([]FacetResponse, 0, len(p.Facets))
	for _, f := range p.Facets {
		facets = append(facets, FacetResponse{
			Name:      f.Name,
			Field:     f.Field,
			Label:     f.Label,
			Type:      string(f.Type),
			Order:     string(f.Order),
			Limit:     f.Limit,
			Languages: f.Languages,
		})
	}
	types := p.ResourceTypes
	if types == nil {
		types = []string{}
	}
	return PageResponse{
		Name:          p.Name,
		Engine:        p.Engine,
		Default:       isDefault,
		ResourceTypes: types,
		Facets:        facets,
	}
}
