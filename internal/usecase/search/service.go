// Package search runs queries for named search pages, each bound to one
// configured engine.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/search/plan"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
)

// SuggestOptions configure the suggestions of a page.
type SuggestOptions struct {
	// Field limits suggestions to one property; empty means any.
	Field string
	Limit int
}

// Page is a named search configuration.
type Page struct {
	Name   string
	Engine string
	// ResourceTypes scope queries that name none.
	ResourceTypes []string
	Facets        []query.FacetSpec
	Suggest       SuggestOptions
}

// Config assembles a Service.
type Config struct {
	Engines []Engine
	Pages   []Page
	// DefaultPage serves requests naming no page; the first page when empty.
	DefaultPage string
	Observer    Observer
	Logger      *zap.Logger
}

// Service resolves pages to engines and runs queries on them.
type Service struct {
	engines     map[string]Engine
	pages       map[string]Page
	defaultPage string
	obs         Observer
	log         *zap.Logger
}

// New validates cfg: every page must name a configured engine.
func New(cfg Config) (*Service, error) {
	s := &Service{
		engines: make(map[string]Engine, len(cfg.Engines)),
		pages:   make(map[string]Page, len(cfg.Pages)),
		obs:     cfg.Observer,
		log:     cfg.Logger,
	}
	if s.obs == nil {
		s.obs = nopObserver{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	for _, e := range cfg.Engines {
		s.engines[e.Name()] = e
	}
	for _, p := range cfg.Pages {
		if _, ok := s.engines[p.Engine]; !ok {
			return nil, fmt.Errorf("page %q: %w %q", p.Name, domain.ErrUnknownEngine, p.Engine)
		}
		s.pages[p.Name] = p
	}
	s.defaultPage = cfg.DefaultPage
	if s.defaultPage == "" && len(cfg.Pages) > 0 {
		s.defaultPage = cfg.Pages[0].Name
	}
	if _, ok := s.pages[s.defaultPage]; !ok && s.defaultPage != "" {
		return nil, fmt.Errorf("default page: %w %q", domain.ErrUnknownPage, s.defaultPage)
	}
	return s, nil
}

// Pages lists the configured pages by name.
func (s *Service) Pages() []Page {
	out := make([]Page, 0, len(s.pages))
	for _, p := range s.pages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// DefaultPage names the page used when a request names none.
func (s *Service) DefaultPage() string { return s.defaultPage }

// Page resolves name; empty means the default page.
func (s *Service) Page(name string) (Page, error) {
	if name == "" {
		name = s.defaultPage
	}
	p, ok := s.pages[name]
	if !ok {
		return Page{}, fmt.Errorf("%w %q", domain.ErrUnknownPage, name)
	}
	return p, nil
}

// Search runs q on the engine of page. Backend failures come back as an
// unsuccessful response with a nil error; the error is reserved for
// requests naming an unknown page.
func (s *Service) Search(ctx context.Context, page string, q query.Query) (response.Response, error) {
	p, err := s.Page(page)
	if err != nil {
		return response.Failure(max(q.Page(), 1), q.Limit(), err.Error()), err
	}
	return s.run(ctx, p, s.prepare(p, q)), nil
}

// Suggest returns suggestions for text on page.
func (s *Service) Suggest(ctx context.Context, page, text string) (response.Response, error) {
	p, err := s.Page(page)
	if err != nil {
		return response.Failure(1, 1, err.Error()), err
	}
	q, err := query.NewBuilder().Page(1, 1).Build()
	if err != nil {
		return response.Failure(1, 1, err.Error()), err
	}
	q = q.WithResourceTypes(p.ResourceTypes...).
		WithSuggest(query.Suggest{Text: text, Field: p.Suggest.Field, Limit: p.Suggest.Limit})
	return s.run(ctx, p, q), nil
}

// Explain renders what q compiles to on the engine of page.
func (s *Service) Explain(ctx context.Context, page string, q query.Query) (string, error) {
	p, err := s.Page(page)
	if err != nil {
		return "", err
	}
	return s.engines[p.Engine].Explain(ctx, s.prepare(p, q))
}

// prepare adds the page scope, facets and suggestion field to q.
func (s *Service) prepare(p Page, q query.Query) query.Query {
	q = q.WithResourceTypes(p.ResourceTypes...).WithFacets(p.Facets...)
	if sg := q.Suggest(); sg != nil {
		merged := *sg
		if merged.Field == "" {
			merged.Field = p.Suggest.Field
		}
		if merged.Limit <= 0 {
			merged.Limit = p.Suggest.Limit
		}
		q = q.WithSuggest(merged)
	}
	return q
}

func (s *Service) run(ctx context.Context, p Page, q query.Query) response.Response {
	e := s.engines[p.Engine]
	log := s.log.With(zap.String("page", p.Name), zap.String("engine", e.Name()))

	start := time.Now()
	resp, diag, err := e.Run(ctx, q)
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
		if errors.Is(err, domain.ErrBackendExecution) {
			log.Error("search backend failed", zap.Error(err), zap.Duration("duration", elapsed))
		} else {
			log.Error("search failed", zap.Error(err), zap.Duration("duration", elapsed))
		}
	}
	s.obs.SearchDone(e.Name(), status, elapsed)
	s.record(log, e.Name(), diag)
	return resp
}

func (s *Service) record(log *zap.Logger, engine string, d plan.Diagnostics) {
	for _, kind := range d.Capped() {
		s.obs.ClauseCapped(engine, string(kind))
	}
	for _, w := range d.Warnings {
		switch w.Kind {
		case plan.WarnExclusionsDropped, plan.WarnTruncated:
		default:
			s.obs.IncorrectValue(engine, string(w.Kind))
		}
	}
	for range d.Incorrect {
		s.obs.IncorrectValue(engine, string(plan.WarnIncorrectValue))
	}
	if len(d.Warnings) > 0 || len(d.Incorrect) > 0 {
		msgs := make([]string, 0, len(d.Warnings)+len(d.Incorrect))
		for _, w := range d.Warnings {
			msgs = append(msgs, w.Message)
		}
		log.Warn("search compiled with warnings", zap.Strings("warnings", append(msgs, d.Incorrect...)))
	}
}

type nopObserver struct{}

func (nopObserver) SearchDone(string, string, time.Duration) {}
func (nopObserver) ClauseCapped(string, string)              {}
func (nopObserver) IncorrectValue(string, string)            {}
