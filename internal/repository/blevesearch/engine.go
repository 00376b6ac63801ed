// Package blevesearch is the search engine over an embedded bleve index
// built by Indexer from the relational source.
package blevesearch

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"

	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/datetime"
	"github.com/kailas-cloud/facetdex/internal/domain/search/plan"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
)

// Engine defaults.
const (
	DefaultName       = "bleve"
	DefaultMaxClauses = 100
	DefaultPerPage    = 25
	DefaultMaxPerPage = 100
)

type searcher interface {
	Search(ctx context.Context, req *bleve.SearchRequest) (*bleve.SearchResult, error)
	GetInternal(key []byte) ([]byte, error)
}

// Options configure an Engine. Zero values take the defaults.
type Options struct {
	Name string
	// ResourceTypes restricts the searchable types; empty means every type
	// present in the index.
	ResourceTypes  []string
	ExcludedFields []string
	MaxClauses     int
	DefaultPerPage int
	MaxPerPage     int
	// FieldBounds limits years in created/modified rows.
	FieldBounds datetime.Bounds
	// ValueBounds limits years of date-times compared with property values.
	ValueBounds datetime.Bounds
}

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = DefaultName
	}
	if o.MaxClauses <= 0 {
		o.MaxClauses = DefaultMaxClauses
	}
	if o.DefaultPerPage <= 0 {
		o.DefaultPerPage = DefaultPerPage
	}
	if o.MaxPerPage <= 0 {
		o.MaxPerPage = DefaultMaxPerPage
	}
	if o.FieldBounds == (datetime.Bounds{}) {
		o.FieldBounds = datetime.FieldBounds
	}
	if o.ValueBounds == (datetime.Bounds{}) {
		o.ValueBounds = datetime.ValueBounds
	}
	return o
}

// Engine compiles queries to bleve searches and runs them.
type Engine struct {
	index searcher
	meta  *metaCache
	opts  Options
}

// New creates a bleve engine over s.
func New(s searcher, opts Options) *Engine {
	return &Engine{
		index: s,
		meta:  &metaCache{src: s},
		opts:  opts.withDefaults(),
	}
}

// Name returns the configured engine name.
func (e *Engine) Name() string { return e.opts.Name }

// ResourceTypes returns the configured searchable types, or those of the
// loaded index.
func (e *Engine) ResourceTypes() []string {
	if len(e.opts.ResourceTypes) > 0 {
		return e.opts.ResourceTypes
	}
	if t := e.meta.tables.Load(); t != nil {
		return t.meta.ResourceTypes
	}
	return nil
}

// Reset drops the cached index metadata.
func (e *Engine) Reset() { e.meta.reset() }

func (e *Engine) planOptions(t *tables) plan.Options {
	types := e.opts.ResourceTypes
	if len(types) == 0 {
		types = t.meta.ResourceTypes
	}
	return plan.Options{
		ResourceTypes:  types,
		ExcludedFields: e.opts.ExcludedFields,
		MaxClauses:     e.opts.MaxClauses,
	}
}

// Compile turns q into bleve search requests.
func (e *Engine) Compile(_ context.Context, q query.Query) (*Request, error) {
	t, err := e.meta.load()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBackendExecution, err)
	}
	return e.compile(q, t), nil
}

// Search compiles and executes q. A non-nil error (wrapping
// ErrBackendExecution) comes with a failed response.
func (e *Engine) Search(ctx context.Context, q query.Query) (response.Response, error) {
	req, err := e.Compile(ctx, q)
	if err != nil {
		return e.Failure(q), err
	}
	return e.Execute(ctx, req)
}

// Failure is the failed response for q, paginated as a compiled q would be.
func (e *Engine) Failure(q query.Query) response.Response {
	d := q.WithDefaults(e.opts.DefaultPerPage, e.opts.MaxPerPage)
	return response.Failure(d.Page(), d.Limit(), domain.ErrBackendExecution.Error())
}

// Execute runs a compiled request.
func (e *Engine) Execute(ctx context.Context, req *Request) (response.Response, error) {
	b := response.NewBuilder(req.Page, req.PerPage).
		ResourceTypes(req.Plan.ResourceTypes).
		ActiveFacets(req.Active).
		Warn(req.Messages()...)
	fail := func(err error) (response.Response, error) {
		return response.Failure(req.Page, req.PerPage, domain.ErrBackendExecution.Error()),
			fmt.Errorf("%w: %w", domain.ErrBackendExecution, err)
	}

	for _, tr := range req.Types {
		res, err := e.index.Search(ctx, tr.Search)
		if err != nil {
			return fail(fmt.Errorf("search %s: %w", tr.Type, err))
		}
		ids := make([]int64, 0, len(res.Hits))
		for _, hit := range res.Hits {
			if id, err := strconv.ParseInt(hit.ID, 10, 64); err == nil {
				ids = append(ids, id)
			}
		}
		b.AddResults(string(tr.Type), ids, int(res.Total))
	}

	for _, fr := range req.Facets {
		merged := map[string]int{}
		for _, sr := range fr.Searches {
			res, err := e.index.Search(ctx, sr)
			if err != nil {
				return fail(fmt.Errorf("facet %s: %w", fr.Spec.Name, err))
			}
			merged = response.MergeCounts(merged, termCounts(res, fr.Spec.Name))
		}
		b.FacetCounts(fr.Spec.Name, response.SortCounts(merged, fr.Spec.Order, fr.Spec.Limit))
	}

	if s := req.Suggest; s != nil {
		suggestions := []response.Suggestion{}
		if s.Search != nil {
			res, err := e.index.Search(ctx, s.Search)
			if err != nil {
				return fail(fmt.Errorf("suggest: %w", err))
			}
			suggestions = s.rank(res)
		}
		b.Suggestions(suggestions)
	}
	return b.Build(), nil
}

// Explain renders the bleve queries compiled for q as JSON.
func (e *Engine) Explain(ctx context.Context, q query.Query) (string, error) {
	req, err := e.Compile(ctx, q)
	if err != nil {
		return "", err
	}
	var out strings.Builder
	write := func(label string, sr *bleve.SearchRequest) error {
		raw, err := json.Marshal(sr.Query)
		if err != nil {
			return fmt.Errorf("render %s: %w", label, err)
		}
		fmt.Fprintf(&out, "-- %s\n%s from=%d size=%d", label, raw, sr.From, sr.Size)
		if len(sr.Sort) > 0 {
			fmt.Fprintf(&out, " sort=%s", sortLabel(sr))
		}
		for name, f := range sr.Facets {
			fmt.Fprintf(&out, " facet=%s:%s", name, f.Field)
		}
		out.WriteString("\n")
		return nil
	}
	for _, tr := range req.Types {
		if err := write(string(tr.Type), tr.Search); err != nil {
			return "", err
		}
	}
	for _, fr := range req.Facets {
		for _, sr := range fr.Searches {
			if err := write("facet "+fr.Spec.Name, sr); err != nil {
				return "", err
			}
		}
	}
	if req.Suggest != nil && req.Suggest.Search != nil {
		if err := write("suggest", req.Suggest.Search); err != nil {
			return "", err
		}
	}
	for _, m := range req.Messages() {
		fmt.Fprintf(&out, "-- warning: %s\n", m)
	}
	return out.String(), nil
}

func sortLabel(sr *bleve.SearchRequest) string {
	parts := make([]string, 0, len(sr.Sort))
	for _, s := range sr.Sort {
		f, ok := s.(*search.SortField)
		if !ok {
			continue
		}
		if f.Desc {
			parts = append(parts, "-"+f.Field)
		} else {
			parts = append(parts, f.Field)
		}
	}
	return strings.Join(parts, ",")
}
