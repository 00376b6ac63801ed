// Package search is the search engine over a Redis (Valkey) FT index built
// by Indexer from the relational source.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/facetdex/internal/db"
	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/datetime"
	"github.com/kailas-cloud/facetdex/internal/domain/search/plan"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
)

// Engine defaults.
const (
	DefaultName       = "redis"
	DefaultMaxClauses = 50
	DefaultPerPage    = 25
	DefaultMaxPerPage = 100
)

// store is the subset of db.Store the engine reads (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
	Aggregate(ctx context.Context, q *db.AggregateQuery) ([]db.AggregateRow, error)
}

// Options configure an Engine. Zero values take the defaults.
type Options struct {
	Name   string
	Prefix string
	// ResourceTypes restricts the searchable types; empty means every type
	// present in the index.
	ResourceTypes  []string
	ExcludedFields []string
	MaxClauses     int
	DefaultPerPage int
	MaxPerPage     int
	// FieldBounds limits years in created/modified rows.
	FieldBounds datetime.Bounds
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
	return o
}

// Engine compiles queries to FT.SEARCH / FT.AGGREGATE and runs them.
type Engine struct {
	store store
	keys  Keys
	meta  *metaCache
	opts  Options
}

// New creates an FT engine over s.
func New(s store, opts Options) *Engine {
	opts = opts.withDefaults()
	keys := NewKeys(opts.Prefix)
	return &Engine{
		store: s,
		keys:  keys,
		meta:  &metaCache{src: s, key: keys.Meta()},
		opts:  opts,
	}
}

// Name returns the configured engine name.
func (e *Engine) Name() string { return e.opts.Name }

// ResourceTypes returns the configured searchable types. An engine
// configured without them reports the types of the loaded index.
func (e *Engine) ResourceTypes() []string {
	if len(e.opts.ResourceTypes) > 0 {
		return e.opts.ResourceTypes
	}
	if t := e.meta.tables.Load(); t != nil {
		return t.meta.ResourceTypes
	}
	return nil
}

// Reset drops the cached index metadata, e.g. after a reindex.
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

// Compile turns q into executable FT commands.
func (e *Engine) Compile(ctx context.Context, q query.Query) (*Request, error) {
	t, err := e.meta.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBackendExecution, err)
	}
	return e.compile(q, t), nil
}

// Search compiles and executes q. The response is always usable; a non-nil
// error (wrapping ErrBackendExecution) comes with a failed response.
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

	for i := range req.Types {
		tr := &req.Types[i]
		res, err := e.store.Search(ctx, &tr.Search)
		if err != nil {
			return fail(fmt.Errorf("search %s: %w", tr.Type, err))
		}
		ids := make([]int64, 0, len(res.Entries))
		for _, entry := range res.Entries {
			if id, ok := e.keys.ID(entry.Key); ok {
				ids = append(ids, id)
			}
		}
		b.AddResults(string(tr.Type), ids, res.Total)
	}

	for _, fr := range req.Facets {
		merged := map[string]int{}
		for i := range fr.Aggregates {
			rows, err := e.store.Aggregate(ctx, &fr.Aggregates[i])
			if err != nil {
				return fail(fmt.Errorf("facet %s: %w", fr.Spec.Name, err))
			}
			merged = response.MergeCounts(merged, rowCounts(rows))
		}
		b.FacetCounts(fr.Spec.Name, response.SortCounts(merged, fr.Spec.Order, fr.Spec.Limit))
	}

	if s := req.Suggest; s != nil {
		suggestions := []response.Suggestion{}
		if s.Aggregate != nil {
			rows, err := e.store.Aggregate(ctx, s.Aggregate)
			if err != nil {
				return fail(fmt.Errorf("suggest: %w", err))
			}
			suggestions = s.rank(rows)
		}
		b.Suggestions(suggestions)
	}
	return b.Build(), nil
}

// Explain renders the commands compiled for q.
func (e *Engine) Explain(ctx context.Context, q query.Query) (string, error) {
	req, err := e.Compile(ctx, q)
	if err != nil {
		return "", err
	}
	var out strings.Builder
	for _, tr := range req.Types {
		s := tr.Search
		fmt.Fprintf(&out, "-- %s\nFT.SEARCH %s '%s'", tr.Type, s.Index, s.Query)
		if s.SortBy != "" {
			dir := "ASC"
			if s.SortDesc {
				dir = "DESC"
			}
			fmt.Fprintf(&out, " SORTBY %s %s", s.SortBy, dir)
		}
		fmt.Fprintf(&out, " LIMIT %d %d\n", s.Offset, s.Limit)
	}
	aggregate := func(label string, a *db.AggregateQuery) {
		fmt.Fprintf(&out, "-- %s\nFT.AGGREGATE %s '%s' GROUPBY @%s\n", label, a.Index, a.Query, a.Field)
	}
	for _, fr := range req.Facets {
		for i := range fr.Aggregates {
			aggregate("facet "+fr.Spec.Name, &fr.Aggregates[i])
		}
	}
	if req.Suggest != nil && req.Suggest.Aggregate != nil {
		aggregate("suggest", req.Suggest.Aggregate)
	}
	for _, m := range req.Messages() {
		fmt.Fprintf(&out, "-- warning: %s\n", m)
	}
	return out.String(), nil
}

func rowCounts(rows []db.AggregateRow) map[string]int {
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Value] += r.Count
	}
	return out
}
