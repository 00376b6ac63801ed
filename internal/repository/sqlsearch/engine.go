// Package sqlsearch is the internal search engine over the relational source.
package sqlsearch

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sb "github.com/kailas-cloud/facetdex/internal/db/sqlbuilder"
	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/datetime"
	"github.com/kailas-cloud/facetdex/internal/domain/resource"
	"github.com/kailas-cloud/facetdex/internal/domain/search/plan"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
)

// Engine defaults.
const (
	DefaultName       = "sql"
	DefaultMaxClauses = 50
	DefaultPerPage    = 25
	DefaultMaxPerPage = 100
)

// store is the relational source consumed by the engine (ISP).
type store interface {
	Select(ctx context.Context, sel *sb.Select) (*sql.Rows, error)
	Count(ctx context.Context, sel *sb.Select) (int, error)
	Dialect() sb.Dialect
}

// Options configure an Engine. Zero values take the defaults.
type Options struct {
	Name           string
	ResourceTypes  []string
	ExcludedFields []string
	MaxClauses     int
	DefaultPerPage int
	MaxPerPage     int
	// FieldBounds limits years in created/modified rows.
	FieldBounds datetime.Bounds
	// ValueBounds limits years of dates compared with property values.
	ValueBounds datetime.Bounds
}

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = DefaultName
	}
	if len(o.ResourceTypes) == 0 {
		o.ResourceTypes = resource.AllTypes
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

// Engine compiles queries to SQL and runs them.
type Engine struct {
	store  store
	lookup *Lookup
	opts   Options
}

// New creates an SQL engine over s.
func New(s store, opts Options) *Engine {
	return &Engine{store: s, lookup: NewLookup(s), opts: opts.withDefaults()}
}

// Name returns the configured engine name.
func (e *Engine) Name() string { return e.opts.Name }

// ResourceTypes returns the searchable resource types.
func (e *Engine) ResourceTypes() []string { return e.opts.ResourceTypes }

// Lookup returns the property and class lookup, e.g. to Reset it.
func (e *Engine) Lookup() *Lookup { return e.lookup }

func (e *Engine) planOptions() plan.Options {
	return plan.Options{
		ResourceTypes:  e.opts.ResourceTypes,
		ExcludedFields: e.opts.ExcludedFields,
		MaxClauses:     e.opts.MaxClauses,
	}
}

// Compile turns q into executable statements.
func (e *Engine) Compile(ctx context.Context, q query.Query) (*Request, error) {
	t, err := e.lookup.Tables(ctx)
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

	for _, tr := range req.Types {
		total, err := e.store.Count(ctx, tr.Count)
		if err != nil {
			return fail(fmt.Errorf("count %s: %w", tr.Type, err))
		}
		ids, err := e.ids(ctx, tr.Results)
		if err != nil {
			return fail(fmt.Errorf("select %s: %w", tr.Type, err))
		}
		b.AddResults(string(tr.Type), ids, total)
	}

	for _, fr := range req.Facets {
		merged := map[string]int{}
		for _, sel := range fr.Selects {
			counts, err := e.counts(ctx, sel)
			if err != nil {
				return fail(fmt.Errorf("facet %s: %w", fr.Spec.Name, err))
			}
			if fr.RowTypes {
				counts = rowsToTypes(counts)
			}
			merged = response.MergeCounts(merged, counts)
		}
		b.FacetCounts(fr.Spec.Name, response.SortCounts(merged, fr.Spec.Order, fr.Spec.Limit))
	}

	if req.Suggest != nil {
		s, err := e.suggestions(ctx, req.Suggest.Select)
		if err != nil {
			return fail(fmt.Errorf("suggest: %w", err))
		}
		b.Suggestions(s)
	}
	return b.Build(), nil
}

// Explain renders the statements compiled for q.
func (e *Engine) Explain(ctx context.Context, q query.Query) (string, error) {
	req, err := e.Compile(ctx, q)
	if err != nil {
		return "", err
	}
	d := e.store.Dialect()
	var out strings.Builder
	write := func(label string, sel *sb.Select) {
		sqlText, args := sel.Build(d)
		fmt.Fprintf(&out, "-- %s\n%s;\n", label, sqlText)
		if len(args) > 0 {
			fmt.Fprintf(&out, "-- args: %v\n", args)
		}
	}
	for _, tr := range req.Types {
		write(string(tr.Type)+" count", tr.Count)
		write(string(tr.Type)+" results", tr.Results)
	}
	for _, fr := range req.Facets {
		for _, sel := range fr.Selects {
			write("facet "+fr.Spec.Name, sel)
		}
	}
	if req.Suggest != nil {
		write("suggest", req.Suggest.Select)
	}
	for _, m := range req.Messages() {
		fmt.Fprintf(&out, "-- warning: %s\n", m)
	}
	return out.String(), nil
}

func (e *Engine) ids(ctx context.Context, sel *sb.Select) ([]int64, error) {
	rows, err := e.store.Select(ctx, sel)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (e *Engine) counts(ctx context.Context, sel *sb.Select) (map[string]int, error) {
	rows, err := e.store.Select(ctx, sel)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := map[string]int{}
	for rows.Next() {
		var (
			value string
			n     int
		)
		if err := rows.Scan(&value, &n); err != nil {
			return nil, err
		}
		out[value] += n
	}
	return out, rows.Err()
}

func (e *Engine) suggestions(ctx context.Context, sel *sb.Select) ([]response.Suggestion, error) {
	rows, err := e.store.Select(ctx, sel)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []response.Suggestion
	for rows.Next() {
		var s response.Suggestion
		if err := rows.Scan(&s.Value, &s.Weight); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func rowsToTypes(counts map[string]int) map[string]int {
	out := make(map[string]int, len(counts))
	for row, n := range counts {
		t, err := resource.FromRow(row)
		if err != nil {
			continue
		}
		out[string(t)] += n
	}
	return out
}
