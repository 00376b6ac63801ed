package sqlsearch

import (
	"fmt"
	"strconv"

	sb "github.com/kailas-cloud/facetdex/internal/db/sqlbuilder"
	"github.com/kailas-cloud/facetdex/internal/domain/datetime"
	"github.com/kailas-cloud/facetdex/internal/domain/resource"
	"github.com/kailas-cloud/facetdex/internal/domain/search/plan"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
)

// stage tracks one compilation. Transitions only move forward.
type stage int

const (
	stageEmpty stage = iota
	stageScoped
	stageFiltered
	stageFaceted
	stagePaginated
)

var stageNames = [...]string{"empty", "scoped", "filtered", "faceted", "paginated"}

func (s stage) String() string { return stageNames[s] }

// Request is a compiled query ready to execute.
type Request struct {
	Plan     plan.Plan
	Page     int
	PerPage  int
	Types    []TypeRequest
	Facets   []FacetRequest
	Suggest  *SuggestRequest
	Warnings []plan.Warning
	// Incorrect lists the reasons of always-false predicates.
	Incorrect []string
	Active    map[string]query.ActiveFacet
}

// TypeRequest holds the statements for one resource type.
type TypeRequest struct {
	Type    resource.Type
	Results *sb.Select
	Count   *sb.Select
}

// Messages returns warnings and incorrect-value reasons for the response.
func (r *Request) Messages() []string {
	out := make([]string, 0, len(r.Warnings)+len(r.Incorrect))
	for _, w := range r.Warnings {
		out = append(out, w.Message)
	}
	return append(out, r.Incorrect...)
}

// Diagnostics reports what the compilation changed or rejected.
func (r *Request) Diagnostics() plan.Diagnostics {
	return plan.Diagnostics{Warnings: r.Warnings, Incorrect: r.Incorrect}
}

// compiler is a disposable, single-query compilation.
type compiler struct {
	d           sb.Dialect
	tables      *Tables
	fieldNorm   *datetime.Normalizer
	valueBounds datetime.Bounds
	public      bool
	siteID      int64
	hasSite     bool
	aliases     int
	joins       []sb.Join
	stage       stage
	warnings    []plan.Warning
}

func (e *Engine) newCompiler(t *Tables, norm *datetime.Normalizer, q query.Query) *compiler {
	c := &compiler{
		d:           e.store.Dialect(),
		tables:      t,
		fieldNorm:   norm,
		valueBounds: e.opts.ValueBounds,
		public:      q.IsPublic(),
	}
	c.siteID, c.hasSite = q.SiteID()
	return c
}

func (c *compiler) advance(to stage) {
	if to < c.stage {
		panic(fmt.Sprintf("sqlsearch: compilation moved back from %s to %s", c.stage, to))
	}
	c.stage = to
}

func (c *compiler) nextAlias() string {
	c.aliases++
	return "v" + strconv.Itoa(c.aliases)
}

func (c *compiler) join(j sb.Join) { c.joins = append(c.joins, j) }

// filter folds every clause group and the date rows into one expression.
func (c *compiler) filter(p plan.Plan) sb.Expr {
	var groups []sb.Expr
	for _, g := range p.Groups {
		parts := make([]plan.Part[sb.Expr], len(g))
		for i, cl := range g {
			parts[i] = plan.Part[sb.Expr]{Joiner: cl.Joiner, Expr: c.property(cl)}
		}
		if e, ok := plan.Fold(parts, andExpr, orExpr); ok {
			groups = append(groups, e)
		}
	}
	groups = append(groups, c.dateTimes(p.DateTimes))
	return sb.And(groups...)
}

func (c *compiler) where(p plan.Plan, t resource.Type, filter sb.Expr) sb.Expr {
	return sb.And(sb.Eq("r.resource_type", t.Row()), filter, c.scope(p, t))
}

func (c *compiler) base(cols ...string) *sb.Select {
	return sb.NewSelect(cols...).From("resource", "r").Join(c.joins...)
}

// compile runs the stages for q against the lookup tables t.
func (e *Engine) compile(q query.Query, t *Tables) *Request {
	q = q.WithDefaults(e.opts.DefaultPerPage, e.opts.MaxPerPage)
	norm := datetime.NewNormalizer(e.opts.FieldBounds)
	c := e.newCompiler(t, norm, q)

	p := plan.Build(q, e.planOptions())
	req := &Request{
		Plan:     p,
		Page:     q.Page(),
		PerPage:  q.Limit(),
		Warnings: append([]plan.Warning(nil), p.Warnings...),
		Active:   q.ActiveFacets(),
	}
	if p.Empty() {
		return req
	}
	c.advance(stageScoped)

	filter := c.filter(p)
	req.Incorrect = sb.Reasons(filter)
	req.Warnings = append(req.Warnings, c.warnings...)
	wheres := make([]sb.Expr, len(p.ResourceTypes))
	for i, name := range p.ResourceTypes {
		wheres[i] = c.where(p, resource.Type(name), filter)
	}
	c.advance(stageFiltered)

	req.Facets = e.facets(q, t, norm)
	if s := q.Suggest(); s != nil {
		req.Suggest = c.suggest(*s, p.ResourceTypes)
	}
	c.advance(stageFaceted)

	order, desc, ok := c.order(q.Sort())
	if !ok {
		req.Warnings = append(req.Warnings, plan.Warning{
			Kind:    plan.WarnUnsupported,
			Message: fmt.Sprintf("unknown sort field %q: default order used", q.Sort().Field),
		})
	}
	for i, name := range p.ResourceTypes {
		results := c.base("r.id").Where(wheres[i]).GroupBy("r.id")
		if order != nil {
			results.OrderBy(order, desc)
		}
		results.OrderBy(sb.Raw("r.id"), false).Limit(q.Limit()).Offset(q.Offset())
		req.Types = append(req.Types, TypeRequest{
			Type:    resource.Type(name),
			Results: results,
			Count:   c.base("COUNT(DISTINCT r.id)").Where(wheres[i]),
		})
	}
	c.advance(stagePaginated)
	return req
}

var sortColumns = map[string]string{
	"id":       "r.id",
	"title":    "r.title",
	"created":  "r.created",
	"modified": "r.modified",
}

// order resolves a sort field to a column or to the first value of a
// property. ok is false for an unknown field.
func (c *compiler) order(s *query.Sort) (sb.Expr, bool, bool) {
	if s == nil || s.Field == "" {
		return nil, false, true
	}
	if col, ok := sortColumns[s.Field]; ok {
		return sb.Raw(col), s.Desc, true
	}
	id, ok := c.tables.PropertyID(s.Field)
	if !ok {
		return nil, false, false
	}
	return sb.Raw("(SELECT MIN(sv.value) FROM value sv WHERE sv.resource_id = r.id AND sv.property_id = ?)", id), s.Desc, true
}
