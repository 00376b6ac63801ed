package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/facetdex/internal/db"
	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/datetime"
	"github.com/kailas-cloud/facetdex/internal/domain/resource"
	"github.com/kailas-cloud/facetdex/internal/domain/search/comparison"
	"github.com/kailas-cloud/facetdex/internal/domain/search/plan"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
)

// Request is a compiled query ready to execute.
type Request struct {
	Plan     plan.Plan
	Page     int
	PerPage  int
	Types    []TypeRequest
	Facets   []FacetRequest
	Suggest  *SuggestRequest
	Warnings []plan.Warning
	// Incorrect lists the reasons of never-matching predicates.
	Incorrect []string
	Active    map[string]query.ActiveFacet
}

// TypeRequest is the FT.SEARCH for one resource type.
type TypeRequest struct {
	Type   resource.Type
	Search db.SearchQuery
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

// compiler is a disposable, single-query translation.
type compiler struct {
	index     string
	tables    *tables
	fieldNorm *datetime.Normalizer
	public    bool
	siteID    int64
	hasSite   bool
	warnings  []plan.Warning
	incorrect []string
}

func (e *Engine) newCompiler(t *tables, norm *datetime.Normalizer, q query.Query) *compiler {
	c := &compiler{
		index:     e.keys.Index(),
		tables:    t,
		fieldNorm: norm,
		public:    q.IsPublic(),
	}
	c.siteID, c.hasSite = q.SiteID()
	return c
}

func (c *compiler) warn(format string, args ...any) {
	c.warnings = append(c.warnings, plan.Warning{Kind: plan.WarnUnsupported, Message: fmt.Sprintf(format, args...)})
}

func (c *compiler) fail(reason string) string {
	c.incorrect = append(c.incorrect, reason)
	return matchNone
}

// filter folds every clause group and the date rows into one query.
func (c *compiler) filter(p plan.Plan) string {
	var groups []string
	for _, g := range p.Groups {
		parts := make([]plan.Part[string], 0, len(g))
		for _, cl := range g {
			if q := c.property(cl); q != "" {
				parts = append(parts, plan.Part[string]{Joiner: cl.Joiner, Expr: q})
			}
		}
		if q, ok := plan.Fold(parts, andPair, orPair); ok {
			groups = append(groups, q)
		}
	}
	groups = append(groups, c.dateTimes(p.DateTimes))
	return and(groups...)
}

func andPair(a, b string) string { return and(a, b) }

func orPair(a, b string) string { return or(a, b) }

// property translates one normalized clause. Negative types exclude every
// document holding a value that matches the positive form. An empty
// result means the clause was skipped.
func (c *compiler) property(cl query.Clause) string {
	positive := cl.Type.Positive()
	switch positive.Shape() {
	case comparison.ShapeRange, comparison.ShapeLinked, comparison.ShapeLinkedBy:
		c.warn("%s: comparison %q on %s ignored", domain.ErrNotSupported, cl.Type, label(cl.Field))
		return ""
	}

	ids, anywhere := c.targets(cl)
	if positive == comparison.Res {
		if parsed, rejected := plan.ResourceIDs(cl.Values); len(parsed) > 0 && len(rejected) > 0 {
			c.warnings = append(c.warnings, plan.IgnoredResourceIDs(cl.Field, rejected))
		}
	}
	match, ok := c.match(positive, cl.Values, ids, anywhere)
	if !ok {
		return c.fail("incorrect value: " + strings.Join(cl.Values, ", "))
	}
	if cl.Type.IsPositive() {
		return match
	}
	return not(match)
}

// targets resolves the properties a clause searches. anywhere is true when
// every property qualifies.
func (c *compiler) targets(cl query.Clause) (ids []int64, anywhere bool) {
	if cl.Field != "" {
		if id, ok := c.tables.PropertyID(cl.Field); ok {
			return []int64{id}, false
		}
		return nil, false
	}
	if len(cl.Except) == 0 {
		return nil, true
	}
	excluded := make(map[int64]struct{}, len(cl.Except))
	for _, f := range cl.Except {
		if id, ok := c.tables.PropertyID(f); ok {
			excluded[id] = struct{}{}
		}
	}
	for _, id := range c.tables.meta.Used {
		if _, skip := excluded[id]; !skip {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, true
	}
	return ids, false
}

// match is the positive query. ok is false for values the type cannot use.
func (c *compiler) match(t comparison.Type, values []string, ids []int64, anywhere bool) (string, bool) {
	perField := func(field func(int64) string, all string, patterns []string) string {
		if anywhere {
			return tag(all, patterns...)
		}
		alts := make([]string, 0, len(ids))
		for _, id := range ids {
			alts = append(alts, tag(field(id), patterns...))
		}
		if len(alts) == 0 {
			return matchNone
		}
		return or(alts...)
	}

	switch t.Shape() {
	case comparison.ShapeExists:
		if anywhere {
			ids = c.tables.meta.Used
		}
		return tagIDs(fieldFields, ids...), true
	case comparison.ShapeResource:
		parsed, _ := plan.ResourceIDs(values)
		patterns := make([]string, len(parsed))
		for i, id := range parsed {
			patterns[i] = strconv.FormatInt(id, 10)
		}
		if len(patterns) == 0 {
			return "", false
		}
		return perField(resField, fieldRes, patterns), true
	case comparison.ShapeDataType:
		var patterns []string
		for _, v := range values {
			if anywhere {
				patterns = append(patterns, escapeTag(v))
				continue
			}
			for _, id := range ids {
				patterns = append(patterns, escapeTag(strconv.FormatInt(id, 10)+":"+v))
			}
		}
		return tag(fieldDataTypes, patterns...), true
	}

	patterns := make([]string, len(values))
	for i, v := range values {
		v = escapeTag(v)
		switch t.Shape() {
		case comparison.ShapeContains:
			v = "*" + v + "*"
		case comparison.ShapePrefix:
			v += "*"
		case comparison.ShapeSuffix:
			v = "*" + v
		}
		patterns[i] = v
	}
	return perField(valueField, fieldValues, patterns), true
}

// dateTimes folds created/modified rows. A malformed value never matches
// and is ANDed in whatever its joiner.
func (c *compiler) dateTimes(rows []query.DateTimeClause) string {
	parts := make([]plan.Part[string], 0, len(rows))
	for _, row := range rows {
		q, bad := c.dateTime(row)
		joiner := row.Joiner
		if bad {
			joiner = query.JoinAnd
		}
		parts = append(parts, plan.Part[string]{Joiner: joiner, Expr: q})
	}
	q, _ := plan.Fold(parts, andPair, orPair)
	return q
}

func (c *compiler) dateTime(row query.DateTimeClause) (string, bool) {
	field := string(row.Field)
	switch row.Type {
	case comparison.Ex:
		return numeric(field, "-inf", "+inf"), false
	case comparison.Nex:
		return not(numeric(field, "-inf", "+inf")), false
	}

	first, last, ok := c.fieldNorm.Span(row.Value)
	if !ok {
		return c.fail("incorrect value: " + field + " " + string(row.Type) + " " + row.Value), true
	}
	lo := strconv.FormatInt(first.Time().Unix(), 10)
	hi := strconv.FormatInt(last.Time().Unix(), 10)
	switch row.Type {
	case comparison.Gt:
		return numeric(field, "("+hi, "+inf"), false
	case comparison.Gte:
		return numeric(field, lo, "+inf"), false
	case comparison.Lt:
		return numeric(field, "-inf", "("+lo), false
	case comparison.Lte:
		return numeric(field, "-inf", hi), false
	case comparison.Eq:
		return numeric(field, lo, hi), false
	case comparison.Neq:
		return not(numeric(field, lo, hi)), false
	}
	return c.fail("unsupported date comparison: " + string(row.Type)), true
}

// scope restricts documents to type t and the visibility, site and
// shortcut filters. Shortcuts that do not apply to t are ignored.
func (c *compiler) scope(p plan.Plan, t resource.Type) string {
	s := p.Scope
	parts := []string{tagValues(fieldType, string(t))}
	if c.public {
		parts = append(parts, tag(fieldPublic, "1"))
	}
	if c.hasSite {
		parts = append(parts, tagIDs(fieldSite, c.siteID))
	}
	if len(s.SiteIDs) > 0 {
		parts = append(parts, tagIDs(fieldSite, s.SiteIDs...))
	}
	if s.HasMedia != nil && t == resource.Items {
		has := tag(fieldHasMedia, "1")
		if !*s.HasMedia {
			has = not(has)
		}
		parts = append(parts, has)
	}
	if len(s.MediaTypes) > 0 && t != resource.ItemSets {
		parts = append(parts, tagValues(fieldMediaType, s.MediaTypes...))
	}
	if len(s.ItemSetIDs) > 0 {
		parts = append(parts, tagIDs(fieldItemSet, s.ItemSetIDs...))
	}
	if len(s.ResourceClassTerms) > 0 {
		parts = append(parts, tagValues(fieldClass, s.ResourceClassTerms...))
	}
	for _, con := range p.Constraints {
		switch con.Kind {
		case plan.ConstrainResourceClass:
			parts = append(parts, tagValues(fieldClass, con.Values...))
		case plan.ConstrainItemSet:
			parts = append(parts, tagIDs(fieldItemSet, parseIDs(con.Values)...))
		}
	}
	return and(parts...)
}

func (c *compiler) where(p plan.Plan, t resource.Type, filter string) string {
	return and(c.scope(p, t), filter)
}

func parseIDs(values []string) []int64 {
	var out []int64
	for _, v := range values {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			out = append(out, id)
		}
	}
	return out
}

func label(field string) string {
	if field == "" {
		return "any field"
	}
	return fmt.Sprintf("%q", field)
}

var sortFields = map[string]string{
	"id":       fieldID,
	"title":    fieldTitle,
	"created":  fieldCreated,
	"modified": fieldModified,
}

// compile translates q against the index metadata t.
func (e *Engine) compile(q query.Query, t *tables) *Request {
	q = q.WithDefaults(e.opts.DefaultPerPage, e.opts.MaxPerPage)
	norm := datetime.NewNormalizer(e.opts.FieldBounds)
	c := e.newCompiler(t, norm, q)

	p := plan.Build(q, e.planOptions(t))
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

	filter := c.filter(p)
	req.Facets = e.facets(q, t, norm, c)
	if s := q.Suggest(); s != nil {
		req.Suggest = c.suggest(*s, p.ResourceTypes)
	}

	sortBy, desc := fieldID, false
	if s := q.Sort(); s != nil && s.Field != "" {
		f, known := sortFields[s.Field]
		_, isProperty := t.PropertyID(s.Field)
		switch {
		case known:
			sortBy, desc = f, s.Desc
		case isProperty:
			c.warn("%s: sort by property %q, default order used", domain.ErrNotSupported, s.Field)
		default:
			c.warn("unknown sort field %q: default order used", s.Field)
		}
	}
	for _, name := range p.ResourceTypes {
		rt := resource.Type(name)
		req.Types = append(req.Types, TypeRequest{
			Type: rt,
			Search: db.SearchQuery{
				Index:    c.index,
				Query:    c.where(p, rt, filter),
				SortBy:   sortBy,
				SortDesc: desc,
				Offset:   q.Offset(),
				Limit:    q.Limit(),
			},
		})
	}
	req.Warnings = append(req.Warnings, c.warnings...)
	req.Incorrect = c.incorrect
	return req
}
