package blevesearch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	bq "github.com/blevesearch/bleve/v2/search/query"

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

// TypeRequest is the bleve search for one resource type.
type TypeRequest struct {
	Type   resource.Type
	Search *bleve.SearchRequest
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

type compiler struct {
	tables      *tables
	fieldNorm   *datetime.Normalizer
	valueBounds datetime.Bounds
	public      bool
	siteID      int64
	hasSite     bool
	warnings    []plan.Warning
	incorrect   []string
}

func (e *Engine) newCompiler(t *tables, norm *datetime.Normalizer, q query.Query) *compiler {
	c := &compiler{
		tables:      t,
		fieldNorm:   norm,
		valueBounds: e.opts.ValueBounds,
		public:      q.IsPublic(),
	}
	c.siteID, c.hasSite = q.SiteID()
	return c
}

func (c *compiler) warn(format string, args ...any) {
	c.warnings = append(c.warnings, plan.Warning{Kind: plan.WarnUnsupported, Message: fmt.Sprintf(format, args...)})
}

func (c *compiler) fail(reason string) bq.Query {
	c.incorrect = append(c.incorrect, reason)
	return matchNone()
}

func (c *compiler) filter(p plan.Plan) bq.Query {
	var groups []bq.Query
	for _, g := range p.Groups {
		parts := make([]plan.Part[bq.Query], 0, len(g))
		for _, cl := range g {
			parts = append(parts, plan.Part[bq.Query]{Joiner: cl.Joiner, Expr: c.property(cl)})
		}
		if q, ok := plan.Fold(parts, andPair, orPair); ok {
			groups = append(groups, q)
		}
	}
	if len(p.DateTimes) > 0 {
		groups = append(groups, c.dateTimes(p.DateTimes))
	}
	return and(groups...)
}

func andPair(a, b bq.Query) bq.Query { return and(a, b) }

func orPair(a, b bq.Query) bq.Query { return or(a, b) }

// property translates one normalized clause. Negative types exclude every
// document holding a value that matches the positive form.
func (c *compiler) property(cl query.Clause) bq.Query {
	positive := cl.Type.Positive()
	ids, anywhere := c.targets(cl)
	c.checkResourceIDs(positive, cl)

	var match bq.Query
	switch positive.Shape() {
	case comparison.ShapeLinked, comparison.ShapeLinkedBy:
		match = c.linked(positive, cl.Values, ids, anywhere)
	default:
		match = c.match(positive, cl.Values, ids, anywhere)
	}
	if match == nil {
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

// match is the positive query; nil for values the type cannot use.
func (c *compiler) match(t comparison.Type, values []string, ids []int64, anywhere bool) bq.Query {
	perField := func(field func(int64) string, all string, one func(field, v string) bq.Query, vs []string) bq.Query {
		fields := []string{all}
		if !anywhere {
			fields = fields[:0]
			for _, id := range ids {
				fields = append(fields, field(id))
			}
		}
		var alts []bq.Query
		for _, f := range fields {
			for _, v := range vs {
				alts = append(alts, one(f, v))
			}
		}
		return or(alts...)
	}

	switch t.Shape() {
	case comparison.ShapeExists:
		if anywhere {
			ids = c.tables.meta.Used
		}
		return anyID(fieldFields, ids...)
	case comparison.ShapeResource:
		vs := idStrings(values)
		if len(vs) == 0 {
			return nil
		}
		return perField(resField, fieldRes, term, vs)
	case comparison.ShapeDataType:
		var vs []string
		for _, v := range values {
			if anywhere {
				vs = append(vs, v)
				continue
			}
			for _, id := range ids {
				vs = append(vs, strconv.FormatInt(id, 10)+":"+v)
			}
		}
		return anyTerm(fieldDataTypes, vs...)
	case comparison.ShapeRange:
		if anywhere {
			ids = c.tables.meta.Used
		}
		var alts []bq.Query
		for _, id := range ids {
			for _, v := range values {
				alts = append(alts, c.rangeMatch(id, t, v))
			}
		}
		return or(alts...)
	}

	var one func(field, v string) bq.Query
	switch t.Shape() {
	case comparison.ShapeContains:
		one = contains
	case comparison.ShapePrefix:
		one = prefix
	case comparison.ShapeSuffix:
		one = suffix
	default:
		one = term
	}
	return perField(valueField, fieldValues, one, lower(values))
}

// rangeMatch orders the literals of property id against v. A numeric v
// compares numerically with numeric literals and as text with the others;
// otherwise a date-time v compares against its ISO boundary, and anything
// else compares as text.
func (c *compiler) rangeMatch(id int64, t comparison.Type, v string) bq.Query {
	bound := v
	if dt, err := datetime.Parse(v, c.valueBounds); err == nil {
		bound = dt.Prefix()
		if t == comparison.Gt || t == comparison.Lte {
			bound = dt.Last().ISO()
		}
	}

	n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return orderText(literalField(id), t, bound)
	}
	return or(orderNumber(numberField(id), t, n), orderText(textField(id), t, bound))
}

func orderText(field string, t comparison.Type, v string) bq.Query {
	switch t {
	case comparison.Gt:
		return textRange(field, v, "", false, false)
	case comparison.Gte:
		return textRange(field, v, "", true, false)
	case comparison.Lt:
		return textRange(field, "", v, false, false)
	default:
		return textRange(field, "", v, false, true)
	}
}

func orderNumber(field string, t comparison.Type, n float64) bq.Query {
	switch t {
	case comparison.Gt:
		return numeric(field, &n, nil, false, false)
	case comparison.Gte:
		return numeric(field, &n, nil, true, false)
	case comparison.Lt:
		return numeric(field, nil, &n, false, false)
	default:
		return numeric(field, nil, &n, false, true)
	}
}

// linked matches resources other resources point at, through the targeted
// properties and, for lres, from the given subjects.
func (c *compiler) linked(t comparison.Type, values []string, ids []int64, anywhere bool) bq.Query {
	if t == comparison.Lex {
		if anywhere {
			return term(fieldLinked, "1")
		}
		return anyID(fieldLinkProps, ids...)
	}
	subjects := idStrings(values)
	if len(subjects) == 0 {
		return nil
	}
	if anywhere {
		return anyTerm(fieldLinkers, subjects...)
	}
	var keys []string
	for _, id := range ids {
		for _, s := range subjects {
			keys = append(keys, strconv.FormatInt(id, 10)+":"+s)
		}
	}
	return anyTerm(fieldLinkers, keys...)
}

// dateTimes folds created/modified rows. A malformed value never matches
// and is ANDed in whatever its joiner.
func (c *compiler) dateTimes(rows []query.DateTimeClause) bq.Query {
	parts := make([]plan.Part[bq.Query], 0, len(rows))
	for _, row := range rows {
		q, bad := c.dateTime(row)
		joiner := row.Joiner
		if bad {
			joiner = query.JoinAnd
		}
		parts = append(parts, plan.Part[bq.Query]{Joiner: joiner, Expr: q})
	}
	q, _ := plan.Fold(parts, andPair, orPair)
	return q
}

func (c *compiler) dateTime(row query.DateTimeClause) (bq.Query, bool) {
	field := string(row.Field)
	switch row.Type {
	case comparison.Ex:
		return present(field), false
	case comparison.Nex:
		return not(present(field)), false
	}

	first, last, ok := c.fieldNorm.Span(row.Value)
	if !ok {
		return c.fail("incorrect value: " + field + " " + string(row.Type) + " " + row.Value), true
	}
	lo := float64(first.Time().Unix())
	hi := float64(last.Time().Unix())
	switch row.Type {
	case comparison.Gt:
		return numeric(field, &hi, nil, false, false), false
	case comparison.Gte:
		return numeric(field, &lo, nil, true, false), false
	case comparison.Lt:
		return numeric(field, nil, &lo, false, false), false
	case comparison.Lte:
		return numeric(field, nil, &hi, false, true), false
	case comparison.Eq:
		return numeric(field, &lo, &hi, true, true), false
	case comparison.Neq:
		return not(numeric(field, &lo, &hi, true, true)), false
	}
	return c.fail("unsupported date comparison: " + string(row.Type)), true
}

// scope restricts documents to type t and the visibility, site and
// shortcut filters. Shortcuts that do not apply to t are ignored.
func (c *compiler) scope(p plan.Plan, t resource.Type) bq.Query {
	s := p.Scope
	parts := []bq.Query{term(fieldType, string(t))}
	if c.public {
		parts = append(parts, term(fieldPublic, "1"))
	}
	if c.hasSite {
		parts = append(parts, anyID(fieldSite, c.siteID))
	}
	if len(s.SiteIDs) > 0 {
		parts = append(parts, anyID(fieldSite, s.SiteIDs...))
	}
	if s.HasMedia != nil && t == resource.Items {
		has := term(fieldHasMedia, "1")
		if !*s.HasMedia {
			has = not(has)
		}
		parts = append(parts, has)
	}
	if len(s.MediaTypes) > 0 && t != resource.ItemSets {
		parts = append(parts, anyTerm(fieldMediaType, s.MediaTypes...))
	}
	if len(s.ItemSetIDs) > 0 {
		parts = append(parts, anyID(fieldItemSet, s.ItemSetIDs...))
	}
	if len(s.ResourceClassTerms) > 0 {
		parts = append(parts, anyTerm(fieldClass, s.ResourceClassTerms...))
	}
	for _, con := range p.Constraints {
		switch con.Kind {
		case plan.ConstrainResourceClass:
			parts = append(parts, anyTerm(fieldClass, con.Values...))
		case plan.ConstrainItemSet:
			parts = append(parts, anyID(fieldItemSet, parseIDs(con.Values)...))
		}
	}
	return and(parts...)
}

func (c *compiler) where(p plan.Plan, t resource.Type, filter bq.Query) bq.Query {
	return and(c.scope(p, t), filter)
}

// checkResourceIDs warns when a res or lres clause drops some of its values.
func (c *compiler) checkResourceIDs(t comparison.Type, cl query.Clause) {
	if t != comparison.Res && t != comparison.Lres {
		return
	}
	if ids, rejected := plan.ResourceIDs(cl.Values); len(ids) > 0 && len(rejected) > 0 {
		c.warnings = append(c.warnings, plan.IgnoredResourceIDs(cl.Field, rejected))
	}
}

// idStrings keeps the numeric values, in canonical form.
func idStrings(values []string) []string {
	ids, _ := plan.ResourceIDs(values)
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strconv.FormatInt(id, 10)
	}
	return out
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

var sortFields = map[string]string{
	"id":       fieldID,
	"title":    fieldTitle,
	"created":  fieldCreated,
	"modified": fieldModified,
}

var numericSort = map[string]bool{fieldID: true, fieldCreated: true, fieldModified: true}

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

	order := c.sortOrder(q.Sort())
	for _, name := range p.ResourceTypes {
		rt := resource.Type(name)
		sr := bleve.NewSearchRequestOptions(c.where(p, rt, filter), q.Limit(), q.Offset(), false)
		sr.SortByCustom(order)
		req.Types = append(req.Types, TypeRequest{Type: rt, Search: sr})
	}
	req.Warnings = append(req.Warnings, c.warnings...)
	req.Incorrect = c.incorrect
	return req
}

// sortOrder sorts by the requested field, then by id. Documents missing
// the field come last.
func (c *compiler) sortOrder(s *query.Sort) search.SortOrder {
	byID := &search.SortField{Field: fieldID, Type: search.SortFieldAsNumber, Mode: search.SortFieldMin, Missing: search.SortFieldMissingLast}
	if s == nil || s.Field == "" {
		return search.SortOrder{byID}
	}
	field, known := sortFields[s.Field]
	if !known {
		id, ok := c.tables.PropertyID(s.Field)
		if !ok {
			c.warn("unknown sort field %q: default order used", s.Field)
			return search.SortOrder{byID}
		}
		field = literalField(id)
	}
	typ := search.SortFieldAsString
	if numericSort[field] {
		typ = search.SortFieldAsNumber
	}
	first := &search.SortField{Field: field, Type: typ, Desc: s.Desc, Mode: search.SortFieldMin, Missing: search.SortFieldMissingLast}
	if s.Desc {
		first.Mode = search.SortFieldMax
	}
	if field == fieldID {
		return search.SortOrder{first}
	}
	return search.SortOrder{first, byID}
}
