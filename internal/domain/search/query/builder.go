package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/facetdex/internal/domain"
)

// Builder assembles a Query. Setters record the first validation error and
// Build reports it.
type Builder struct {
	q    Query
	errs []error
}

// NewBuilder starts an unscoped, first-page query.
func NewBuilder() *Builder {
	return &Builder{q: Query{page: 1}}
}

func (b *Builder) fail(format string, args ...any) {
	b.errs = append(b.errs, fmt.Errorf(format, args...))
}

// Text sets the free-text query.
func (b *Builder) Text(s string) *Builder {
	b.q.text = strings.TrimSpace(s)
	return b
}

// ResourceTypes adds types to the scope, keeping first-seen order.
func (b *Builder) ResourceTypes(types ...string) *Builder {
	for _, t := range types {
		t = strings.TrimSpace(t)
		if t == "" || contains(b.q.resourceTypes, t) {
			continue
		}
		b.q.resourceTypes = append(b.q.resourceTypes, t)
	}
	return b
}

// Property appends a property row.
func (b *Builder) Property(c Clause) *Builder {
	if c.Joiner == "" {
		c.Joiner = JoinAnd
	}
	b.q.properties = append(b.q.properties, c.clone())
	return b
}

// DateTime appends a created/modified row.
func (b *Builder) DateTime(c DateTimeClause) *Builder {
	if c.Joiner == "" {
		c.Joiner = JoinAnd
	}
	c.Value = strings.TrimSpace(c.Value)
	b.q.dateTimes = append(b.q.dateTimes, c)
	return b
}

// Filter adds legacy equality values for field.
func (b *Builder) Filter(field string, values ...string) *Builder {
	if field == "" {
		b.fail("filter field is required")
		return b
	}
	if b.q.filters == nil {
		b.q.filters = make(map[string][]string)
	}
	b.q.filters[field] = append(b.q.filters[field], values...)
	return b
}

// FilterQuery adds a typed clause on field.
func (b *Builder) FilterQuery(field string, c Clause) *Builder {
	if field == "" {
		b.fail("filter query field is required")
		return b
	}
	if b.q.filterQueries == nil {
		b.q.filterQueries = make(map[string][]Clause)
	}
	if c.Joiner == "" {
		c.Joiner = JoinAnd
	}
	c.Field = field
	b.q.filterQueries[field] = append(b.q.filterQueries[field], c.clone())
	return b
}

// FilterRange adds a from/to range on field.
func (b *Builder) FilterRange(field string, r Range) *Builder {
	if field == "" {
		b.fail("filter range field is required")
		return b
	}
	if r.IsEmpty() {
		return b
	}
	if b.q.filterRanges == nil {
		b.q.filterRanges = make(map[string][]Range)
	}
	b.q.filterRanges[field] = append(b.q.filterRanges[field], r)
	return b
}

// Scope replaces the scoping shortcuts.
func (b *Builder) Scope(s Scope) *Builder {
	b.q.scope = s.clone()
	return b
}

// HasMedia restricts items by whether they carry media.
func (b *Builder) HasMedia(has bool) *Builder {
	b.q.scope.HasMedia = &has
	return b
}

// MediaTypes restricts by media type.
func (b *Builder) MediaTypes(types ...string) *Builder {
	b.q.scope.MediaTypes = append(b.q.scope.MediaTypes, types...)
	return b
}

// ItemSets restricts by item set membership.
func (b *Builder) ItemSets(ids ...int64) *Builder {
	b.q.scope.ItemSetIDs = append(b.q.scope.ItemSetIDs, ids...)
	return b
}

// ResourceClasses restricts by resource class term.
func (b *Builder) ResourceClasses(terms ...string) *Builder {
	b.q.scope.ResourceClassTerms = append(b.q.scope.ResourceClassTerms, terms...)
	return b
}

// Sites restricts by site assignment.
func (b *Builder) Sites(ids ...int64) *Builder {
	b.q.scope.SiteIDs = append(b.q.scope.SiteIDs, ids...)
	return b
}

// Facet requests a facet. Names must be unique.
func (b *Builder) Facet(spec FacetSpec) *Builder {
	if spec.Name == "" {
		b.fail("facet name is required")
		return b
	}
	if spec.Type == "" {
		spec.Type = FacetValue
	}
	if !spec.Type.Valid() {
		b.fail("facet %q: unknown type %q", spec.Name, spec.Type)
		return b
	}
	if spec.Type.NeedsField() && spec.Field == "" {
		b.fail("facet %q: field is required for type %s", spec.Name, spec.Type)
		return b
	}
	if spec.Order == "" {
		spec.Order = OrderCountDesc
	}
	if !spec.Order.Valid() {
		b.fail("facet %q: unknown order %q", spec.Name, spec.Order)
		return b
	}
	if spec.Limit <= 0 {
		spec.Limit = DefaultFacetLimit
	}
	for _, f := range b.q.facets {
		if f.Name == spec.Name {
			b.fail("facet %q declared twice", spec.Name)
			return b
		}
	}
	spec.Languages = cloneStrings(spec.Languages)
	b.q.facets = append(b.q.facets, spec)
	return b
}

// ActiveFacet selects values of facet name.
func (b *Builder) ActiveFacet(name string, values ...string) *Builder {
	var kept []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" && !contains(kept, v) {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return b
	}
	b.active()[name] = ActiveFacet{Values: kept}
	return b
}

// ActiveFacetRange selects a range of facet name.
func (b *Builder) ActiveFacetRange(name string, r Range) *Builder {
	r.From, r.To = strings.TrimSpace(r.From), strings.TrimSpace(r.To)
	if r.IsEmpty() {
		return b
	}
	b.active()[name] = ActiveFacet{Range: &r}
	return b
}

func (b *Builder) active() map[string]ActiveFacet {
	if b.q.activeFacets == nil {
		b.q.activeFacets = make(map[string]ActiveFacet)
	}
	return b.q.activeFacets
}

// Sort orders by field; direction is ascending unless exactly "desc".
func (b *Builder) Sort(field, direction string) *Builder {
	field = strings.TrimSpace(field)
	if field == "" {
		b.q.sort = nil
		return b
	}
	b.q.sort = &Sort{Field: field, Desc: direction == "desc"}
	return b
}

// Page selects page-based pagination; offset = perPage * (page - 1).
func (b *Builder) Page(page, perPage int) *Builder {
	if page < 1 {
		b.fail("page must be >= 1, got %d", page)
		return b
	}
	if perPage <= 0 {
		b.fail("per_page must be > 0, got %d", perPage)
		return b
	}
	b.q.page, b.q.limit, b.q.byOffset = page, perPage, false
	b.q.offset = perPage * (page - 1)
	return b
}

// Offset selects offset-based pagination.
func (b *Builder) Offset(offset, limit int) *Builder {
	if offset < 0 {
		b.fail("offset must be >= 0, got %d", offset)
		return b
	}
	if limit <= 0 {
		b.fail("limit must be > 0, got %d", limit)
		return b
	}
	b.q.offset, b.q.limit, b.q.byOffset = offset, limit, true
	b.q.page = offset/limit + 1
	return b
}

// Public restricts the search to public resources.
func (b *Builder) Public(only bool) *Builder {
	b.q.isPublic = only
	return b
}

// Site runs the search inside a site.
func (b *Builder) Site(id int64) *Builder {
	b.q.siteID = &id
	return b
}

// Suggest asks for completions.
func (b *Builder) Suggest(s Suggest) *Builder {
	s.Text = strings.TrimSpace(s.Text)
	if s.Text == "" {
		b.q.suggest = nil
		return b
	}
	b.q.suggest = &s
	return b
}

// Build validates and returns the Query. Errors wrap domain.ErrInvalidQuery.
func (b *Builder) Build() (Query, error) {
	if len(b.errs) > 0 {
		return Query{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, errors.Join(b.errs...))
	}
	for name := range b.q.activeFacets {
		if name == "" {
			return Query{}, fmt.Errorf("%w: active facet without name", domain.ErrInvalidQuery)
		}
	}
	return b.q.clone(), nil
}

func (q Query) clone() Query {
	out := q
	out.resourceTypes = cloneStrings(q.resourceTypes)
	if q.filters != nil {
		out.filters = make(map[string][]string, len(q.filters))
		for k, v := range q.filters {
			out.filters[k] = cloneStrings(v)
		}
	}
	if q.filterQueries != nil {
		out.filterQueries = make(map[string][]Clause, len(q.filterQueries))
		for k, v := range q.filterQueries {
			cs := make([]Clause, len(v))
			for i, c := range v {
				cs[i] = c.clone()
			}
			out.filterQueries[k] = cs
		}
	}
	if q.filterRanges != nil {
		out.filterRanges = make(map[string][]Range, len(q.filterRanges))
		for k, v := range q.filterRanges {
			out.filterRanges[k] = append([]Range(nil), v...)
		}
	}
	if q.properties != nil {
		out.properties = make([]Clause, len(q.properties))
		for i, c := range q.properties {
			out.properties[i] = c.clone()
		}
	}
	out.dateTimes = append([]DateTimeClause(nil), q.dateTimes...)
	out.scope = q.scope.clone()
	out.facets = append([]FacetSpec(nil), q.facets...)
	if q.activeFacets != nil {
		out.activeFacets = make(map[string]ActiveFacet, len(q.activeFacets))
		for k, v := range q.activeFacets {
			out.activeFacets[k] = v
		}
	}
	if q.sort != nil {
		s := *q.sort
		out.sort = &s
	}
	if q.siteID != nil {
		id := *q.siteID
		out.siteID = &id
	}
	if q.suggest != nil {
		s := *q.suggest
		out.suggest = &s
	}
	return out
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
