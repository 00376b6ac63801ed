// Package query holds the engine-agnostic search request value object.
package query

import (
	"sort"
	"strings"
)

// Scope holds the scoping shortcuts compiled as specialized predicates.
type Scope struct {
	HasMedia           *bool
	MediaTypes         []string
	ItemSetIDs         []int64
	ResourceClassTerms []string
	SiteIDs            []int64
}

// IsEmpty reports whether no shortcut is set.
func (s Scope) IsEmpty() bool {
	return s.HasMedia == nil && len(s.MediaTypes) == 0 && len(s.ItemSetIDs) == 0 &&
		len(s.ResourceClassTerms) == 0 && len(s.SiteIDs) == 0
}

func (s Scope) clone() Scope {
	out := Scope{
		MediaTypes:         cloneStrings(s.MediaTypes),
		ResourceClassTerms: cloneStrings(s.ResourceClassTerms),
	}
	if s.HasMedia != nil {
		v := *s.HasMedia
		out.HasMedia = &v
	}
	if s.ItemSetIDs != nil {
		out.ItemSetIDs = append([]int64(nil), s.ItemSetIDs...)
	}
	if s.SiteIDs != nil {
		out.SiteIDs = append([]int64(nil), s.SiteIDs...)
	}
	return out
}

// Sort is a single-field ordering.
type Sort struct {
	Field string
	Desc  bool
}

// Suggest asks for text completions of a prefix.
type Suggest struct {
	Text  string
	Field string
	Limit int
}

// Query is a complete, validated search request. Build one with Builder.
type Query struct {
	text          string
	resourceTypes []string
	filters       map[string][]string
	filterQueries map[string][]Clause
	filterRanges  map[string][]Range
	properties    []Clause
	dateTimes     []DateTimeClause
	scope         Scope
	facets        []FacetSpec
	activeFacets  map[string]ActiveFacet
	sort          *Sort
	page          int
	offset        int
	limit         int
	byOffset      bool
	isPublic      bool
	siteID        *int64
	suggest       *Suggest
}

// Text returns the trimmed free-text query.
func (q Query) Text() string { return q.text }

// ResourceTypes returns the requested scope; empty means unscoped.
func (q Query) ResourceTypes() []string { return q.resourceTypes }

// Filters returns the legacy equality filters keyed by field.
func (q Query) Filters() map[string][]string { return q.filters }

// FilterQueries returns typed clauses keyed by field.
func (q Query) FilterQueries() map[string][]Clause { return q.filterQueries }

// FilterRanges returns from/to ranges keyed by field.
func (q Query) FilterRanges() map[string][]Range { return q.filterRanges }

// Properties returns the property rows in their submitted order.
func (q Query) Properties() []Clause { return q.properties }

// DateTimes returns the created/modified rows in their submitted order.
func (q Query) DateTimes() []DateTimeClause { return q.dateTimes }

// Scope returns the scoping shortcuts.
func (q Query) Scope() Scope { return q.scope }

// Facets returns the requested facets in order.
func (q Query) Facets() []FacetSpec { return q.facets }

// Facet returns the facet named name.
func (q Query) Facet(name string) (FacetSpec, bool) {
	for _, f := range q.facets {
		if f.Name == name {
			return f, true
		}
	}
	return FacetSpec{}, false
}

// ActiveFacets returns the current facet selections.
func (q Query) ActiveFacets() map[string]ActiveFacet { return q.activeFacets }

// Sort returns the ordering, nil for engine default.
func (q Query) Sort() *Sort { return q.sort }

// Page returns the 1-based page.
func (q Query) Page() int { return q.page }

// Offset returns the number of results to skip.
func (q Query) Offset() int { return q.offset }

// Limit returns the page size; 0 means engine default.
func (q Query) Limit() int { return q.limit }

// IsPublic reports whether only public resources are searched.
func (q Query) IsPublic() bool { return q.isPublic }

// SiteID returns the site the search runs in, if any.
func (q Query) SiteID() (int64, bool) {
	if q.siteID == nil {
		return 0, false
	}
	return *q.siteID, true
}

// Suggest returns suggestion options, nil when none were requested.
func (q Query) Suggest() *Suggest { return q.suggest }

// FilterFields returns the keys of m sorted, for deterministic compilation.
func FilterFields[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WithoutActiveFacet returns a copy of q without the selection of facet name.
func (q Query) WithoutActiveFacet(name string) Query {
	if _, ok := q.activeFacets[name]; !ok {
		return q
	}
	out := q
	out.activeFacets = make(map[string]ActiveFacet, len(q.activeFacets)-1)
	for k, v := range q.activeFacets {
		if k != name {
			out.activeFacets[k] = v
		}
	}
	return out
}

// WithDefaults returns a copy with limit filled in when unset and capped at
// maxLimit when maxLimit > 0, keeping offset = limit * (page - 1).
func (q Query) WithDefaults(defaultLimit, maxLimit int) Query {
	out := q
	if out.limit <= 0 {
		out.limit = defaultLimit
	}
	if maxLimit > 0 && out.limit > maxLimit {
		out.limit = maxLimit
	}
	if out.page < 1 {
		out.page = 1
	}
	if out.byOffset {
		out.page = out.offset/out.limit + 1
		return out
	}
	out.offset = out.limit * (out.page - 1)
	return out
}

// WithResourceTypes returns a copy of q scoped to types when q names none.
func (q Query) WithResourceTypes(types ...string) Query {
	if len(q.resourceTypes) > 0 || len(types) == 0 {
		return q
	}
	out := q
	out.resourceTypes = cloneStrings(types)
	return out
}

// WithSuggest returns a copy of q asking for suggestions.
func (q Query) WithSuggest(s Suggest) Query {
	out := q
	s.Text = strings.TrimSpace(s.Text)
	out.suggest = &s
	return out
}

// WithFacets returns a copy of q that also requests specs whose names q
// does not already declare. Zero fields take the Builder defaults.
func (q Query) WithFacets(specs ...FacetSpec) Query {
	out := q
	out.facets = append([]FacetSpec(nil), q.facets...)
	for _, s := range specs {
		if _, ok := q.Facet(s.Name); ok || s.Name == "" {
			continue
		}
		if s.Type == "" {
			s.Type = FacetValue
		}
		if s.Order == "" {
			s.Order = OrderCountDesc
		}
		if s.Limit <= 0 {
			s.Limit = DefaultFacetLimit
		}
		out.facets = append(out.facets, s)
	}
	return out
}
