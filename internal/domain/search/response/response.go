// Package response holds the normalized search result container.
package response

import (
	"encoding/json"
	"strings"

	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
)

// FacetCount is the number of results carrying one facet value.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Suggestion is a ranked completion.
type Suggestion struct {
	Value  string `json:"value"`
	Weight int    `json:"weight"`
}

// Response is the result of one query execution. Build one with Builder;
// it is read-only afterwards.
type Response struct {
	success       bool
	message       string
	currentPage   int
	perPage       int
	resourceTypes []string
	results       map[string][]int64
	totals        map[string]int
	facetCounts   map[string][]FacetCount
	activeFacets  map[string]query.ActiveFacet
	suggestions   []Suggestion
}

// Success reports whether the backend executed the request.
func (r Response) Success() bool { return r.success }

// Message explains a failure or carries warnings; empty when none.
func (r Response) Message() string { return r.message }

// CurrentPage returns the 1-based page.
func (r Response) CurrentPage() int { return r.currentPage }

// PerPage returns the page size.
func (r Response) PerPage() int { return r.perPage }

// ResourceTypes returns the searched resource types.
func (r Response) ResourceTypes() []string { return r.resourceTypes }

// Results returns the page of ids for resourceType.
func (r Response) Results(resourceType string) []int64 { return r.results[resourceType] }

// Total returns the number of matches for resourceType.
func (r Response) Total(resourceType string) int { return r.totals[resourceType] }

// TotalResults sums matches across resource types.
func (r Response) TotalResults() int {
	n := 0
	for _, t := range r.totals {
		n += t
	}
	return n
}

// FacetCounts returns the counts for facet name.
func (r Response) FacetCounts(name string) []FacetCount { return r.facetCounts[name] }

// ActiveFacets returns the selections the query was run with.
func (r Response) ActiveFacets() map[string]query.ActiveFacet { return r.activeFacets }

// Suggestions returns completions, if requested.
func (r Response) Suggestions() []Suggestion { return r.suggestions }

type wire struct {
	Success       bool                         `json:"success"`
	Message       *string                      `json:"message"`
	CurrentPage   int                          `json:"current_page"`
	PerPage       int                          `json:"per_page"`
	TotalResults  int                          `json:"total_results"`
	ResourceTypes []string                     `json:"resource_types"`
	Results       map[string][]int64           `json:"results"`
	FacetCounts   map[string][]FacetCount      `json:"facet_counts"`
	ActiveFacets  map[string]query.ActiveFacet `json:"active_facets"`
	Suggestions   []Suggestion                 `json:"suggestions"`
}

// MarshalJSON renders the wire shape consumed by front-end scripts.
func (r Response) MarshalJSON() ([]byte, error) {
	w := wire{
		Success:       r.success,
		CurrentPage:   r.currentPage,
		PerPage:       r.perPage,
		TotalResults:  r.TotalResults(),
		ResourceTypes: r.resourceTypes,
		Results:       make(map[string][]int64, len(r.results)),
		FacetCounts:   r.facetCounts,
		ActiveFacets:  r.activeFacets,
		Suggestions:   r.suggestions,
	}
	if r.message != "" {
		msg := r.message
		w.Message = &msg
	}
	if w.ResourceTypes == nil {
		w.ResourceTypes = []string{}
	}
	for k, v := range r.results {
		if v == nil {
			v = []int64{}
		}
		w.Results[k] = v
	}
	if w.FacetCounts == nil {
		w.FacetCounts = map[string][]FacetCount{}
	}
	if w.ActiveFacets == nil {
		w.ActiveFacets = map[string]query.ActiveFacet{}
	}
	if w.Suggestions == nil {
		w.Suggestions = []Suggestion{}
	}
	return json.Marshal(w)
}

// Builder populates a Response during one execution.
type Builder struct {
	r        Response
	warnings []string
}

// NewBuilder starts a successful response for the given page.
func NewBuilder(page, perPage int) *Builder {
	return &Builder{r: Response{
		success:     true,
		currentPage: page,
		perPage:     perPage,
		results:     make(map[string][]int64),
		totals:      make(map[string]int),
		facetCounts: make(map[string][]FacetCount),
	}}
}

// ResourceTypes records the searched types.
func (b *Builder) ResourceTypes(types []string) *Builder {
	b.r.resourceTypes = append([]string(nil), types...)
	return b
}

// AddResults records one page of ids and the total for resourceType. An
// empty page is kept as an empty, non-nil slice.
func (b *Builder) AddResults(resourceType string, ids []int64, total int) *Builder {
	page := make([]int64, len(ids))
	copy(page, ids)
	b.r.results[resourceType] = page
	b.r.totals[resourceType] = total
	return b
}

// FacetCounts records the counts of facet name.
func (b *Builder) FacetCounts(name string, counts []FacetCount) *Builder {
	b.r.facetCounts[name] = append([]FacetCount(nil), counts...)
	return b
}

// ActiveFacets records the selections the query ran with.
func (b *Builder) ActiveFacets(active map[string]query.ActiveFacet) *Builder {
	if len(active) == 0 {
		return b
	}
	b.r.activeFacets = make(map[string]query.ActiveFacet, len(active))
	for k, v := range active {
		b.r.activeFacets[k] = v
	}
	return b
}

// Suggestions records completions.
func (b *Builder) Suggestions(s []Suggestion) *Builder {
	b.r.suggestions = append([]Suggestion(nil), s...)
	return b
}

// Warn adds a message surfaced alongside a successful result.
func (b *Builder) Warn(messages ...string) *Builder {
	b.warnings = append(b.warnings, messages...)
	return b
}

// Fail marks the response unsuccessful and drops collected results.
func (b *Builder) Fail(message string) *Builder {
	b.r.success = false
	b.r.message = message
	b.r.results = make(map[string][]int64)
	b.r.totals = make(map[string]int)
	b.r.facetCounts = make(map[string][]FacetCount)
	b.r.suggestions = nil
	return b
}

// Build returns the finished Response. The builder must not be reused.
func (b *Builder) Build() Response {
	if b.r.success && b.r.message == "" && len(b.warnings) > 0 {
		b.r.message = strings.Join(b.warnings, "; ")
	}
	return b.r
}

// Failure builds an unsuccessful response.
func Failure(page, perPage int, message string) Response {
	return NewBuilder(page, perPage).Fail(message).Build()
}
