package query

import "encoding/json"

// FacetType selects what a facet counts.
type FacetType string

// Facet types.
const (
	FacetValue         FacetType = "value"
	FacetRange         FacetType = "range"
	FacetResourceClass FacetType = "resource_class"
	FacetResourceType  FacetType = "resource_type"
	FacetItemSet       FacetType = "item_set"
)

// Valid reports whether t is a known facet type.
func (t FacetType) Valid() bool {
	switch t {
	case FacetValue, FacetRange, FacetResourceClass, FacetResourceType, FacetItemSet:
		return true
	}
	return false
}

// NeedsField reports whether the facet counts values of a property.
func (t FacetType) NeedsField() bool { return t == FacetValue || t == FacetRange }

// FacetOrder orders facet counts.
type FacetOrder string

// Facet orders. Ties always break by value ascending.
const (
	OrderCountDesc FacetOrder = "count_desc"
	OrderCountAsc  FacetOrder = "count_asc"
	OrderAlphaAsc  FacetOrder = "alpha_asc"
	OrderAlphaDesc FacetOrder = "alpha_desc"
)

// Valid reports whether o is a known order.
func (o FacetOrder) Valid() bool {
	switch o {
	case OrderCountDesc, OrderCountAsc, OrderAlphaAsc, OrderAlphaDesc:
		return true
	}
	return false
}

// DefaultFacetLimit applies when a facet has no limit.
const DefaultFacetLimit = 10

// FacetSpec describes one requested facet.
type FacetSpec struct {
	Name      string
	Field     string
	Label     string
	Type      FacetType
	Order     FacetOrder
	Limit     int
	Languages []string
}

// ActiveFacet is the current selection for a facet: values, or a range.
type ActiveFacet struct {
	Values []string
	Range  *Range
}

// IsEmpty reports whether nothing is selected.
func (a ActiveFacet) IsEmpty() bool {
	return len(a.Values) == 0 && (a.Range == nil || a.Range.IsEmpty())
}

// MarshalJSON renders values as an array and ranges as {from, to}.
func (a ActiveFacet) MarshalJSON() ([]byte, error) {
	if a.Range != nil {
		return json.Marshal(a.Range)
	}
	if a.Values == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a.Values)
}
