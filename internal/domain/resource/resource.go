// Package resource describes the searchable records kept in the relational
// source and pushed to external indexes.
package resource

import (
	"fmt"
	"strconv"
	"time"
)

// Type is the API name of a resource family.
type Type string

// Resource types.
const (
	Items    Type = "items"
	ItemSets Type = "item_sets"
	Media    Type = "media"
)

// AllTypes lists every resource type in display order.
var AllTypes = []string{string(Items), string(ItemSets), string(Media)}

var rows = map[Type]string{Items: "item", ItemSets: "item_set", Media: "media"}

// Row returns the value stored in resource.resource_type.
func (t Type) Row() string { return rows[t] }

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	_, ok := rows[t]
	return ok
}

// FromRow maps a stored resource_type back to its API name.
func FromRow(row string) (Type, error) {
	for t, r := range rows {
		if r == row {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown resource row type %q", row)
}

// Value data types used by the "dtp" comparison.
const (
	DataLiteral  = "literal"
	DataURI      = "uri"
	DataResource = "resource"
)

// Value is one property value of a resource.
type Value struct {
	Property   string
	DataType   string
	Lang       string
	Value      string
	URI        string
	ResourceID int64
	IsPublic   bool
}

// Resource is a searchable record.
type Resource struct {
	ID         int64
	Type       Type
	Class      string
	Title      string
	IsPublic   bool
	Created    time.Time
	Modified   *time.Time
	Values     []Value
	ItemSetIDs []int64
	SiteIDs    []int64

	// ItemID and MediaType are set on media.
	ItemID    int64
	MediaType string
	// MediaTypes lists the types of an item's media. Derived on load.
	MediaTypes []string
	// LinkedBy lists values of other resources pointing here. Derived on load.
	LinkedBy []LinkedBy
}

// HasMedia reports whether an item carries media.
func (r Resource) HasMedia() bool { return len(r.MediaTypes) > 0 }

// LinkedBy describes a value elsewhere pointing at a resource.
type LinkedBy struct {
	Property string
	Subject  int64
}

// Property is a vocabulary property.
type Property struct {
	ID    int64
	Term  string
	Label string
}

// Class is a vocabulary resource class.
type Class struct {
	ID    int64
	Term  string
	Label string
}

// Catalog is the vocabulary known to the relational source.
type Catalog struct {
	Properties []Property
	Classes    []Class
}

// PropertyID returns the id of term.
func (c Catalog) PropertyID(term string) (int64, bool) {
	for _, p := range c.Properties {
		if p.Term == term {
			return p.ID, true
		}
	}
	return 0, false
}

// PropertyIndex resolves a property field given as a term or as a numeric
// id. The zero value is empty; it is read-only once filled.
type PropertyIndex struct {
	byTerm map[string]int64
	ids    map[int64]struct{}
}

// NewPropertyIndex indexes props.
func NewPropertyIndex(props []Property) PropertyIndex {
	var x PropertyIndex
	for _, p := range props {
		x.Add(p.ID, p.Term)
	}
	return x
}

// Add registers one property.
func (x *PropertyIndex) Add(id int64, term string) {
	if x.byTerm == nil {
		x.byTerm = make(map[string]int64)
		x.ids = make(map[int64]struct{})
	}
	x.byTerm[term] = id
	x.ids[id] = struct{}{}
}

// Resolve returns the id of field. A term wins over a numeric reading; a
// numeric field must name a known property.
func (x PropertyIndex) Resolve(field string) (int64, bool) {
	if id, ok := x.byTerm[field]; ok {
		return id, true
	}
	if n, err := strconv.ParseInt(field, 10, 64); err == nil {
		if _, ok := x.ids[n]; ok {
			return n, true
		}
	}
	return 0, false
}

// PropertyTerms returns every property term in catalog order.
func (c Catalog) PropertyTerms() []string {
	out := make([]string, len(c.Properties))
	for i, p := range c.Properties {
		out[i] = p.Term
	}
	return out
}

// Summary is what documents of other resources need to know about one
// resource: linked values match its title, media inherit its sets and sites.
type Summary struct {
	Title      string
	ItemSetIDs []int64
	SiteIDs    []int64
}

// Directory maps resource ids to their summaries.
type Directory map[int64]Summary

// Title returns the title of id, "" when unknown.
func (d Directory) Title(id int64) string { return d[id].Title }
