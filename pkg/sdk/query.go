package facetdex

import (
	"net/url"

	"github.com/kailas-cloud/facetdex/internal/domain/resource"
	"github.com/kailas-cloud/facetdex/internal/domain/search/comparison"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
	"github.com/kailas-cloud/facetdex/internal/transport/form"
)

// Query types.
type (
	Query          = query.Query
	QueryBuilder   = query.Builder
	Clause         = query.Clause
	DateTimeClause = query.DateTimeClause
	Range          = query.Range
	SuggestRequest = query.Suggest
	FacetSpec      = query.FacetSpec
	FacetType      = query.FacetType
	FacetOrder     = query.FacetOrder
	Comparison     = comparison.Type
)

// Response types.
type (
	Response   = response.Response
	FacetCount = response.FacetCount
	Suggestion = response.Suggestion
)

// Resource types accepted by Import.
type (
	Resource     = resource.Resource
	ResourceType = resource.Type
	Value        = resource.Value
	Catalog      = resource.Catalog
	Property     = resource.Property
	Class        = resource.Class
)

// Resource types.
const (
	Items    = resource.Items
	ItemSets = resource.ItemSets
	Media    = resource.Media
)

// Facet types.
const (
	FacetValue         = query.FacetValue
	FacetRange         = query.FacetRange
	FacetResourceClass = query.FacetResourceClass
	FacetResourceType  = query.FacetResourceType
	FacetItemSet       = query.FacetItemSet
)

// NewQuery starts a query.
func NewQuery() *QueryBuilder { return query.NewBuilder() }

// ParseQuery decodes bracketed form parameters such as
// property[0][property]=dcterms:title&property[0][type]=in&property[0][text]=moby.
func ParseQuery(values url.Values) (Query, error) { return form.Parse(values) }
