package search

import (
	"github.com/kailas-cloud/facetdex/internal/db"
	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/datetime"
	"github.com/kailas-cloud/facetdex/internal/domain/resource"
	"github.com/kailas-cloud/facetdex/internal/domain/search/plan"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
)

// FacetRequest holds one aggregation per resource type.
type FacetRequest struct {
	Spec       query.FacetSpec
	Aggregates []db.AggregateQuery
}

// facets compiles every requested facet against the query without that
// facet's own selection, so other values of the facet stay visible.
// Warnings of the facet compilations are reported on c.
func (e *Engine) facets(q query.Query, t *tables, norm *datetime.Normalizer, c *compiler) []FacetRequest {
	var out []FacetRequest
	for _, spec := range q.Facets() {
		fq := q.WithoutActiveFacet(spec.Name)
		fp := plan.Build(fq, e.planOptions(t))
		fc := e.newCompiler(t, norm, fq)
		filter := fc.filter(fp)
		if len(spec.Languages) > 0 {
			c.warn("%s: language filter of facet %q ignored", domain.ErrNotSupported, spec.Name)
		}

		fr := FacetRequest{Spec: spec}
		for _, name := range fp.ResourceTypes {
			rt := resource.Type(name)
			if agg, ok := fc.facetAggregate(spec, rt, fc.where(fp, rt, filter)); ok {
				fr.Aggregates = append(fr.Aggregates, agg)
			}
		}
		out = append(out, fr)
	}
	return out
}

// facetAggregate reports false when the facet does not apply to rt.
func (c *compiler) facetAggregate(spec query.FacetSpec, rt resource.Type, where string) (db.AggregateQuery, bool) {
	agg := db.AggregateQuery{Index: c.index, Query: where, Limit: db.MaxAggregateGroups}
	switch spec.Type {
	case query.FacetResourceType:
		agg.Field = fieldType
	case query.FacetResourceClass:
		agg.Field = fieldClass
	case query.FacetItemSet:
		if rt != resource.Items {
			return agg, false
		}
		agg.Field, agg.Separator = fieldItemSet, sep
	default:
		id, ok := c.tables.PropertyID(spec.Field)
		if !ok {
			return agg, false
		}
		agg.Field, agg.Separator = literalField(id), sep
	}
	return agg, true
}
