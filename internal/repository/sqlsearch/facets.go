package sqlsearch

import (
	sb "github.com/kailas-cloud/facetdex/internal/db/sqlbuilder"
	"github.com/kailas-cloud/facetdex/internal/domain/datetime"
	"github.com/kailas-cloud/facetdex/internal/domain/resource"
	"github.com/kailas-cloud/facetdex/internal/domain/search/plan"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
)

// FacetRequest holds one value/count statement per resource type.
type FacetRequest struct {
	Spec    query.FacetSpec
	Selects []*sb.Select
	// RowTypes marks values that are stored resource_type rows.
	RowTypes bool
}

// facets compiles every requested facet against the query without that
// facet's own selection, so other values of the facet stay visible.
func (e *Engine) facets(q query.Query, t *Tables, norm *datetime.Normalizer) []FacetRequest {
	var out []FacetRequest
	for _, spec := range q.Facets() {
		fq := q.WithoutActiveFacet(spec.Name)
		fp := plan.Build(fq, e.planOptions())
		fc := e.newCompiler(t, norm, fq)
		fc.advance(stageScoped)
		filter := fc.filter(fp)

		fr := FacetRequest{Spec: spec, RowTypes: spec.Type == query.FacetResourceType}
		for _, name := range fp.ResourceTypes {
			rt := resource.Type(name)
			if sel := fc.facetSelect(spec, rt, fc.where(fp, rt, filter)); sel != nil {
				fr.Selects = append(fr.Selects, sel)
			}
		}
		out = append(out, fr)
	}
	return out
}

// facetSelect returns nil when the facet does not apply to rt.
func (c *compiler) facetSelect(spec query.FacetSpec, rt resource.Type, where sb.Expr) *sb.Select {
	const count = "COUNT(DISTINCT r.id)"
	switch spec.Type {
	case query.FacetResourceType:
		return c.base("r.resource_type", count).Where(where).GroupBy("r.resource_type")
	case query.FacetResourceClass:
		return c.base("fcl.term", count).
			Join(sb.Join{Kind: sb.InnerJoin, Table: "resource_class", Alias: "fcl", On: sb.Raw("fcl.id = r.resource_class_id")}).
			Where(where).GroupBy("fcl.term")
	case query.FacetItemSet:
		if rt != resource.Items {
			return nil
		}
		return c.base("fis.item_set_id", count).
			Join(sb.Join{Kind: sb.InnerJoin, Table: "item_item_set", Alias: "fis", On: sb.Raw("fis.item_id = r.id")}).
			Where(where).GroupBy("fis.item_set_id")
	}

	id, ok := c.tables.PropertyID(spec.Field)
	if !ok {
		return nil
	}
	on := sb.And(
		sb.Raw("fv.resource_id = r.id"),
		sb.Eq("fv.property_id", id),
		c.valueVisibility("fv"),
		languages("fv.lang", spec.Languages),
	)
	return c.base("fv.value", count).
		Join(sb.Join{Kind: sb.InnerJoin, Table: "value", Alias: "fv", On: on}).
		Where(where).
		Where(sb.IsNotNull("fv.value")).
		GroupBy("fv.value")
}

// languages keeps values in one of langs; "" stands for values without one.
func languages(col string, langs []string) sb.Expr {
	if len(langs) == 0 {
		return nil
	}
	var named []string
	blank := false
	for _, l := range langs {
		if l == "" {
			blank = true
			continue
		}
		named = append(named, l)
	}
	var alts []sb.Expr
	if len(named) > 0 {
		alts = append(alts, sb.In(col, sb.Strings(named)...))
	}
	if blank {
		alts = append(alts, sb.Or(sb.IsNull(col), sb.Eq(col, "")))
	}
	return sb.Or(alts...)
}
