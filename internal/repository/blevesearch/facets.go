package blevesearch

import (
	"github.com/blevesearch/bleve/v2"
	bq "github.com/blevesearch/bleve/v2/search/query"

	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/datetime"
	"github.com/kailas-cloud/facetdex/internal/domain/resource"
	"github.com/kailas-cloud/facetdex/internal/domain/search/plan"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
)

// MaxFacetTerms caps the distinct values counted per facet and type. Limits
// and ordering apply after the per-type counts are merged.
const MaxFacetTerms = 10000

// FacetRequest holds one counting search per resource type.
type FacetRequest struct {
	Spec     query.FacetSpec
	Searches []*bleve.SearchRequest
}

// facets compiles every requested facet against the query without that
// facet's own selection, so other values of the facet stay visible.
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
			if sr, ok := fc.facetSearch(spec, rt, fc.where(fp, rt, filter)); ok {
				fr.Searches = append(fr.Searches, sr)
			}
		}
		out = append(out, fr)
	}
	return out
}

// facetSearch reports false when the facet does not apply to rt.
func (c *compiler) facetSearch(spec query.FacetSpec, rt resource.Type, where bq.Query) (*bleve.SearchRequest, bool) {
	var field string
	switch spec.Type {
	case query.FacetResourceType:
		field = fieldType
	case query.FacetResourceClass:
		field = fieldClass
	case query.FacetItemSet:
		if rt != resource.Items {
			return nil, false
		}
		field = fieldItemSet
	default:
		id, ok := c.tables.PropertyID(spec.Field)
		if !ok {
			return nil, false
		}
		field = literalField(id)
	}
	return countSearch(where, spec.Name, field), true
}

// countSearch returns no hits, only the term counts of field.
func countSearch(where bq.Query, name, field string) *bleve.SearchRequest {
	sr := bleve.NewSearchRequestOptions(where, 0, 0, false)
	sr.AddFacet(name, bleve.NewFacetRequest(field, MaxFacetTerms))
	return sr
}

func termCounts(res *bleve.SearchResult, name string) map[string]int {
	out := map[string]int{}
	fr, ok := res.Facets[name]
	if !ok || fr.Terms == nil {
		return out
	}
	for _, tf := range fr.Terms.Terms() {
		out[tf.Term] += tf.Count
	}
	return out
}
