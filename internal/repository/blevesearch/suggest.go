package blevesearch

import (
	"strings"

	"github.com/blevesearch/bleve/v2"
	bq "github.com/blevesearch/bleve/v2/search/query"

	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
)

// DefaultSuggestLimit applies when a suggestion request sets no limit.
const DefaultSuggestLimit = 10

const suggestFacet = "suggest"

// SuggestRequest counts values starting with Text. A nil Search yields no
// suggestions.
type SuggestRequest struct {
	Text   string
	Limit  int
	Search *bleve.SearchRequest
}

func (c *compiler) suggest(s query.Suggest, types []string) *SuggestRequest {
	if s.Text == "" {
		return nil
	}
	req := &SuggestRequest{Text: s.Text, Limit: s.Limit}
	if req.Limit <= 0 {
		req.Limit = DefaultSuggestLimit
	}

	field, values := fieldLiterals, fieldValues
	if s.Field != "" {
		id, ok := c.tables.PropertyID(s.Field)
		if !ok {
			return req
		}
		field, values = literalField(id), valueField(id)
	}
	where := []bq.Query{
		prefix(values, strings.ToLower(strings.TrimSpace(s.Text))),
		anyTerm(fieldType, types...),
	}
	if c.public {
		where = append(where, term(fieldPublic, "1"))
	}
	req.Search = countSearch(and(where...), suggestFacet, field)
	return req
}

func (r *SuggestRequest) rank(res *bleve.SearchResult) []response.Suggestion {
	return response.RankSuggestions(termCounts(res, suggestFacet), r.Text, r.Limit)
}
