package search

import (
	"github.com/kailas-cloud/facetdex/internal/db"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
)

// DefaultSuggestLimit applies when a suggestion request sets no limit.
const DefaultSuggestLimit = 10

// SuggestRequest counts values starting with Text. A nil Aggregate
// yields no suggestions.
type SuggestRequest struct {
	Text      string
	Limit     int
	Aggregate *db.AggregateQuery
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
	where := []string{
		tag(values, escapeTag(s.Text)+"*"),
		tagValues(fieldType, types...),
	}
	if c.public {
		where = append(where, tag(fieldPublic, "1"))
	}
	req.Aggregate = &db.AggregateQuery{
		Index:     c.index,
		Query:     and(where...),
		Field:     field,
		Separator: sep,
		Limit:     db.MaxAggregateGroups,
	}
	return req
}

func (r *SuggestRequest) rank(rows []db.AggregateRow) []response.Suggestion {
	return response.RankSuggestions(rowCounts(rows), r.Text, r.Limit)
}
