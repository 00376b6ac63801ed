package sqlsearch

import (
	sb "github.com/kailas-cloud/facetdex/internal/db/sqlbuilder"
	"github.com/kailas-cloud/facetdex/internal/domain/resource"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
)

// DefaultSuggestLimit applies when a suggestion request sets no limit.
const DefaultSuggestLimit = 10

// SuggestRequest ranks values starting with a prefix by resource count.
type SuggestRequest struct {
	Select *sb.Select
}

func (c *compiler) suggest(s query.Suggest, types []string) *SuggestRequest {
	if s.Text == "" {
		return nil
	}
	limit := s.Limit
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}
	rows := make([]string, 0, len(types))
	for _, t := range types {
		rows = append(rows, resource.Type(t).Row())
	}

	sel := sb.NewSelect("sv.value", "COUNT(DISTINCT sv.resource_id)").From("value", "sv").
		Join(sb.Join{Kind: sb.InnerJoin, Table: "resource", Alias: "sr", On: sb.Raw("sr.id = sv.resource_id")}).
		Where(sb.Like("sv.value", sb.EscapeLike(s.Text)+"%")).
		Where(sb.In("sr.resource_type", sb.Strings(rows)...))
	if s.Field != "" {
		// Unknown fields resolve to id 0 and match nothing.
		id, _ := c.tables.PropertyID(s.Field)
		sel.Where(sb.Eq("sv.property_id", id))
	}
	if c.public {
		sel.Where(sb.Eq("sv.is_public", true)).Where(sb.Eq("sr.is_public", true))
	}
	sel.GroupBy("sv.value").
		OrderBy(sb.Raw("COUNT(DISTINCT sv.resource_id)"), true).
		OrderBy(sb.Raw("sv.value"), false).
		Limit(limit)
	return &SuggestRequest{Select: sel}
}
