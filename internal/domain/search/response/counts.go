package response

import (
	"sort"
	"strings"

	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
)

// MergeCounts sums per-value counts of a and b into a new map.
func MergeCounts(a, b map[string]int) map[string]int {
	out := make(map[string]int, len(a)+len(b))
	for v, n := range a {
		out[v] += n
	}
	for v, n := range b {
		out[v] += n
	}
	return out
}

// SortCounts orders counts and keeps at most limit entries (all when limit <= 0).
// Ties break by value ascending.
func SortCounts(counts map[string]int, order query.FacetOrder, limit int) []FacetCount {
	out := make([]FacetCount, 0, len(counts))
	for v, n := range counts {
		if n > 0 {
			out = append(out, FacetCount{Value: v, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch order {
		case query.OrderCountAsc:
			if a.Count != b.Count {
				return a.Count < b.Count
			}
		case query.OrderAlphaAsc:
			return a.Value < b.Value
		case query.OrderAlphaDesc:
			return a.Value > b.Value
		default:
			if a.Count != b.Count {
				return a.Count > b.Count
			}
		}
		return a.Value < b.Value
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// RankSuggestions keeps the values starting with prefix, ignoring case,
// ordered by count descending then value, at most limit of them.
func RankSuggestions(counts map[string]int, prefix string, limit int) []Suggestion {
	prefix = strings.ToLower(prefix)
	out := []Suggestion{}
	for v, n := range counts {
		if n > 0 && strings.HasPrefix(strings.ToLower(v), prefix) {
			out = append(out, Suggestion{Value: v, Weight: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Value < out[j].Value
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
