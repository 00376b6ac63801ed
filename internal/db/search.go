package db

// MatchAll is the FT query matching every document.
const MatchAll = "*"

// SearchQuery is the input of FT.SEARCH.
type SearchQuery struct {
	Index string
	Query string
	// SortBy names a SORTABLE field; empty keeps the engine order.
	SortBy   string
	SortDesc bool
	Offset   int
	Limit    int
	// Return lists fields to load; empty means NOCONTENT (keys only).
	Return []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Fields map[string]string
}

// AggregateQuery groups the documents matching Query by one field and
// counts each group.
type AggregateQuery struct {
	Index string
	Query string
	// Field is grouped on. Multi-valued tags are split on Separator first.
	Field     string
	Separator string
	// Limit caps returned groups; zero means MaxAggregateGroups.
	Limit int
}

// MaxAggregateGroups bounds FT.AGGREGATE replies when no limit is given.
const MaxAggregateGroups = 10000

// AggregateRow is one group of an aggregation.
type AggregateRow struct {
	Value string
	Count int
}
