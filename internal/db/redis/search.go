package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/facetdex/internal/db"
)

// Search runs a paginated FT.SEARCH.
func (s *Store) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	args, err := buildSearchArgs(q)
	if err != nil {
		return nil, err
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseSearchResult(raw, len(q.Return) == 0)
}

// Aggregate groups matches by one field and counts each group via FT.AGGREGATE.
func (s *Store) Aggregate(ctx context.Context, q *db.AggregateQuery) ([]db.AggregateRow, error) {
	args, err := buildAggregateArgs(q)
	if err != nil {
		return nil, err
	}

	cmd := s.b().Arbitrary("FT.AGGREGATE").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpAggregate, Err: err}
	}

	return parseAggregateResult(raw)
}

func buildSearchArgs(q *db.SearchQuery) ([]string, error) {
	if q.Index == "" {
		return nil, errors.New("index name is required")
	}
	if q.Limit < 0 || q.Offset < 0 {
		return nil, errors.New("offset and limit must not be negative")
	}
	query := q.Query
	if query == "" {
		query = db.MatchAll
	}

	args := []string{q.Index, query}
	if len(q.Return) == 0 {
		args = append(args, "NOCONTENT")
	} else {
		args = append(args, "RETURN", strconv.Itoa(len(q.Return)))
		args = append(args, q.Return...)
	}
	if q.SortBy != "" {
		dir := "ASC"
		if q.SortDesc {
			dir = "DESC"
		}
		args = append(args, "SORTBY", q.SortBy, dir)
	}
	args = append(args,
		"LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit),
		"DIALECT", "2",
	)
	return args, nil
}

// groupAlias names the split value when a multi-valued tag is grouped.
const groupAlias = "__group"

func buildAggregateArgs(q *db.AggregateQuery) ([]string, error) {
	if q.Index == "" {
		return nil, errors.New("index name is required")
	}
	if q.Field == "" {
		return nil, errors.New("group field is required")
	}
	query := q.Query
	if query == "" {
		query = db.MatchAll
	}
	limit := q.Limit
	if limit <= 0 {
		limit = db.MaxAggregateGroups
	}

	field := "@" + q.Field
	args := []string{q.Index, query, "LOAD", "1", field}
	if q.Separator != "" {
		args = append(args, "APPLY", fmt.Sprintf("split(%s, %q)", field, q.Separator), "AS", groupAlias)
		field = "@" + groupAlias
	}
	args = append(args,
		"GROUPBY", "1", field,
		"REDUCE", "COUNT", "0", "AS", "count",
		"SORTBY", "2", "@count", "DESC",
		"LIMIT", "0", strconv.Itoa(limit),
		"DIALECT", "2",
	)
	return args, nil
}

// --- Result parsing ---

func parseSearchResult(raw []rueidis.RedisMessage, noContent bool) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	// NOCONTENT: [total, key1, key2, ...]; otherwise [total, key1, fields1, ...]
	stride := 2
	if noContent {
		stride = 1
	}
	entries := make([]db.SearchEntry, 0, (len(raw)-1)/stride)
	for i := 1; i+stride-1 < len(raw); i += stride {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		entry := db.SearchEntry{Key: key}
		if !noContent {
			fields, err := raw[i+1].ToArray()
			if err != nil {
				continue
			}
			entry.Fields = parseFieldPairs(fields)
		}
		entries = append(entries, entry)
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

// parseAggregateResult reads [groups, [field, value, "count", n], ...].
// Groups without a value (documents missing the field) are dropped.
func parseAggregateResult(raw []rueidis.RedisMessage) ([]db.AggregateRow, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if _, err := raw[0].AsInt64(); err != nil {
		return nil, fmt.Errorf("parse group total: %w", err)
	}

	rows := make([]db.AggregateRow, 0, len(raw)-1)
	for _, msg := range raw[1:] {
		pairs, err := msg.ToArray()
		if err != nil {
			continue
		}
		var (
			row      db.AggregateRow
			hasValue bool
		)
		for j := 0; j+1 < len(pairs); j += 2 {
			name, err := pairs[j].ToString()
			if err != nil {
				continue
			}
			if name == "count" {
				n, err := pairs[j+1].AsInt64()
				if err != nil {
					return nil, fmt.Errorf("parse group count: %w", err)
				}
				row.Count = int(n)
				continue
			}
			if v, err := pairs[j+1].ToString(); err == nil && v != "" {
				row.Value, hasValue = v, true
			}
		}
		if hasValue {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}
