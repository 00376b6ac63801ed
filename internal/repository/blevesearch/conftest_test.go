package blevesearch

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/facetdex/internal/domain/search/comparison"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
	"github.com/kailas-cloud/facetdex/internal/repository/resource/resourcetest"
)

var indexedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// newTestStore indexes the shared corpus into an in-memory store.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	x := NewIndexer(s)
	x.now = func() time.Time { return indexedAt }
	if err := x.Begin(ctx, resourcetest.Catalog(), resourcetest.Directory()); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := x.Index(ctx, resourcetest.Loaded()); err != nil {
		t.Fatalf("index: %v", err)
	}
	if err := x.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return s
}

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	return New(newTestStore(t), opts)
}

func runSearch(t *testing.T, e *Engine, b *query.Builder) response.Response {
	t.Helper()
	q, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	resp, err := e.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !resp.Success() {
		t.Fatalf("search failed: %s", resp.Message())
	}
	return resp
}

func items() *query.Builder { return query.NewBuilder().ResourceTypes("items") }

func prop(field string, t comparison.Type, values ...string) query.Clause {
	return query.Clause{Joiner: query.JoinAnd, Field: field, Type: t, Values: values}
}

func created(t comparison.Type, v string) query.DateTimeClause {
	return query.DateTimeClause{Joiner: query.JoinAnd, Field: query.FieldCreated, Type: t, Value: v}
}
