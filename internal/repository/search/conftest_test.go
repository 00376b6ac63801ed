package search

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/facetdex/internal/db"
	"github.com/kailas-cloud/facetdex/internal/domain/search/comparison"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
	"github.com/kailas-cloud/facetdex/internal/repository/resource/resourcetest"
)

// mockStore keeps hashes and keys in memory. Search and Aggregate record
// their input and answer through the optional hooks.
type mockStore struct {
	kv      map[string][]byte
	hashes  map[string]map[string]string
	indexes map[string]*db.IndexDefinition

	searches   []db.SearchQuery
	aggregates []db.AggregateQuery
	getCalls   int

	searchFn    func(q *db.SearchQuery) (*db.SearchResult, error)
	aggregateFn func(q *db.AggregateQuery) ([]db.AggregateRow, error)
	getErr      error
	dropErr     error
	existsErr   error
	drops       int
}

func newMockStore() *mockStore {
	return &mockStore{
		kv:      map[string][]byte{},
		hashes:  map[string]map[string]string{},
		indexes: map[string]*db.IndexDefinition{},
	}
}

func (m *mockStore) Get(_ context.Context, key string) ([]byte, error) {
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.kv[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockStore) Set(_ context.Context, key string, value []byte) error {
	m.kv[key] = value
	return nil
}

func (m *mockStore) HSetMulti(_ context.Context, items []db.HashSetItem) error {
	for _, it := range items {
		m.hashes[it.Key] = it.Fields
	}
	return nil
}

func (m *mockStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.hashes, k)
	}
	return nil
}

func (m *mockStore) Scan(_ context.Context, pattern string) ([]string, error) {
	prefix := strings.TrimSuffix(pattern, "*")
	var out []string
	for k := range m.hashes {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *mockStore) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	if _, ok := m.indexes[def.Name]; ok {
		return db.ErrIndexExists
	}
	m.indexes[def.Name] = def
	return nil
}

func (m *mockStore) DropIndex(_ context.Context, name string) error {
	m.drops++
	if m.dropErr != nil {
		return m.dropErr
	}
	if _, ok := m.indexes[name]; !ok {
		return db.ErrIndexNotFound
	}
	delete(m.indexes, name)
	return nil
}

func (m *mockStore) IndexExists(_ context.Context, name string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.indexes[name]
	return ok, nil
}

func (m *mockStore) Search(_ context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	m.searches = append(m.searches, *q)
	if m.searchFn != nil {
		return m.searchFn(q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) Aggregate(_ context.Context, q *db.AggregateQuery) ([]db.AggregateRow, error) {
	m.aggregates = append(m.aggregates, *q)
	if m.aggregateFn != nil {
		return m.aggregateFn(q)
	}
	return nil, nil
}

var indexedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// indexFixture runs a full rebuild of the shared corpus into s.
func indexFixture(t *testing.T, s *mockStore) {
	t.Helper()
	ctx := context.Background()
	x := NewIndexer(s, "")
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
}

func newTestEngine(t *testing.T, opts Options) (*Engine, *mockStore) {
	t.Helper()
	s := newMockStore()
	indexFixture(t, s)
	return New(s, opts), s
}

func compileQuery(t *testing.T, e *Engine, b *query.Builder) *Request {
	t.Helper()
	q, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	req, err := e.Compile(context.Background(), q)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return req
}

func items() *query.Builder { return query.NewBuilder().ResourceTypes("items") }

func prop(field string, t comparison.Type, values ...string) query.Clause {
	return query.Clause{Joiner: query.JoinAnd, Field: field, Type: t, Values: values}
}
