package search

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kailas-cloud/facetdex/internal/db"
	"github.com/kailas-cloud/facetdex/internal/repository/resource/resourcetest"
)

func TestIndexer_Rebuild(t *testing.T) {
	s := newMockStore()
	s.indexes["facetdex:idx"] = &db.IndexDefinition{Name: "facetdex:idx"}
	s.hashes["facetdex:res:99"] = map[string]string{"id": "99"}
	s.hashes["unrelated"] = map[string]string{"x": "1"}

	indexFixture(t, s)

	if _, ok := s.hashes["facetdex:res:99"]; ok {
		t.Error("stale document survived the rebuild")
	}
	if _, ok := s.hashes["unrelated"]; !ok {
		t.Error("keys outside the prefix must be kept")
	}
	if len(s.hashes) != len(resourcetest.Loaded())+1 {
		t.Errorf("hashes = %d", len(s.hashes))
	}
	if def := s.indexes["facetdex:idx"]; len(def.Fields) == 0 {
		t.Error("index was not recreated with the schema")
	}

	var m Meta
	if err := json.Unmarshal(s.kv["facetdex:meta"], &m); err != nil {
		t.Fatalf("decode meta: %v", err)
	}
	want := Meta{
		Catalog:       resourcetest.Catalog(),
		Used:          []int64{1, 2, 3, 4, 5, 6, 7},
		ResourceTypes: []string{"items", "item_sets", "media"},
		Documents:     len(resourcetest.Loaded()),
		IndexedAt:     indexedAt,
	}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("meta (-want +got):\n%s", diff)
	}
}

func TestIndexer_RequiresBegin(t *testing.T) {
	x := NewIndexer(newMockStore(), "")
	if err := x.Index(context.Background(), resourcetest.Loaded()); err == nil {
		t.Error("Index before Begin must fail")
	}
	if err := x.Commit(context.Background()); err == nil {
		t.Error("Commit before Begin must fail")
	}
}

func TestIndexer_FirstBuildSkipsDrop(t *testing.T) {
	s := newMockStore()
	indexFixture(t, s)
	if s.drops != 0 {
		t.Errorf("drops = %d, want 0 without an existing index", s.drops)
	}
	indexFixture(t, s)
	if s.drops != 1 {
		t.Errorf("drops = %d, want 1 on rebuild", s.drops)
	}
}

func TestIndexer_IndexCheckError(t *testing.T) {
	s := newMockStore()
	boom := errors.New("boom")
	s.existsErr = boom
	x := NewIndexer(s, "")
	err := x.Begin(context.Background(), resourcetest.Catalog(), resourcetest.Directory())
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if s.drops != 0 {
		t.Errorf("drops = %d, want 0", s.drops)
	}
}

func TestIndexer_DropError(t *testing.T) {
	s := newMockStore()
	s.indexes["facetdex:idx"] = &db.IndexDefinition{Name: "facetdex:idx"}
	boom := errors.New("boom")
	s.dropErr = boom
	x := NewIndexer(s, "")
	err := x.Begin(context.Background(), resourcetest.Catalog(), resourcetest.Directory())
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}
