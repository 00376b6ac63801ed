package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/kailas-cloud/facetdex/internal/db"
	"github.com/kailas-cloud/facetdex/internal/domain/resource"
)

// indexStore is the subset of db.Store the indexer writes (ISP).
type indexStore interface {
	db.IndexManager
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Indexer rebuilds the FT index from scratch. One rebuild at a time:
// Begin, any number of Index calls, then Commit.
type Indexer struct {
	store indexStore
	keys  Keys
	now   func() time.Time

	cat   resource.Catalog
	dir   resource.Directory
	used  map[int64]struct{}
	types map[string]struct{}
	docs  int
}

// NewIndexer creates an indexer writing under prefix.
func NewIndexer(s indexStore, prefix string) *Indexer {
	return &Indexer{store: s, keys: NewKeys(prefix), now: time.Now}
}

// Name identifies the backend in logs.
func (x *Indexer) Name() string { return DefaultName }

// Begin drops the index, when present, and its documents and recreates the
// schema for cat.
// dir resolves linked titles and the memberships media inherit.
func (x *Indexer) Begin(ctx context.Context, cat resource.Catalog, dir resource.Directory) error {
	exists, err := x.store.IndexExists(ctx, x.keys.Index())
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		// Another rebuild may have dropped it in between.
		if err := x.store.DropIndex(ctx, x.keys.Index()); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
			return fmt.Errorf("drop index: %w", err)
		}
	}
	keys, err := x.store.Scan(ctx, x.keys.DocPrefix()+"*")
	if err != nil {
		return fmt.Errorf("scan documents: %w", err)
	}
	if err := x.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}
	def, err := Schema(x.keys, cat)
	if err != nil {
		return fmt.Errorf("build schema: %w", err)
	}
	if err := x.store.CreateIndex(ctx, def); err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	x.cat, x.dir = cat, dir
	x.used = map[int64]struct{}{}
	x.types = map[string]struct{}{}
	x.docs = 0
	return nil
}

// Index writes one batch of documents.
func (x *Indexer) Index(ctx context.Context, batch []resource.Resource) error {
	if x.used == nil {
		return errors.New("index: Begin was not called")
	}
	items := make([]db.HashSetItem, 0, len(batch))
	for _, r := range batch {
		items = append(items, db.HashSetItem{Key: x.keys.Doc(r.ID), Fields: Document(r, x.cat, x.dir)})
		x.types[string(r.Type)] = struct{}{}
		for _, v := range r.Values {
			if !v.IsPublic {
				continue
			}
			if id, ok := x.cat.PropertyID(v.Property); ok {
				x.used[id] = struct{}{}
			}
		}
	}
	if err := x.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("write %d documents: %w", len(items), err)
	}
	x.docs += len(items)
	return nil
}

// Commit stores the metadata the engine compiles against.
func (x *Indexer) Commit(ctx context.Context) error {
	if x.used == nil {
		return errors.New("commit: Begin was not called")
	}
	m := Meta{
		Catalog:   x.cat,
		Documents: x.docs,
		IndexedAt: x.now().UTC(),
	}
	for id := range x.used {
		m.Used = append(m.Used, id)
	}
	slices.Sort(m.Used)
	for _, t := range resource.AllTypes {
		if _, ok := x.types[t]; ok {
			m.ResourceTypes = append(m.ResourceTypes, t)
		}
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode index metadata: %w", err)
	}
	if err := x.store.Set(ctx, x.keys.Meta(), raw); err != nil {
		return fmt.Errorf("store index metadata: %w", err)
	}
	x.used, x.types = nil, nil
	return nil
}
