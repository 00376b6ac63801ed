package blevesearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/kailas-cloud/facetdex/internal/domain/resource"
)

type indexWriter interface {
	Recreate(m mapping.IndexMapping) error
	Write(fill func(b *bleve.Batch) error) error
	SetInternal(key, value []byte) error
}

// Indexer rebuilds the bleve index from scratch: Begin, any number of
// Index calls, then Commit.
type Indexer struct {
	store indexWriter
	now   func() time.Time

	cat   resource.Catalog
	dir   resource.Directory
	used  map[int64]struct{}
	types map[string]struct{}
	docs  int
}

// NewIndexer creates an indexer over s.
func NewIndexer(s indexWriter) *Indexer {
	return &Indexer{store: s, now: time.Now}
}

// Name identifies the backend in logs.
func (x *Indexer) Name() string { return DefaultName }

// Begin replaces the index with an empty one mapped for cat.
func (x *Indexer) Begin(_ context.Context, cat resource.Catalog, dir resource.Directory) error {
	if err := x.store.Recreate(Mapping(cat)); err != nil {
		return fmt.Errorf("recreate index: %w", err)
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
	if err := ctx.Err(); err != nil {
		return err
	}
	err := x.store.Write(func(b *bleve.Batch) error {
		for _, r := range batch {
			if err := b.Index(docID(r.ID), Document(r, x.cat, x.dir)); err != nil {
				return fmt.Errorf("document %d: %w", r.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write %d documents: %w", len(batch), err)
	}
	for _, r := range batch {
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
	x.docs += len(batch)
	return nil
}

// Commit stores the metadata the engine compiles against.
func (x *Indexer) Commit(_ context.Context) error {
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
	if err := x.store.SetInternal(metaKey, raw); err != nil {
		return fmt.Errorf("store index metadata: %w", err)
	}
	x.used, x.types = nil, nil
	return nil
}
