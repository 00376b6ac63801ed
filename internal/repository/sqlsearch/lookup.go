package sqlsearch

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kailas-cloud/facetdex/internal/db/sqlbuilder"
	"github.com/kailas-cloud/facetdex/internal/domain/resource"
)

// Tables are the property and class id lookups. Read-only once built.
type Tables struct {
	properties resource.PropertyIndex
	classes    map[string]int64
	used       []int64
}

// PropertyID resolves a property term or numeric id.
func (t *Tables) PropertyID(field string) (int64, bool) { return t.properties.Resolve(field) }

// ClassIDs resolves resource class terms, skipping unknown ones.
func (t *Tables) ClassIDs(terms []string) []int64 {
	var out []int64
	for _, term := range terms {
		if id, ok := t.classes[term]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Used returns the ids of every property carrying at least one value.
func (t *Tables) Used() []int64 { return t.used }

// Lookup builds Tables at most once per process.
type Lookup struct {
	src    selecter
	mu     sync.Mutex
	tables atomic.Pointer[Tables]
}

type selecter interface {
	Select(ctx context.Context, sel *sqlbuilder.Select) (*sql.Rows, error)
}

// NewLookup creates a lazily built lookup over src.
func NewLookup(src selecter) *Lookup {
	return &Lookup{src: src}
}

// Tables returns the lookup tables, building them on first use.
// A failed build is retried on the next call.
func (l *Lookup) Tables(ctx context.Context) (*Tables, error) {
	if t := l.tables.Load(); t != nil {
		return t, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if t := l.tables.Load(); t != nil {
		return t, nil
	}
	t, err := l.build(ctx)
	if err != nil {
		return nil, err
	}
	l.tables.Store(t)
	return t, nil
}

// Reset drops the tables so the next call rebuilds them, e.g. after
// the vocabulary or the values changed.
func (l *Lookup) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tables.Store(nil)
}

func (l *Lookup) build(ctx context.Context) (*Tables, error) {
	t := &Tables{classes: make(map[string]int64)}
	err := l.scanTerms(ctx, sqlbuilder.NewSelect("p.id", "p.term").From("property", "p"), func(id int64, term string) {
		t.properties.Add(id, term)
	})
	if err != nil {
		return nil, fmt.Errorf("load property ids: %w", err)
	}
	err = l.scanTerms(ctx, sqlbuilder.NewSelect("c.id", "c.term").From("resource_class", "c"), func(id int64, term string) {
		t.classes[term] = id
	})
	if err != nil {
		return nil, fmt.Errorf("load class ids: %w", err)
	}

	rows, err := l.src.Select(ctx, sqlbuilder.NewSelect("DISTINCT v.property_id").From("value", "v").
		OrderBy(sqlbuilder.Raw("v.property_id"), false))
	if err != nil {
		return nil, fmt.Errorf("load used properties: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan used property: %w", err)
		}
		t.used = append(t.used, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load used properties: %w", err)
	}
	return t, nil
}

func (l *Lookup) scanTerms(ctx context.Context, sel *sqlbuilder.Select, add func(int64, string)) error {
	rows, err := l.src.Select(ctx, sel)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var (
			id   int64
			term string
		)
		if err := rows.Scan(&id, &term); err != nil {
			return err
		}
		add(id, term)
	}
	return rows.Err()
}
