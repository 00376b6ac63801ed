package search

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kailas-cloud/facetdex/internal/domain/resource"
)

// Meta describes the documents of the current index.
type Meta struct {
	Catalog       resource.Catalog `json:"catalog"`
	Used          []int64          `json:"used"`
	ResourceTypes []string         `json:"resource_types"`
	Documents     int              `json:"documents"`
	IndexedAt     time.Time        `json:"indexed_at"`
}

// tables are the lookups built from Meta. Read-only once built.
type tables struct {
	meta       *Meta
	properties resource.PropertyIndex
}

func newTables(m *Meta) *tables {
	return &tables{meta: m, properties: resource.NewPropertyIndex(m.Catalog.Properties)}
}

// PropertyID resolves a property term or numeric id.
func (t *tables) PropertyID(field string) (int64, bool) { return t.properties.Resolve(field) }

type getter interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// metaCache loads Meta at most once until Reset.
type metaCache struct {
	src    getter
	key    string
	mu     sync.Mutex
	tables atomic.Pointer[tables]
}

func (c *metaCache) load(ctx context.Context) (*tables, error) {
	if t := c.tables.Load(); t != nil {
		return t, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if t := c.tables.Load(); t != nil {
		return t, nil
	}
	raw, err := c.src.Get(ctx, c.key)
	if err != nil {
		return nil, fmt.Errorf("load index metadata %s: %w", c.key, err)
	}
	var m Meta
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode index metadata: %w", err)
	}
	t := newTables(&m)
	c.tables.Store(t)
	return t, nil
}

func (c *metaCache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables.Store(nil)
}
