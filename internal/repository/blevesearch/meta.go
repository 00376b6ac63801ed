package blevesearch

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kailas-cloud/facetdex/internal/domain/resource"
)

// metaKey is the internal key holding Meta.
var metaKey = []byte("facetdex:meta")

// Meta describes the documents of the current index.
type Meta struct {
	Catalog       resource.Catalog `json:"catalog"`
	Used          []int64          `json:"used"`
	ResourceTypes []string         `json:"resource_types"`
	Documents     int              `json:"documents"`
	IndexedAt     time.Time        `json:"indexed_at"`
}

type tables struct {
	meta       *Meta
	properties resource.PropertyIndex
}

func newTables(m *Meta) *tables {
	return &tables{meta: m, properties: resource.NewPropertyIndex(m.Catalog.Properties)}
}

// PropertyID resolves a property term or numeric id.
func (t *tables) PropertyID(field string) (int64, bool) { return t.properties.Resolve(field) }

type internalGetter interface {
	GetInternal(key []byte) ([]byte, error)
}

// metaCache loads Meta at most once until reset.
type metaCache struct {
	src    internalGetter
	mu     sync.Mutex
	tables atomic.Pointer[tables]
}

func (c *metaCache) load() (*tables, error) {
	if t := c.tables.Load(); t != nil {
		return t, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if t := c.tables.Load(); t != nil {
		return t, nil
	}
	raw, err := c.src.GetInternal(metaKey)
	if err != nil {
		return nil, fmt.Errorf("load index metadata: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("load index metadata: %w", ErrNotIndexed)
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
