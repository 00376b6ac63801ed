package indexing

import (
	"context"

	"github.com/kailas-cloud/facetdex/internal/domain/resource"
)

// Source reads the relational records to index.
type Source interface {
	Catalog(ctx context.Context) (resource.Catalog, error)
	Directory(ctx context.Context) (resource.Directory, error)
	// List returns up to limit resources with id > afterID, ascending.
	List(ctx context.Context, afterID int64, limit int) ([]resource.Resource, error)
}

// Indexer rebuilds one external engine's index.
type Indexer interface {
	Name() string
	Begin(ctx context.Context, cat resource.Catalog, dir resource.Directory) error
	Index(ctx context.Context, batch []resource.Resource) error
	Commit(ctx context.Context) error
}

// Resetter drops cached index metadata after a rebuild.
type Resetter interface {
	Reset()
}
