// Package indexing rebuilds external engine indexes from the relational source.
package indexing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/facetdex/internal/domain"
)

// DefaultBatchSize is the number of resources read per batch.
const DefaultBatchSize = 500

// Target pairs an indexer with the engines that read its index.
type Target struct {
	// Name selects the target; Indexer.Name() when empty.
	Name    string
	Indexer Indexer
	// Engines are reset after a successful commit.
	Engines []Resetter
}

// Result summarizes one rebuild.
type Result struct {
	Engine    string
	Documents int
	Duration  time.Duration
}

// Service runs synchronous rebuilds.
type Service struct {
	src       Source
	targets   map[string]Target
	batchSize int
	log       *zap.Logger
}

// New creates an indexing service. A nil logger discards output.
func New(src Source, log *zap.Logger, targets ...Target) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		src:       src,
		targets:   make(map[string]Target, len(targets)),
		batchSize: DefaultBatchSize,
		log:       log,
	}
	for _, t := range targets {
		if t.Name == "" {
			t.Name = t.Indexer.Name()
		}
		s.targets[t.Name] = t
	}
	return s
}

// WithBatchSize configures the read batch size.
func (s *Service) WithBatchSize(size int) *Service {
	if size > 0 {
		s.batchSize = size
	}
	return s
}

// Engines lists the indexable engine names.
func (s *Service) Engines() []string {
	out := make([]string, 0, len(s.targets))
	for name := range s.targets {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Reindex rebuilds the index of the named engine.
func (s *Service) Reindex(ctx context.Context, engine string) (Result, error) {
	t, ok := s.targets[engine]
	if !ok {
		return Result{}, fmt.Errorf("reindex %q: %w", engine, domain.ErrUnknownEngine)
	}
	start := time.Now()
	n, err := s.rebuild(ctx, t.Indexer)
	res := Result{Engine: engine, Documents: n, Duration: time.Since(start)}
	if err != nil {
		s.log.Error("reindex failed",
			zap.String("engine", engine), zap.Int("documents", n), zap.Error(err))
		return res, fmt.Errorf("reindex %q: %w", engine, err)
	}
	for _, e := range t.Engines {
		e.Reset()
	}
	s.log.Info("reindex complete",
		zap.String("engine", engine), zap.Int("documents", n), zap.Duration("duration", res.Duration))
	return res, nil
}

// ReindexAll rebuilds every engine in name order, stopping at the first error.
func (s *Service) ReindexAll(ctx context.Context) ([]Result, error) {
	names := s.Engines()
	out := make([]Result, 0, len(names))
	for _, name := range names {
		res, err := s.Reindex(ctx, name)
		if err != nil {
			return out, err
		}
		out = append(out, res)
	}
	return out, nil
}

func (s *Service) rebuild(ctx context.Context, x Indexer) (int, error) {
	cat, err := s.src.Catalog(ctx)
	if err != nil {
		return 0, fmt.Errorf("read catalog: %w", err)
	}
	dir, err := s.src.Directory(ctx)
	if err != nil {
		return 0, fmt.Errorf("read directory: %w", err)
	}
	if err := x.Begin(ctx, cat, dir); err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}

	var (
		total   int
		afterID int64
	)
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		batch, err := s.src.List(ctx, afterID, s.batchSize)
		if err != nil {
			return total, fmt.Errorf("list after %d: %w", afterID, err)
		}
		if len(batch) == 0 {
			break
		}
		if err := x.Index(ctx, batch); err != nil {
			return total, fmt.Errorf("index batch after %d: %w", afterID, err)
		}
		total += len(batch)
		afterID = batch[len(batch)-1].ID
		s.log.Debug("indexed batch", zap.String("engine", x.Name()), zap.Int("total", total))
		if len(batch) < s.batchSize {
			break
		}
	}
	if err := x.Commit(ctx); err != nil {
		return total, fmt.Errorf("commit: %w", err)
	}
	return total, nil
}
