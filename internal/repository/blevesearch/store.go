package blevesearch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// MemoryPath keeps the index in memory.
const MemoryPath = ":memory:"

// ErrNotIndexed is returned before the first rebuild of an empty store.
var ErrNotIndexed = errors.New("bleve index not built")

// Store owns the bleve index. A rebuild swaps in a new index because the
// mapping follows the catalog.
type Store struct {
	path string

	mu    sync.RWMutex
	index bleve.Index
}

// Open opens the index at path if it exists. An in-memory or missing index
// stays empty until Recreate.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if s.inMemory() {
		return s, nil
	}
	idx, err := bleve.Open(path)
	switch {
	case errors.Is(err, bleve.ErrorIndexPathDoesNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("open bleve index %s: %w", path, err)
	}
	s.index = idx
	return s, nil
}

func (s *Store) inMemory() bool { return s.path == "" || s.path == MemoryPath }

// Recreate replaces the index with an empty one using m.
func (s *Store) Recreate(m mapping.IndexMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index != nil {
		if err := s.index.Close(); err != nil {
			return fmt.Errorf("close bleve index: %w", err)
		}
		s.index = nil
	}

	var (
		idx bleve.Index
		err error
	)
	if s.inMemory() {
		idx, err = bleve.NewMemOnly(m)
	} else {
		if err := os.RemoveAll(s.path); err != nil {
			return fmt.Errorf("remove bleve index %s: %w", s.path, err)
		}
		idx, err = bleve.New(s.path, m)
	}
	if err != nil {
		return fmt.Errorf("create bleve index: %w", err)
	}
	s.index = idx
	return nil
}

func (s *Store) current() (bleve.Index, error) {
	if s.index == nil {
		return nil, ErrNotIndexed
	}
	return s.index, nil
}

// Search runs req against the current index.
func (s *Store) Search(ctx context.Context, req *bleve.SearchRequest) (*bleve.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, err := s.current()
	if err != nil {
		return nil, err
	}
	return idx.SearchInContext(ctx, req)
}

// Write fills one batch and applies it.
func (s *Store) Write(fill func(b *bleve.Batch) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, err := s.current()
	if err != nil {
		return err
	}
	b := idx.NewBatch()
	if err := fill(b); err != nil {
		return err
	}
	return idx.Batch(b)
}

// GetInternal reads an internal key; a missing key yields nil.
func (s *Store) GetInternal(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, err := s.current()
	if err != nil {
		return nil, err
	}
	return idx.GetInternal(key)
}

// SetInternal writes an internal key.
func (s *Store) SetInternal(key, value []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, err := s.current()
	if err != nil {
		return err
	}
	return idx.SetInternal(key, value)
}

// Ping reports whether an index is open.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, err := s.current()
	return err
}

// Close releases the index.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		return nil
	}
	err := s.index.Close()
	s.index = nil
	return err
}
