package vector

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/hyperjump/gijiroku/pkg/utils"
	"go.uber.org/zap"
)

// Item is one owner vector for BulkLoad.
type Item struct {
	ID     string
	Vector []float32
}

// Store holds the title and summary indices for a single dimension. Vectors are
// unit-normalized before they reach an index, so scores are cosine similarities.
type Store struct {
	dimensions int
	backend    IndexType
	indexes    map[Scope]Index
	dir        string // local persistence directory; empty disables Save/Load
	logger     *zap.Logger
}

// NewStore wraps per-scope indices. Both scopes must be present.
func NewStore(dimensions int, backend IndexType, indexes map[Scope]Index, dir string, logger *zap.Logger) (*Store, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	for _, scope := range Scopes {
		if indexes[scope] == nil {
			return nil, fmt.Errorf("missing %s index", scope)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		dimensions: dimensions,
		backend:    backend,
		indexes:    indexes,
		dir:        dir,
		logger:     logger,
	}, nil
}

// Dimensions returns the vector dimension of this store.
func (s *Store) Dimensions() int { return s.dimensions }

// Backend returns the backend type name.
func (s *Store) Backend() string { return string(s.backend) }

func (s *Store) index(scope Scope) (Index, error) {
	idx, ok := s.indexes[scope]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidScope, scope)
	}
	return idx, nil
}

func (s *Store) unit(v []float32) ([]float32, error) {
	if len(v) != s.dimensions {
		return nil, dimensionError(len(v), s.dimensions)
	}
	return utils.UnitVector(v), nil
}

// Upsert stores or replaces the vector for (scope, id).
func (s *Store) Upsert(ctx context.Context, scope Scope, id string, vector []float32) error {
	idx, err := s.index(scope)
	if err != nil {
		return err
	}
	v, err := s.unit(vector)
	if err != nil {
		return err
	}
	return idx.Upsert(ctx, []string{id}, [][]float32{v})
}

// BulkLoad upserts many vectors into one scope. Every item is validated before
// any write. Local indices apply the whole set at once; remote indices are sent
// in batches and a failed batch reports how many items were already stored.
func (s *Store) BulkLoad(ctx context.Context, scope Scope, items []Item) error {
	idx, err := s.index(scope)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, len(items))
	vecs := make([][]float32, len(items))
	for i, it := range items {
		v, err := s.unit(it.Vector)
		if err != nil {
			return fmt.Errorf("item %q: %w", it.ID, err)
		}
		ids[i] = it.ID
		vecs[i] = v
	}

	b, ok := idx.(batcher)
	if !ok || b.BatchSize() <= 0 {
		return idx.Upsert(ctx, ids, vecs)
	}
	size := b.BatchSize()
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		if err := idx.Upsert(ctx, ids[start:end], vecs[start:end]); err != nil {
			return fmt.Errorf("bulk load %s: %d of %d items stored: %w", scope, start, len(ids), err)
		}
	}
	return nil
}

// Search returns the top-k owners in scope by cosine similarity, descending.
func (s *Store) Search(ctx context.Context, scope Scope, query []float32, k int) ([]Result, error) {
	idx, err := s.index(scope)
	if err != nil {
		return nil, err
	}
	q, err := s.unit(query)
	if err != nil {
		return nil, err
	}
	return idx.Search(ctx, q, k)
}

// Delete removes id from both scopes. Deleting an unknown id is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	var errs []error
	for _, scope := range Scopes {
		if err := s.indexes[scope].Remove(ctx, []string{id}); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", scope, err))
		}
	}
	return errors.Join(errs...)
}

// Size returns the number of vectors stored in scope, or 0 for an unknown scope.
func (s *Store) Size(scope Scope) int {
	idx, ok := s.indexes[scope]
	if !ok {
		return 0
	}
	return idx.Size()
}

func (s *Store) path(scope Scope) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%d.vec", scope, s.dimensions))
}

// Save persists local indices to the store directory.
func (s *Store) Save() error {
	if s.dir == "" {
		return nil
	}
	for _, scope := range Scopes {
		if err := s.indexes[scope].Save(s.path(scope)); err != nil {
			return fmt.Errorf("save %s index: %w", scope, err)
		}
	}
	return nil
}

// Load restores local indices from the store directory. Missing files are ignored.
func (s *Store) Load() error {
	if s.dir == "" {
		return nil
	}
	for _, scope := range Scopes {
		if err := s.indexes[scope].Load(s.path(scope)); err != nil {
			return fmt.Errorf("load %s index: %w", scope, err)
		}
	}
	return nil
}

// Close closes every scope index.
func (s *Store) Close() error {
	var errs []error
	for _, scope := range Scopes {
		if err := s.indexes[scope].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
