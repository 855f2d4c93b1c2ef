package vector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/hyperjump/gijiroku/internal/config"
	"go.uber.org/zap"
)

// IndexFactory builds the per-scope indices for a dimension.
type IndexFactory func(ctx context.Context, dimensions int) (map[Scope]Index, error)

// Registry owns the single Store of the process. The Store is created on the first
// observed dimension and is never re-dimensioned.
type Registry struct {
	cfg     config.VectorConfig
	dir     string
	logger  *zap.Logger
	factory IndexFactory

	mu    sync.Mutex
	store *Store
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger.
func WithRegistryLogger(l *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithIndexFactory replaces the config-driven backend construction.
func WithIndexFactory(f IndexFactory) RegistryOption {
	return func(r *Registry) { r.factory = f }
}

// NewRegistry returns a Registry for the configured backend. dir is where local
// indices are persisted; empty keeps them in memory only.
func NewRegistry(cfg config.VectorConfig, dir string, opts ...RegistryOption) *Registry {
	r := &Registry{cfg: cfg, dir: dir, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	if r.factory == nil {
		r.factory = func(ctx context.Context, dimensions int) (map[Scope]Index, error) {
			return NewScopeIndexes(ctx, r.cfg, dimensions, r.logger)
		}
	}
	return r
}

func (r *Registry) backend() IndexType {
	b := IndexType(strings.ToLower(r.cfg.Backend))
	if b == "" {
		return IndexTypeMemory
	}
	if b == IndexTypeFAISS && !IsFAISSAvailable() {
		return IndexTypeMemory
	}
	return b
}

// Get returns the Store for dimensions, creating it on first use.
func (r *Registry) Get(ctx context.Context, dimensions int) (*Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.store != nil {
		if r.store.Dimensions() != dimensions {
			return nil, dimensionError(dimensions, r.store.Dimensions())
		}
		return r.store, nil
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	indexes, err := r.factory(ctx, dimensions)
	if err != nil {
		return nil, err
	}
	backend := r.backend()
	dir := ""
	if backend == IndexTypeMemory || backend == IndexTypeFAISS {
		dir = r.dir
	}
	store, err := NewStore(dimensions, backend, indexes, dir, r.logger)
	if err != nil {
		for _, idx := range indexes {
			_ = idx.Close()
		}
		return nil, err
	}
	if err := store.Load(); err != nil {
		if !errors.Is(err, ErrDimensionMismatch) {
			_ = store.Close()
			return nil, err
		}
		r.logger.Warn("persisted vector index has a different dimension, starting empty",
			zap.Int("dimensions", dimensions), zap.Error(err))
	}
	r.logger.Info("vector store ready",
		zap.String("backend", string(backend)),
		zap.Int("dimensions", dimensions),
		zap.Int("title", store.Size(ScopeTitle)),
		zap.Int("summary", store.Size(ScopeSummary)))
	r.store = store
	return store, nil
}

// PersistedDimension returns the dimension of the most recently saved local index
// in the registry directory, or 0 when there is none or the backend is remote.
func (r *Registry) PersistedDimension() (int, error) {
	backend := r.backend()
	if r.dir == "" || (backend != IndexTypeMemory && backend != IndexTypeFAISS) {
		return 0, nil
	}
	matches, err := filepath.Glob(filepath.Join(r.dir, "*.vec"))
	if err != nil {
		return 0, err
	}
	var (
		dim    int
		newest int64
	)
	for _, path := range matches {
		d, ok := dimensionFromIndexFile(filepath.Base(path))
		if !ok {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); dim == 0 || mod > newest {
			dim, newest = d, mod
		}
	}
	return dim, nil
}

// dimensionFromIndexFile parses "<scope>_<dim>.vec".
func dimensionFromIndexFile(name string) (int, bool) {
	base := strings.TrimSuffix(name, ".vec")
	i := strings.LastIndexByte(base, '_')
	if i < 0 {
		return 0, false
	}
	if _, err := ParseScope(base[:i]); err != nil {
		return 0, false
	}
	d, err := strconv.Atoi(base[i+1:])
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

// Current returns the Store if one has been created, or nil.
func (r *Registry) Current() *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store
}

// Save persists local indices of the current Store.
func (r *Registry) Save() error {
	if s := r.Current(); s != nil {
		return s.Save()
	}
	return nil
}

// Close saves local indices and closes the backends.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.store == nil {
		return nil
	}
	saveErr := r.store.Save()
	closeErr := r.store.Close()
	r.store = nil
	return errors.Join(saveErr, closeErr)
}
