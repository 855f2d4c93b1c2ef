package vector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/gijiroku/internal/config"
)

func TestRegistry_LazyCreate(t *testing.T) {
	r := NewRegistry(config.VectorConfig{Backend: "memory"}, "")
	defer r.Close()
	if r.Current() != nil {
		t.Fatal("store exists before first Get")
	}
	s, err := r.Get(context.Background(), 4)
	if err != nil {
		t.Fatal(err)
	}
	if s.Dimensions() != 4 || s.Backend() != "memory" {
		t.Errorf("store = %d/%s", s.Dimensions(), s.Backend())
	}
	if r.Current() != s {
		t.Error("Current does not return the created store")
	}
	again, _ := r.Get(context.Background(), 4)
	if again != s {
		t.Error("second Get created a new store")
	}
}

func TestRegistry_NeverRedimensions(t *testing.T) {
	r := NewRegistry(config.VectorConfig{}, "")
	defer r.Close()
	ctx := context.Background()
	if _, err := r.Get(ctx, 4); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Get(ctx, 8); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("err = %v, want ErrDimensionMismatch", err)
	}
	if r.Current().Dimensions() != 4 {
		t.Errorf("dimension changed to %d", r.Current().Dimensions())
	}
}

func TestRegistry_ConcurrentGet(t *testing.T) {
	calls := 0
	var mu sync.Mutex
	factory := func(ctx context.Context, dim int) (map[Scope]Index, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return NewScopeIndexes(ctx, config.VectorConfig{}, dim, nil)
	}
	r := NewRegistry(config.VectorConfig{}, "", WithIndexFactory(factory))
	defer r.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Get(context.Background(), 3); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if calls != 1 {
		t.Errorf("factory called %d times, want 1", calls)
	}
}

func TestRegistry_FactoryError(t *testing.T) {
	r := NewRegistry(config.VectorConfig{Backend: "pinecone"}, "")
	if _, err := r.Get(context.Background(), 3); !errors.Is(err, ErrMissingConfig) {
		t.Fatalf("err = %v, want ErrMissingConfig", err)
	}
	if r.Current() != nil {
		t.Error("failed Get left a store behind")
	}
}

func TestRegistry_ClosePersistsLocalIndices(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	r := NewRegistry(config.VectorConfig{}, dir)
	s, _ := r.Get(ctx, 2)
	_ = s.Upsert(ctx, ScopeTitle, "m1", []float32{1, 0})
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}

	r2 := NewRegistry(config.VectorConfig{}, dir)
	defer r2.Close()
	s2, err := r2.Get(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if s2.Size(ScopeTitle) != 1 {
		t.Errorf("title size after reopen = %d, want 1", s2.Size(ScopeTitle))
	}

	// A different dimension starts empty instead of failing.
	r3 := NewRegistry(config.VectorConfig{}, dir)
	defer r3.Close()
	s3, err := r3.Get(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if s3.Size(ScopeTitle) != 0 {
		t.Errorf("size = %d, want 0", s3.Size(ScopeTitle))
	}
}

func TestDimensionFromIndexFile(t *testing.T) {
	tests := []struct {
		name string
		dim  int
		ok   bool
	}{
		{"title_384.vec", 384, true},
		{"summary_4.vec", 4, true},
		{"body_384.vec", 0, false},
		{"title_0.vec", 0, false},
		{"title_x.vec", 0, false},
		{"title.vec", 0, false},
	}
	for _, tt := range tests {
		dim, ok := dimensionFromIndexFile(tt.name)
		if dim != tt.dim || ok != tt.ok {
			t.Errorf("dimensionFromIndexFile(%q) = %d, %v; want %d, %v", tt.name, dim, ok, tt.dim, tt.ok)
		}
	}
}

func TestRegistry_PersistedDimension(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(config.VectorConfig{Backend: "memory"}, dir)
	if dim, err := r.PersistedDimension(); err != nil || dim != 0 {
		t.Fatalf("empty dir: %d, %v", dim, err)
	}

	s, err := r.Get(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(context.Background(), ScopeTitle, "a", []float32{1, 0, 0}); err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	// An older index of another dimension loses to the newest one.
	old := filepath.Join(dir, "title_8.vec")
	if err := os.WriteFile(old, nil, 0644); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}

	if dim, err := r.PersistedDimension(); err != nil || dim != 3 {
		t.Errorf("PersistedDimension() = %d, %v; want 3", dim, err)
	}

	remote := NewRegistry(config.VectorConfig{Backend: "qdrant"}, dir)
	if dim, _ := remote.PersistedDimension(); dim != 0 {
		t.Errorf("remote backend dimension = %d, want 0", dim)
	}
}
