package vector

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
)

func newMemoryStore(t *testing.T, dim int, dir string) *Store {
	t.Helper()
	indexes := make(map[Scope]Index)
	for _, scope := range Scopes {
		idx, err := NewMemoryIndex(dim)
		if err != nil {
			t.Fatal(err)
		}
		indexes[scope] = idx
	}
	s, err := NewStore(dim, IndexTypeMemory, indexes, dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestStore_SelfSimilarity(t *testing.T) {
	s := newMemoryStore(t, 3, "")
	ctx := context.Background()
	v := []float32{3, 4, 0}
	if err := s.Upsert(ctx, ScopeTitle, "m1", v); err != nil {
		t.Fatal(err)
	}
	results, err := s.Search(ctx, ScopeTitle, v, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "m1" {
		t.Fatalf("results = %+v", results)
	}
	if math.Abs(results[0].Score-1) > 1e-4 {
		t.Errorf("self score = %f, want ~1", results[0].Score)
	}
}

func TestStore_ZeroQuery(t *testing.T) {
	s := newMemoryStore(t, 2, "")
	ctx := context.Background()
	_ = s.Upsert(ctx, ScopeSummary, "m1", []float32{1, 0})
	results, err := s.Search(ctx, ScopeSummary, []float32{0, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Score != 0 {
		t.Errorf("zero query results = %+v", results)
	}
}

func TestStore_ScopesAreIndependent(t *testing.T) {
	s := newMemoryStore(t, 2, "")
	ctx := context.Background()
	_ = s.Upsert(ctx, ScopeTitle, "m1", []float32{1, 0})
	if s.Size(ScopeSummary) != 0 {
		t.Errorf("summary size = %d", s.Size(ScopeSummary))
	}
	results, _ := s.Search(ctx, ScopeSummary, []float32{1, 0}, 5)
	if len(results) != 0 {
		t.Errorf("summary search = %+v", results)
	}
}

func TestStore_InvalidScope(t *testing.T) {
	s := newMemoryStore(t, 2, "")
	ctx := context.Background()
	if err := s.Upsert(ctx, Scope("body"), "m1", []float32{1, 0}); !errors.Is(err, ErrInvalidScope) {
		t.Errorf("Upsert err = %v", err)
	}
	if _, err := s.Search(ctx, Scope("both"), []float32{1, 0}, 1); !errors.Is(err, ErrInvalidScope) {
		t.Errorf("Search err = %v", err)
	}
	if err := s.BulkLoad(ctx, Scope(""), nil); !errors.Is(err, ErrInvalidScope) {
		t.Errorf("BulkLoad err = %v", err)
	}
}

func TestStore_DimensionMismatch(t *testing.T) {
	s := newMemoryStore(t, 3, "")
	ctx := context.Background()
	if err := s.Upsert(ctx, ScopeTitle, "m1", []float32{1, 0}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Upsert err = %v", err)
	}
	if _, err := s.Search(ctx, ScopeTitle, []float32{1, 0, 0, 0}, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Search err = %v", err)
	}
}

func TestStore_DeleteBothScopes(t *testing.T) {
	s := newMemoryStore(t, 2, "")
	ctx := context.Background()
	_ = s.Upsert(ctx, ScopeTitle, "m1", []float32{1, 0})
	_ = s.Upsert(ctx, ScopeSummary, "m1", []float32{0, 1})
	_ = s.Upsert(ctx, ScopeSummary, "m2", []float32{0, 1})
	if err := s.Delete(ctx, "m1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "m1"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	for _, scope := range Scopes {
		results, _ := s.Search(ctx, scope, []float32{1, 1}, 10)
		for _, r := range results {
			if r.ID == "m1" {
				t.Errorf("%s still returns m1", scope)
			}
		}
	}
	if s.Size(ScopeSummary) != 1 {
		t.Errorf("summary size = %d, want 1", s.Size(ScopeSummary))
	}
}

func TestStore_BulkLoadLocalAllOrNothing(t *testing.T) {
	s := newMemoryStore(t, 2, "")
	ctx := context.Background()
	items := []Item{
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "b", Vector: []float32{1}},
	}
	if err := s.BulkLoad(ctx, ScopeTitle, items); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("err = %v", err)
	}
	if s.Size(ScopeTitle) != 0 {
		t.Errorf("partial bulk load: size = %d", s.Size(ScopeTitle))
	}
	items[1].Vector = []float32{0, 2}
	if err := s.BulkLoad(ctx, ScopeTitle, items); err != nil {
		t.Fatal(err)
	}
	if s.Size(ScopeTitle) != 2 {
		t.Errorf("size = %d, want 2", s.Size(ScopeTitle))
	}
}

// remoteStub records batches and fails from a given call onwards.
type remoteStub struct {
	*MemoryIndex
	batches  []int
	failFrom int
}

func (r *remoteStub) BatchSize() int { return 2 }

func (r *remoteStub) Upsert(ctx context.Context, ids []string, vectors [][]float32) error {
	if r.failFrom > 0 && len(r.batches)+1 >= r.failFrom {
		return errors.New("service unavailable")
	}
	r.batches = append(r.batches, len(ids))
	return r.MemoryIndex.Upsert(ctx, ids, vectors)
}

func newRemoteStore(t *testing.T, failFrom int) (*Store, *remoteStub) {
	t.Helper()
	title, _ := NewMemoryIndex(2)
	summary, _ := NewMemoryIndex(2)
	stub := &remoteStub{MemoryIndex: title, failFrom: failFrom}
	s, err := NewStore(2, IndexTypeQdrant, map[Scope]Index{ScopeTitle: stub, ScopeSummary: summary}, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	return s, stub
}

func TestStore_BulkLoadRemoteBatches(t *testing.T) {
	s, stub := newRemoteStore(t, 0)
	items := make([]Item, 5)
	for i := range items {
		items[i] = Item{ID: string(rune('a' + i)), Vector: []float32{1, float32(i)}}
	}
	if err := s.BulkLoad(context.Background(), ScopeTitle, items); err != nil {
		t.Fatal(err)
	}
	want := []int{2, 2, 1}
	if len(stub.batches) != len(want) {
		t.Fatalf("batches = %v, want %v", stub.batches, want)
	}
	for i := range want {
		if stub.batches[i] != want[i] {
			t.Fatalf("batches = %v, want %v", stub.batches, want)
		}
	}
}

func TestStore_BulkLoadRemotePartialFailure(t *testing.T) {
	s, _ := newRemoteStore(t, 2)
	items := make([]Item, 5)
	for i := range items {
		items[i] = Item{ID: string(rune('a' + i)), Vector: []float32{1, float32(i)}}
	}
	err := s.BulkLoad(context.Background(), ScopeTitle, items)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "2 of 5 items stored") {
		t.Errorf("error %q does not report progress", err)
	}
	if s.Size(ScopeTitle) != 2 {
		t.Errorf("size = %d, want 2", s.Size(ScopeTitle))
	}
}

func TestStore_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s := newMemoryStore(t, 2, dir)
	_ = s.Upsert(ctx, ScopeTitle, "m1", []float32{1, 0})
	_ = s.Upsert(ctx, ScopeSummary, "m1", []float32{0, 1})
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}

	s2 := newMemoryStore(t, 2, dir)
	if err := s2.Load(); err != nil {
		t.Fatal(err)
	}
	if s2.Size(ScopeTitle) != 1 || s2.Size(ScopeSummary) != 1 {
		t.Errorf("sizes after load = %d/%d", s2.Size(ScopeTitle), s2.Size(ScopeSummary))
	}
}
