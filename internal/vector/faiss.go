//go:build faiss && cgo
// +build faiss,cgo

package vector

/*
#cgo CFLAGS: -I/opt/homebrew/include -I/usr/local/include
#cgo LDFLAGS: -L/opt/homebrew/lib -L/usr/local/lib -lfaiss_c

#include <stdlib.h>
#include <faiss/c_api/Index_c.h>
#include <faiss/c_api/IndexFlat_c.h>
#include <faiss/c_api/index_io_c.h>
#include <faiss/c_api/error_c.h>
*/
import "C"

import (
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"unsafe"
)

// FAISSIndex is a vector index backed by a FAISS IndexFlatIP. Vectors are expected
// to be unit length so inner product equals cosine similarity. IndexFlat cannot
// delete, so replaced and removed entries stay in FAISS and are dropped from the
// id map.
type FAISSIndex struct {
	index      *C.FaissIndexFlatIP
	dimensions int
	idToIntID  map[string]int64 // string ID -> FAISS internal int64 ID
	intIDToID  map[int64]string // FAISS internal int64 ID -> string ID
	rank       map[string]int64 // first FAISS ID of each string ID, kept across replacement
	nextID     int64
	mu         sync.RWMutex
}

// NewFAISSIndex creates a FAISS index with the given dimension using inner product.
func NewFAISSIndex(dimensions int) (*FAISSIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}

	var index *C.FaissIndexFlatIP
	ret := C.faiss_IndexFlatIP_new_with(&index, C.idx_t(dimensions))
	if ret != 0 {
		return nil, fmt.Errorf("failed to create FAISS index: %s", faissLastError())
	}

	return &FAISSIndex{
		index:      index,
		dimensions: dimensions,
		idToIntID:  make(map[string]int64),
		intIDToID:  make(map[int64]string),
		rank:       make(map[string]int64),
		nextID:     0,
	}, nil
}

// faissLastError returns the last FAISS error message.
func faissLastError() string {
	cErr := C.faiss_get_last_error()
	if cErr == nil {
		return "unknown error"
	}
	return C.GoString(cErr)
}

// Upsert adds vectors under ids. An id already present is remapped to the new
// vector and keeps its original position for tie-breaking; the old FAISS row
// becomes unreachable.
func (f *FAISSIndex) Upsert(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	if len(ids) == 0 {
		return nil
	}
	n := len(vectors)
	flatVectors := make([]float32, n*f.dimensions)
	for i, vec := range vectors {
		if len(vec) != f.dimensions {
			return dimensionError(len(vec), f.dimensions)
		}
		copy(flatVectors[i*f.dimensions:(i+1)*f.dimensions], vec)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	ret := C.faiss_Index_add(
		f.index,
		C.idx_t(n),
		(*C.float)(unsafe.Pointer(&flatVectors[0])),
	)
	if ret != 0 {
		return fmt.Errorf("failed to add vectors to FAISS index: %s", faissLastError())
	}

	for _, id := range ids {
		if old, ok := f.idToIntID[id]; ok {
			delete(f.intIDToID, old)
		} else {
			f.rank[id] = f.nextID
		}
		f.idToIntID[id] = f.nextID
		f.intIDToID[f.nextID] = id
		f.nextID++
	}
	return nil
}

// Search returns the top-k live vectors by inner product. Ties resolve to the
// id inserted first.
func (f *FAISSIndex) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	if len(query) != f.dimensions {
		return nil, dimensionError(len(query), f.dimensions)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if k <= 0 || len(f.idToIntID) == 0 {
		return nil, nil
	}

	ntotal := int(C.faiss_Index_ntotal(f.index))
	if ntotal == 0 {
		return nil, nil
	}

	// Dead rows can occupy the head of the ranking, so ask for enough to skip them.
	want := k + (ntotal - len(f.idToIntID))
	if want > ntotal {
		want = ntotal
	}

	distances := make([]float32, want)
	labels := make([]int64, want)

	ret := C.faiss_Index_search(
		f.index,
		1,
		(*C.float)(unsafe.Pointer(&query[0])),
		C.idx_t(want),
		(*C.float)(unsafe.Pointer(&distances[0])),
		(*C.idx_t)(unsafe.Pointer(&labels[0])),
	)
	if ret != 0 {
		return nil, fmt.Errorf("FAISS search failed: %s", faissLastError())
	}

	type hit struct {
		rank int64
		res  Result
	}
	hits := make([]hit, 0, want)
	for i := 0; i < want; i++ {
		label := labels[i]
		if label < 0 {
			continue
		}
		id, ok := f.intIDToID[label]
		if !ok {
			continue
		}
		hits = append(hits, hit{rank: f.rank[id], res: Result{ID: id, Score: float64(distances[i])}})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].res.Score != hits[j].res.Score {
			return hits[i].res.Score > hits[j].res.Score
		}
		return hits[i].rank < hits[j].rank
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = h.res
	}
	return results, nil
}

// Remove unmaps ids. The FAISS rows remain but are excluded from search results.
func (f *FAISSIndex) Remove(ctx context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, id := range ids {
		if intID, ok := f.idToIntID[id]; ok {
			delete(f.intIDToID, intID)
			delete(f.idToIntID, id)
			delete(f.rank, id)
		}
	}

	return nil
}

// faissIDMapping stores the ID mapping for persistence.
type faissIDMapping struct {
	IDToIntID map[string]int64
	IntIDToID map[int64]string
	Rank      map[string]int64
	NextID    int64
}

// Save persists the index and ID mappings to path.
func (f *FAISSIndex) Save(path string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	cPath := C.CString(path + ".faiss")
	defer C.free(unsafe.Pointer(cPath))

	ret := C.faiss_write_index_fname(f.index, cPath)
	if ret != 0 {
		return fmt.Errorf("failed to save FAISS index: %s", faissLastError())
	}

	mapping := faissIDMapping{
		IDToIntID: f.idToIntID,
		IntIDToID: f.intIDToID,
		Rank:      f.rank,
		NextID:    f.nextID,
	}

	mapFile, err := os.Create(path + ".idmap")
	if err != nil {
		return fmt.Errorf("create id map file: %w", err)
	}
	defer mapFile.Close()

	if err := gob.NewEncoder(mapFile).Encode(mapping); err != nil {
		return fmt.Errorf("encode id map: %w", err)
	}

	return nil
}

// Load reads the index and ID mappings from path.
// If the files do not exist, no error is returned and the index is unchanged.
func (f *FAISSIndex) Load(path string) error {
	if path == "" {
		return nil
	}

	faissPath := path + ".faiss"
	mapPath := path + ".idmap"

	if _, err := os.Stat(faissPath); os.IsNotExist(err) {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	cPath := C.CString(faissPath)
	defer C.free(unsafe.Pointer(cPath))

	var newIndex *C.FaissIndex
	ret := C.faiss_read_index_fname(cPath, 0, &newIndex)
	if ret != 0 {
		return fmt.Errorf("failed to load FAISS index: %s", faissLastError())
	}

	if f.index != nil {
		C.faiss_Index_free(f.index)
	}
	f.index = newIndex

	mapFile, err := os.Open(mapPath)
	if err != nil {
		if os.IsNotExist(err) {
			f.idToIntID = make(map[string]int64)
			f.intIDToID = make(map[int64]string)
			f.rank = make(map[string]int64)
			f.nextID = 0
			return nil
		}
		return fmt.Errorf("open id map file: %w", err)
	}
	defer mapFile.Close()

	var mapping faissIDMapping
	if err := gob.NewDecoder(mapFile).Decode(&mapping); err != nil {
		return fmt.Errorf("decode id map: %w", err)
	}

	f.idToIntID = mapping.IDToIntID
	f.intIDToID = mapping.IntIDToID
	f.rank = mapping.Rank
	if f.rank == nil {
		f.rank = make(map[string]int64, len(f.idToIntID))
		for id, intID := range f.idToIntID {
			f.rank[id] = intID
		}
	}
	f.nextID = mapping.NextID

	return nil
}

// Size returns the number of active vectors (excluding removed ones).
func (f *FAISSIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.idToIntID)
}

// Close frees the FAISS index resources.
func (f *FAISSIndex) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.index != nil {
		C.faiss_Index_free(f.index)
		f.index = nil
	}
	return nil
}

// Type returns the index type identifier.
func (f *FAISSIndex) Type() string {
	return string(IndexTypeFAISS)
}
