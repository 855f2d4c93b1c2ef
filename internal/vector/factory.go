package vector

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/gijiroku/internal/config"
	"go.uber.org/zap"
)

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeMemory uses in-memory brute-force search. Good for small datasets (<10k vectors).
	IndexTypeMemory IndexType = "memory"
	// IndexTypeFAISS uses a FAISS flat inner-product index.
	// Requires FAISS library and build tag -tags=faiss.
	IndexTypeFAISS IndexType = "faiss"
	// IndexTypePinecone stores each scope as a namespace of a Pinecone index.
	IndexTypePinecone IndexType = "pinecone"
	// IndexTypeQdrant stores each scope as a qdrant collection.
	IndexTypeQdrant IndexType = "qdrant"
)

// NewVectorIndex creates a local vector index of the specified type.
// Supported types: "memory" (default), "faiss".
func NewVectorIndex(indexType string, dimensions int) (Index, error) {
	switch IndexType(indexType) {
	case IndexTypeMemory, "":
		return NewMemoryIndex(dimensions)
	case IndexTypeFAISS:
		return NewFAISSIndex(dimensions)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: memory, faiss)", indexType)
	}
}

// NewScopeIndexes builds one index per scope for the configured backend.
// An unavailable FAISS build falls back to memory.
func NewScopeIndexes(ctx context.Context, cfg config.VectorConfig, dimensions int, logger *zap.Logger) (map[Scope]Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	backend := IndexType(strings.ToLower(cfg.Backend))
	switch backend {
	case IndexTypePinecone:
		return NewPineconeIndexes(ctx, cfg.Pinecone, dimensions, cfg.FitDimension)
	case IndexTypeQdrant:
		return NewQdrantIndexes(ctx, cfg.Qdrant, dimensions, cfg.FitDimension)
	case IndexTypeFAISS:
		if !IsFAISSAvailable() {
			logger.Warn("FAISS not available, using memory index")
			backend = IndexTypeMemory
		}
	case IndexTypeMemory, "":
		backend = IndexTypeMemory
	default:
		return nil, fmt.Errorf("unknown vector backend: %s (supported: memory, faiss, pinecone, qdrant)", cfg.Backend)
	}

	out := make(map[Scope]Index, len(Scopes))
	for _, scope := range Scopes {
		idx, err := NewVectorIndex(string(backend), dimensions)
		if err != nil {
			for _, made := range out {
				_ = made.Close()
			}
			return nil, fmt.Errorf("create %s index: %w", scope, err)
		}
		out[scope] = idx
	}
	return out, nil
}

// IsFAISSAvailable returns true if FAISS support is compiled in.
// This is determined by the build tag -tags=faiss.
func IsFAISSAvailable() bool {
	idx, err := NewFAISSIndex(1)
	if err != nil {
		return false
	}
	_ = idx.Close()
	return true
}
