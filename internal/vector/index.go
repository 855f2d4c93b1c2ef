// Package vector provides per-scope vector indices, the scoped Store and the
// dimension Registry used for meeting title and summary similarity search.
package vector

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch is returned when a vector does not have the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrInvalidScope is returned for a scope other than title or summary.
	ErrInvalidScope = errors.New("invalid scope")
	// ErrMissingConfig is returned when a remote backend lacks required settings.
	ErrMissingConfig = errors.New("missing vector backend configuration")
)

// Scope names the text field a vector was computed from.
type Scope string

const (
	ScopeTitle   Scope = "title"
	ScopeSummary Scope = "summary"
)

// Scopes lists every scope in a fixed order.
var Scopes = []Scope{ScopeTitle, ScopeSummary}

// ParseScope validates s as a scope name.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeTitle, ScopeSummary:
		return Scope(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidScope, s)
	}
}

// Index defines vector storage and similarity search for a single scope.
// Upsert replaces any vector already stored under the same id.
type Index interface {
	Upsert(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]Result, error)
	Remove(ctx context.Context, ids []string) error
	Save(path string) error
	Load(path string) error
	Size() int
	Close() error
}

// Result is a single vector search hit. ID is the owning meeting id.
type Result struct {
	ID    string
	Score float64 // cosine similarity for unit vectors
}

// batcher is implemented by remote backends that cap the size of one upsert request.
type batcher interface {
	BatchSize() int
}

func dimensionError(got, want int) error {
	return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, got, want)
}
