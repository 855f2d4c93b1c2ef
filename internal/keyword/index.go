// Package keyword provides full-text search over meeting titles and summaries.
package keyword

import (
	"context"

	"github.com/hyperjump/gijiroku/internal/models"
)

// Field names indexed for every meeting.
const (
	FieldTitle   = "title"
	FieldSummary = "summary"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// Fields restricts matching to the given fields. Empty means title and summary.
	Fields []string
	// TitleBoost multiplies the score contribution from title matches. Values <= 1 disable it.
	TitleBoost float64
	// Fuzzy enables edit-distance matching for typo tolerance.
	Fuzzy bool
	// Fuzziness is the maximum Levenshtein distance (1 or 2). Default 1.
	Fuzziness int
}

// Index defines keyword search operations over meetings.
type Index interface {
	Index(ctx context.Context, m *models.Meeting) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]Result, error)
	Delete(ctx context.Context, id string) error
	DocCount() (uint64, error)
	Close() error
}

// Result is a single keyword search hit.
type Result struct {
	ID    string
	Score float64
}
