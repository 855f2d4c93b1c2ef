package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyQuery is returned for a blank search query.
	ErrEmptyQuery = errors.New("query cannot be empty")
	// ErrInvalidQuery is returned for an unknown scope or mode.
	ErrInvalidQuery = errors.New("invalid search query")
)

// Search scopes. ScopeBoth merges title and summary hits.
const (
	ScopeTitle   = "title"
	ScopeSummary = "summary"
	ScopeBoth    = "both"
)

// Search modes.
const (
	ModeSemantic = "semantic"
	ModeKeyword  = "keyword"
	ModeHybrid   = "hybrid"
)

// SearchQuery represents a meeting search request.
type SearchQuery struct {
	Query string `json:"q"`
	Scope string `json:"scope,omitempty"`
	Mode  string `json:"mode,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// Validate ensures the search query has valid fields and sets defaults.
func (q *SearchQuery) Validate() error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return ErrEmptyQuery
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	switch q.Scope {
	case "":
		q.Scope = ScopeBoth
	case ScopeTitle, ScopeSummary, ScopeBoth:
	default:
		return fmt.Errorf("%w: invalid scope %q: use title, summary or both", ErrInvalidQuery, q.Scope)
	}
	switch q.Mode {
	case "":
		q.Mode = ModeSemantic
	case ModeSemantic, ModeKeyword, ModeHybrid:
	default:
		return fmt.Errorf("%w: invalid mode %q: use semantic, keyword or hybrid", ErrInvalidQuery, q.Mode)
	}
	return nil
}
