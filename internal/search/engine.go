// Package search ranks meetings against a text query: semantic search over the
// title and summary vector scopes, keyword search over bleve, or both fused.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hyperjump/gijiroku/internal/embedding"
	"github.com/hyperjump/gijiroku/internal/keyword"
	"github.com/hyperjump/gijiroku/internal/models"
	"github.com/hyperjump/gijiroku/internal/storage"
	"github.com/hyperjump/gijiroku/internal/vector"
)

// ErrEmbeddingUnavailable is returned when the query cannot be embedded.
var ErrEmbeddingUnavailable = errors.New("embeddings unavailable")

// ErrKeywordUnavailable is returned for keyword searches without a keyword index.
var ErrKeywordUnavailable = errors.New("keyword index not configured")

const (
	defaultKeywordWeight  = 0.4
	defaultSemanticWeight = 0.6
	defaultTitleBoost     = 2.0
)

// Engine runs meeting searches.
type Engine struct {
	storage        storage.Storage
	embedder       embedding.Embedder
	vectors        *vector.Registry
	keywordIndex   keyword.Index
	logger         *zap.Logger
	tracer         trace.Tracer
	keywordWeight  float64
	semanticWeight float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithWeights sets the hybrid fusion weights.
func WithWeights(keywordWeight, semanticWeight float64) Option {
	return func(e *Engine) {
		e.keywordWeight = keywordWeight
		e.semanticWeight = semanticWeight
	}
}

// NewEngine creates a search engine. keywordIndex may be nil, which disables
// keyword and hybrid modes' keyword half.
func NewEngine(
	store storage.Storage,
	embedder embedding.Embedder,
	vectors *vector.Registry,
	keywordIndex keyword.Index,
	opts ...Option,
) *Engine {
	e := &Engine{
		storage:        store,
		embedder:       embedder,
		vectors:        vectors,
		keywordIndex:   keywordIndex,
		logger:         zap.NewNop(),
		tracer:         otel.Tracer("github.com/hyperjump/gijiroku/internal/search"),
		keywordWeight:  defaultKeywordWeight,
		semanticWeight: defaultSemanticWeight,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func scopesFor(scope string) ([]vector.Scope, error) {
	if scope == models.ScopeBoth {
		return vector.Scopes, nil
	}
	s, err := vector.ParseScope(scope)
	if err != nil {
		return nil, err
	}
	return []vector.Scope{s}, nil
}

// Query embeds text once and returns the top k meeting ids by cosine similarity.
// With scope "both" each scope is searched with limit k and the lists are merged
// keeping each meeting's best score. Nothing indexed yet yields no hits.
func (e *Engine) Query(ctx context.Context, text, scope string, k int) ([]Hit, error) {
	scopes, err := scopesFor(scope)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, models.ErrEmptyQuery
	}
	if k <= 0 {
		return []Hit{}, nil
	}

	vec, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}
	store := e.vectors.Current()
	if store == nil {
		return []Hit{}, nil
	}
	if len(vec) != store.Dimensions() {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, index has %d: %w",
			ErrEmbeddingUnavailable, len(vec), store.Dimensions(), vector.ErrDimensionMismatch)
	}

	lists := make([][]vector.Result, 0, len(scopes))
	for _, s := range scopes {
		results, err := store.Search(ctx, s, vec, k)
		if err != nil {
			return nil, fmt.Errorf("vector search %s: %w", s, err)
		}
		lists = append(lists, results)
	}
	hits := MergeByMax(lists...)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (e *Engine) keywordSearch(ctx context.Context, q *models.SearchQuery, limit int) ([]keyword.Result, bool, error) {
	if e.keywordIndex == nil {
		return nil, false, ErrKeywordUnavailable
	}
	opts := &keyword.SearchOptions{TitleBoost: defaultTitleBoost}
	switch q.Scope {
	case models.ScopeTitle:
		opts.Fields = []string{keyword.FieldTitle}
	case models.ScopeSummary:
		opts.Fields = []string{keyword.FieldSummary}
	}
	results, err := e.keywordIndex.Search(ctx, q.Query, limit, opts)
	if err != nil {
		return nil, false, err
	}
	if len(results) > 0 {
		return results, false, nil
	}
	// Nothing matched exactly: retry with typo tolerance.
	opts.Fuzzy = true
	results, err = e.keywordIndex.Search(ctx, q.Query, limit, opts)
	if err != nil {
		return nil, false, err
	}
	return results, len(results) > 0, nil
}

// Search validates q, ranks meetings in the requested mode and loads them in
// ranking order.
func (e *Engine) Search(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := q.Validate(); err != nil {
		return nil, err
	}
	ctx, span := e.tracer.Start(ctx, "search.Search", trace.WithAttributes(
		attribute.String("mode", q.Mode),
		attribute.String("scope", q.Scope),
		attribute.Int("limit", q.Limit),
	))
	defer span.End()

	var (
		ranked    []*FusedResult
		autoFuzzy bool
	)
	switch q.Mode {
	case models.ModeKeyword:
		kw, fuzzy, err := e.keywordSearch(ctx, q, q.Limit)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		autoFuzzy = fuzzy
		ranked = Fuse(kw, nil, 1, 0)
	case models.ModeHybrid:
		sem, semErr := e.Query(ctx, q.Query, q.Scope, q.Limit)
		kw, fuzzy, kwErr := e.keywordSearch(ctx, q, q.Limit)
		if semErr != nil && kwErr != nil {
			span.RecordError(semErr)
			span.SetStatus(codes.Error, semErr.Error())
			return nil, semErr
		}
		if semErr != nil {
			e.logger.Warn("semantic half of hybrid search failed", zap.Error(semErr))
		}
		if kwErr != nil {
			e.logger.Warn("keyword half of hybrid search failed", zap.Error(kwErr))
		}
		autoFuzzy = fuzzy
		ranked = Fuse(kw, sem, e.keywordWeight, e.semanticWeight)
	default:
		sem, err := e.Query(ctx, q.Query, q.Scope, q.Limit)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		ranked = Fuse(nil, sem, 0, 1)
	}
	if len(ranked) > q.Limit {
		ranked = ranked[:q.Limit]
	}

	ids := make([]string, len(ranked))
	for i, r := range ranked {
		ids[i] = r.MeetingID
	}
	meetings, err := e.storage.GetMeetings(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load meetings: %w", err)
	}
	byID := make(map[string]*models.Meeting, len(meetings))
	for _, m := range meetings {
		byID[m.ID] = m
	}

	response := &models.SearchResponse{
		Results:   make([]*models.SearchResult, 0, len(ranked)),
		Query:     q.Query,
		Scope:     q.Scope,
		Mode:      q.Mode,
		AutoFuzzy: autoFuzzy,
	}
	for _, r := range ranked {
		m, ok := byID[r.MeetingID]
		if !ok {
			// Indexed but no longer stored.
			continue
		}
		response.Results = append(response.Results, &models.SearchResult{
			Meeting:       m,
			Score:         r.Score,
			KeywordScore:  r.KeywordScore,
			SemanticScore: r.SemanticScore,
			Rank:          len(response.Results) + 1,
		})
	}
	response.Total = len(response.Results)
	response.QueryTime = time.Since(startTime).Milliseconds()
	span.SetAttributes(attribute.Int("results", response.Total))
	return response, nil
}
