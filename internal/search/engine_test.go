package search

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hyperjump/gijiroku/internal/config"
	"github.com/hyperjump/gijiroku/internal/keyword"
	"github.com/hyperjump/gijiroku/internal/models"
	"github.com/hyperjump/gijiroku/internal/storage"
	"github.com/hyperjump/gijiroku/internal/vector"
)

// fixedEmbedder maps known texts to fixed vectors.
type fixedEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fixedEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.vectors[text]
	if !ok {
		return []float32{0, 0, 1}, nil
	}
	return v, nil
}

func (f *fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fixedEmbedder) Dimensions() int { return 3 }
func (f *fixedEmbedder) Close() error    { return nil }

type fixture struct {
	store    *storage.SQLiteStorage
	registry *vector.Registry
	kw       keyword.Index
	emb      *fixedEmbedder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "search.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	kw, err := keyword.NewBleveIndex("")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = kw.Close() })
	reg := vector.NewRegistry(config.VectorConfig{Backend: "memory"}, "")
	t.Cleanup(func() { _ = reg.Close() })
	return &fixture{
		store:    store,
		registry: reg,
		kw:       kw,
		emb:      &fixedEmbedder{vectors: map[string][]float32{"roadmap": {1, 0, 0}}},
	}
}

// add stores a meeting and indexes its vectors.
func (f *fixture) add(t *testing.T, title, summary string, titleVec, summaryVec []float32) string {
	t.Helper()
	ctx := context.Background()
	m := &models.Meeting{ID: models.NewID(), Title: title, Summary: summary, SummarySource: models.SourceHeuristic}
	if err := f.store.CreateMeeting(ctx, m); err != nil {
		t.Fatal(err)
	}
	if err := f.kw.Index(ctx, m); err != nil {
		t.Fatal(err)
	}
	vs, err := f.registry.Get(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := vs.Upsert(ctx, vector.ScopeTitle, m.ID, titleVec); err != nil {
		t.Fatal(err)
	}
	if err := vs.Upsert(ctx, vector.ScopeSummary, m.ID, summaryVec); err != nil {
		t.Fatal(err)
	}
	return m.ID
}

func TestEngine_QueryMergesScopesByMax(t *testing.T) {
	f := newFixture(t)
	a := f.add(t, "A", "alpha", []float32{1, 0, 0}, []float32{0, 1, 0})
	b := f.add(t, "B", "beta", []float32{0, 1, 0}, []float32{0.8, 0.6, 0})
	engine := NewEngine(f.store, f.emb, f.registry, f.kw)
	ctx := context.Background()

	hits, err := engine.Query(ctx, "roadmap", models.ScopeBoth, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 || hits[0].ID != a || hits[1].ID != b {
		t.Fatalf("hits = %+v", hits)
	}
	if hits[0].Score < 0.99 || hits[1].Score < 0.79 || hits[1].Score > 0.81 {
		t.Errorf("scores = %v, %v", hits[0].Score, hits[1].Score)
	}

	hits, err = engine.Query(ctx, "roadmap", models.ScopeSummary, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ID != b {
		t.Fatalf("summary hits = %+v", hits)
	}
}

func TestEngine_QueryEmptyRegistry(t *testing.T) {
	f := newFixture(t)
	engine := NewEngine(f.store, f.emb, f.registry, f.kw)
	hits, err := engine.Query(context.Background(), "roadmap", models.ScopeBoth, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("hits = %+v", hits)
	}
}

func TestEngine_QueryErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	engine := NewEngine(f.store, f.emb, f.registry, f.kw)

	if _, err := engine.Query(ctx, "roadmap", "body", 5); !errors.Is(err, vector.ErrInvalidScope) {
		t.Errorf("invalid scope err = %v", err)
	}
	if _, err := engine.Query(ctx, "", models.ScopeTitle, 5); !errors.Is(err, models.ErrEmptyQuery) {
		t.Errorf("empty query err = %v", err)
	}

	failing := NewEngine(f.store, &fixedEmbedder{err: errors.New("quota")}, f.registry, f.kw)
	if _, err := failing.Query(ctx, "roadmap", models.ScopeTitle, 5); !errors.Is(err, ErrEmbeddingUnavailable) {
		t.Errorf("embed failure err = %v", err)
	}
}

func TestEngine_QueryDimensionMismatch(t *testing.T) {
	f := newFixture(t)
	id := f.add(t, "Budget review", "we agreed on the budget", []float32{1, 0, 0}, []float32{1, 0, 0})
	wide := &fixedEmbedder{vectors: map[string][]float32{"budget": {1, 0, 0, 0}}}
	engine := NewEngine(f.store, wide, f.registry, f.kw)
	ctx := context.Background()

	_, err := engine.Query(ctx, "budget", models.ScopeBoth, 5)
	if !errors.Is(err, ErrEmbeddingUnavailable) || !errors.Is(err, vector.ErrDimensionMismatch) {
		t.Fatalf("err = %v, want ErrEmbeddingUnavailable wrapping ErrDimensionMismatch", err)
	}

	resp, err := engine.Search(ctx, &models.SearchQuery{Query: "budget", Mode: models.ModeHybrid})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Meeting.ID != id {
		t.Errorf("hybrid resp = %+v", resp)
	}
}

func TestEngine_SearchSemantic(t *testing.T) {
	f := newFixture(t)
	a := f.add(t, "Roadmap", "plans", []float32{1, 0, 0}, []float32{0, 1, 0})
	b := f.add(t, "Retro", "lessons", []float32{0.6, 0.8, 0}, []float32{0, 1, 0})
	ctx := context.Background()

	// A vector with no stored meeting is skipped.
	vs := f.registry.Current()
	if err := vs.Upsert(ctx, vector.ScopeTitle, "gone", []float32{0.9, 0.1, 0}); err != nil {
		t.Fatal(err)
	}

	engine := NewEngine(f.store, f.emb, f.registry, f.kw)
	resp, err := engine.Search(ctx, &models.SearchQuery{Query: "roadmap", Scope: models.ScopeTitle})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 || len(resp.Results) != 2 {
		t.Fatalf("results = %+v", resp.Results)
	}
	if resp.Results[0].Meeting.ID != a || resp.Results[1].Meeting.ID != b {
		t.Errorf("order = %s, %s", resp.Results[0].Meeting.ID, resp.Results[1].Meeting.ID)
	}
	if resp.Results[0].Rank != 1 || resp.Results[1].Rank != 2 {
		t.Errorf("ranks = %d, %d", resp.Results[0].Rank, resp.Results[1].Rank)
	}
	if resp.Mode != models.ModeSemantic {
		t.Errorf("mode = %q", resp.Mode)
	}
}

func TestEngine_SearchKeyword(t *testing.T) {
	f := newFixture(t)
	id := f.add(t, "Budget review", "we agreed on the budget", []float32{1, 0, 0}, []float32{1, 0, 0})
	f.add(t, "Hiring", "two new engineers", []float32{0, 1, 0}, []float32{0, 1, 0})
	engine := NewEngine(f.store, f.emb, f.registry, f.kw)
	ctx := context.Background()

	resp, err := engine.Search(ctx, &models.SearchQuery{Query: "budget", Mode: models.ModeKeyword})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Meeting.ID != id || resp.AutoFuzzy {
		t.Fatalf("resp = %+v", resp)
	}

	resp, err = engine.Search(ctx, &models.SearchQuery{Query: "budgat", Mode: models.ModeKeyword})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || !resp.AutoFuzzy {
		t.Fatalf("fuzzy resp = %+v", resp)
	}

	noKeyword := NewEngine(f.store, f.emb, f.registry, nil)
	if _, err := noKeyword.Search(ctx, &models.SearchQuery{Query: "budget", Mode: models.ModeKeyword}); !errors.Is(err, ErrKeywordUnavailable) {
		t.Errorf("err = %v", err)
	}
}

func TestEngine_SearchHybridDegradesToKeyword(t *testing.T) {
	f := newFixture(t)
	id := f.add(t, "Budget review", "we agreed on the budget", []float32{1, 0, 0}, []float32{1, 0, 0})
	engine := NewEngine(f.store, &fixedEmbedder{err: errors.New("offline")}, f.registry, f.kw)

	resp, err := engine.Search(context.Background(), &models.SearchQuery{Query: "budget", Mode: models.ModeHybrid})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Meeting.ID != id {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Results[0].SemanticScore != 0 || resp.Results[0].KeywordScore <= 0 {
		t.Errorf("scores = %+v", resp.Results[0])
	}
}

func TestEngine_SearchValidates(t *testing.T) {
	f := newFixture(t)
	engine := NewEngine(f.store, f.emb, f.registry, f.kw)
	if _, err := engine.Search(context.Background(), &models.SearchQuery{Query: "  "}); !errors.Is(err, models.ErrEmptyQuery) {
		t.Errorf("err = %v", err)
	}
}
