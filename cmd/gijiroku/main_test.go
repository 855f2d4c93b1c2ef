package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/gijiroku/internal/config"
	"github.com/hyperjump/gijiroku/internal/fileid"
	"github.com/hyperjump/gijiroku/internal/models"
	"github.com/hyperjump/gijiroku/internal/server"
	"github.com/hyperjump/gijiroku/internal/vector"
)

func TestSearchArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after query are moved first",
			args:     []string{"quarterly budget", "-limit", "5"},
			expected: []string{"-limit", "5", "quarterly budget"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-scope", "title", "quarterly budget"},
			expected: []string{"-scope", "title", "quarterly budget"},
		},
		{
			name:     "query only returns unchanged",
			args:     []string{"quarterly budget"},
			expected: []string{"quarterly budget"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "meeting id then flags",
			args:     []string{"7b6c1d2e", "--to", "a@example.com"},
			expected: []string{"--to", "a@example.com", "7b6c1d2e"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := searchArgsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("searchArgsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"roadmap"}, "roadmap"},
		{"multiple words", []string{"hiring", "plan"}, "hiring plan"},
		{"single quoted phrase", []string{"hiring plan"}, "hiring plan"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildSearchQuery(tt.args); got != tt.expected {
				t.Errorf("buildSearchQuery(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a@example.com", []string{"a@example.com"}},
		{" a@example.com, ,b@example.com ,", []string{"a@example.com", "b@example.com"}},
	}
	for _, tt := range tests {
		if got := splitList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestReadTranscript(t *testing.T) {
	text, title, err := readTranscript("", strings.NewReader("Alice: hello"))
	if err != nil || text != "Alice: hello" || title != "" {
		t.Errorf("stdin: %q %q %v", text, title, err)
	}

	path := filepath.Join(t.TempDir(), "2024-05-01_weekly-sync.srt")
	srt := "1\n00:00:01,000 --> 00:00:02,000\nAlice: ship it\n"
	if err := os.WriteFile(path, []byte(srt), 0644); err != nil {
		t.Fatal(err)
	}
	text, title, err = readTranscript(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(text, "-->") || !strings.Contains(text, "Alice: ship it") {
		t.Errorf("file text = %q", text)
	}
	if title != "2024-05-01 weekly sync" {
		t.Errorf("title = %q", title)
	}

	if _, _, err := readTranscript(filepath.Join(t.TempDir(), "missing.txt"), nil); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, resolved, err := loadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if resolved != "" || cfg.Server.Port == 0 {
		t.Errorf("defaults: resolved %q port %d", resolved, cfg.Server.Port)
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9191\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, resolved, err = loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != path || cfg.Server.Port != 9191 {
		t.Errorf("explicit: resolved %q port %d", resolved, cfg.Server.Port)
	}

	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.Backend = "sqlite"
	cfg.Storage.DatabasePath = filepath.Join(dir, "meetings.db")
	cfg.Storage.BleveIndexPath = filepath.Join(dir, "bleve")
	cfg.Storage.VectorIndexPath = filepath.Join(dir, "vectors")
	cfg.Summarizer.Provider = "none"
	cfg.Embedding.Provider = "mock"
	cfg.Embedding.Dimensions = 16
	cfg.Embedding.RedisURL = ""
	cfg.Vector = config.VectorConfig{Backend: "memory"}
	cfg.Events.NATSURL = ""
	return cfg
}

func TestInitializeComponents_SearchViaHTTP(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	c, err := initializeComponents(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	m, err := c.Meetings.Summarize(ctx, &models.MeetingInput{
		Title:        "Budget review",
		Instructions: "list action items",
		Text:         "Alice: We agreed to ship by Friday. Bob: I will send the report.",
	})
	if err != nil {
		t.Fatal(err)
	}

	ts := httptest.NewServer(server.NewServer(c.Meetings, c.Engine, cfg.Server, nil).Handler())
	defer ts.Close()
	resp, err := searchViaHTTP(ts.Client(), ts.URL+"/", &models.SearchQuery{Query: "Budget review", Scope: models.ScopeTitle, Limit: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Meeting.ID != m.ID {
		t.Errorf("results = %+v", resp.Results)
	}

	if _, err := searchViaHTTP(ts.Client(), ts.URL, &models.SearchQuery{Query: "x", Mode: "magic"}); err == nil || !strings.Contains(err.Error(), "400") {
		t.Errorf("bad mode err = %v", err)
	}
}

func TestInitializeComponents_PersistsVectors(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	c, err := initializeComponents(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Meetings.Summarize(ctx, &models.MeetingInput{
		Title: "Retro", Instructions: "summarize", Text: "We shipped the release.",
	}); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	c, err = initializeComponents(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	st, err := c.Meetings.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Meetings != 1 || st.TitleVectors != 1 || st.SummaryVectors != 1 || st.KeywordDocs != 1 {
		t.Errorf("status after reopen = %+v", st)
	}
}

// ollamaStub answers /api/embeddings with 4-dimension vectors, whatever the
// configured embedding size is.
func ollamaStub(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		vec := []float64{0, 1, 0, 0}
		if strings.Contains(strings.ToLower(req.Prompt), "budget") {
			vec = []float64{1, 0, 0, 0}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": vec})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestInitializeComponents_DimensionFromProvider(t *testing.T) {
	ollama := ollamaStub(t)
	cfg := testConfig(t)
	cfg.Embedding.Provider = "ollama"
	cfg.Embedding.OllamaURL = ollama.URL
	cfg.Embedding.Model = "nomic-embed-text"
	cfg.Embedding.Dimensions = 768
	ctx := context.Background()

	c, err := initializeComponents(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if c.Vectors.Current() != nil {
		t.Fatal("vector store opened before any vector was seen")
	}
	m, err := c.Meetings.Summarize(ctx, &models.MeetingInput{
		Title:        "Budget review",
		Instructions: "summarize",
		Text:         "Alice: We agreed to cut the travel budget.",
	})
	if err != nil {
		t.Fatal(err)
	}
	if st := c.Vectors.Current(); st == nil || st.Dimensions() != 4 {
		t.Fatalf("store = %+v, want dimension 4", st)
	}
	hits, err := c.Engine.Query(ctx, "budget", models.ScopeBoth, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) == 0 || hits[0].ID != m.ID {
		t.Fatalf("hits = %+v", hits)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	// Persisted index files carry the dimension.
	c, err = initializeComponents(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if st := c.Vectors.Current(); st == nil || st.Dimensions() != 4 || st.Size(vector.ScopeTitle) != 1 {
		t.Fatalf("reopened store = %+v", st)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	// Without index files the first stored embedding decides.
	if err := os.RemoveAll(cfg.Storage.VectorIndexPath); err != nil {
		t.Fatal(err)
	}
	c, err = initializeComponents(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if st := c.Vectors.Current(); st == nil || st.Dimensions() != 4 {
		t.Fatalf("store from stored embeddings = %+v", st)
	}
	if _, err := c.Engine.Query(ctx, "budget", models.ScopeBoth, 5); err != nil {
		t.Errorf("query err = %v", err)
	}
}

func TestInboxHandler(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	c, err := initializeComponents(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	h := inboxHandler{meetings: c.Meetings, instructions: cfg.Watch.Instructions, extensions: cfg.Watch.Extensions}
	path := filepath.Join(t.TempDir(), "standup.txt")
	if err := os.WriteFile(path, []byte("Alice: I will fix the login bug by Monday."), 0644); err != nil {
		t.Fatal(err)
	}
	if err := h.FileChanged(ctx, path); err != nil {
		t.Fatal(err)
	}
	m, err := c.Meetings.Get(ctx, fileid.MeetingID(path))
	if err != nil {
		t.Fatalf("meeting for %s: %v", path, err)
	}
	if m.Title != "standup" {
		t.Errorf("title = %q", m.Title)
	}

	if err := h.FileRemoved(ctx, path); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Meetings.Get(ctx, fileid.MeetingID(path)); err == nil {
		t.Error("meeting still present after removal")
	}
	if err := h.FileRemoved(ctx, path); err != nil {
		t.Errorf("second removal: %v", err)
	}
}
