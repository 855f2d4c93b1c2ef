package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/gijiroku/internal/config"
	"github.com/hyperjump/gijiroku/pkg/utils"
)

func TestMockEmbedder(t *testing.T) {
	e := NewMockEmbedder(64)
	ctx := context.Background()
	a, _ := e.Embed(ctx, "quarterly budget review")
	b, _ := e.Embed(ctx, "Quarterly budget review!")
	c, _ := e.Embed(ctx, "holiday party logistics")
	if len(a) != 64 {
		t.Fatalf("len = %d", len(a))
	}
	if d := utils.Dot(a, a); math.Abs(d-1) > 1e-5 {
		t.Errorf("self dot = %v, want 1", d)
	}
	if d := utils.Dot(a, b); math.Abs(d-1) > 1e-5 {
		t.Errorf("same words should embed identically, dot = %v", d)
	}
	if utils.Dot(a, c) >= utils.Dot(a, b) {
		t.Error("unrelated text should be less similar")
	}
	if e.Dimensions() != 64 {
		t.Errorf("Dimensions = %d", e.Dimensions())
	}
}

func TestGeminiEmbedder_EmbedBatch(t *testing.T) {
	var got geminiBatchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/text-embedding-004:batchEmbedContents" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "secret" {
			t.Errorf("key = %s", r.URL.Query().Get("key"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"embeddings":[{"values":[1,0]},{"values":[0,1]}]}`))
	}))
	defer srv.Close()

	e := NewGeminiEmbedder("secret", "", 2, WithBaseURL(srv.URL))
	vecs, err := e.EmbedBatch(context.Background(), []string{"title", ""})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 2 || vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Errorf("vectors = %v", vecs)
	}
	if len(got.Requests) != 2 || got.Requests[0].Model != "models/text-embedding-004" {
		t.Fatalf("request = %+v", got)
	}
	if got.Requests[1].Content.Parts[0].Text != " " {
		t.Errorf("blank text should be sent as a space, got %q", got.Requests[1].Content.Parts[0].Text)
	}
}

func TestGeminiEmbedder_errors(t *testing.T) {
	if _, err := NewGeminiEmbedder("", "", 0).Embed(context.Background(), "x"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("missing key err = %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[{"values":[1]}]}`))
	}))
	defer srv.Close()
	_, err := NewGeminiEmbedder("k", "", 1, WithBaseURL(srv.URL)).EmbedBatch(context.Background(), []string{"a", "b"})
	if err == nil {
		t.Error("expected count mismatch error")
	}
}

func TestOllamaEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"embedding":[0.5,0.25]}`))
	}))
	defer srv.Close()
	vecs, err := NewOllamaEmbedder(srv.URL, "", 2).EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 2 || vecs[1][0] != 0.5 {
		t.Errorf("vectors = %v", vecs)
	}
}

// countingEmbedder records how many texts reach the provider.
type countingEmbedder struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (c *countingEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	c.calls = append(c.calls, append([]string(nil), texts...))
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func (c *countingEmbedder) Dimensions() int { return 2 }
func (c *countingEmbedder) Close() error    { return nil }

type mapCache struct {
	m map[string][]float32
}

func (m *mapCache) Get(_ context.Context, text string) ([]float32, bool, error) {
	v, ok := m.m[text]
	return v, ok, nil
}

func (m *mapCache) Set(_ context.Context, text string, v []float32) error {
	m.m[text] = v
	return nil
}

func (m *mapCache) Close() error { return nil }

func TestCachedEmbedder(t *testing.T) {
	inner := &countingEmbedder{}
	remote := &mapCache{m: map[string][]float32{"remote": {9, 9}}}
	c := NewCachedEmbedder(inner, 10, WithRemoteCache(remote))
	ctx := context.Background()

	out, err := c.EmbedBatch(ctx, []string{"aa", "remote", "bbb"})
	if err != nil {
		t.Fatal(err)
	}
	if out[0][0] != 2 || out[1][0] != 9 || out[2][0] != 3 {
		t.Errorf("out = %v", out)
	}
	if len(inner.calls) != 1 || len(inner.calls[0]) != 2 {
		t.Fatalf("provider calls = %v", inner.calls)
	}
	if _, ok := remote.m["aa"]; !ok {
		t.Error("miss should be written to remote cache")
	}

	if _, err := c.Embed(ctx, "bbb"); err != nil {
		t.Fatal(err)
	}
	if len(inner.calls) != 1 {
		t.Errorf("cached text should not reach provider, calls = %v", inner.calls)
	}
}

func TestCachedEmbedder_propagatesErrors(t *testing.T) {
	c := NewCachedEmbedder(&countingEmbedder{err: ErrNotConfigured}, 10)
	if _, err := c.Embed(context.Background(), "x"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v", err)
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	e, err := New(ctx, config.EmbeddingConfig{Provider: "mock", Dimensions: 16, CacheSize: 10}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if e.Dimensions() != 16 {
		t.Errorf("Dimensions = %d", e.Dimensions())
	}
	d, err := New(ctx, config.EmbeddingConfig{Provider: "none", Dimensions: 8}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.Embed(ctx, "x"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("disabled err = %v", err)
	}
	if _, err := New(ctx, config.EmbeddingConfig{Provider: "word2vec"}, nil); err == nil {
		t.Error("expected error for unknown provider")
	}

	// Without a loadable model the onnx provider falls back to the mock embedder.
	o, err := New(ctx, config.EmbeddingConfig{Provider: "onnx", ModelPath: t.TempDir() + "/missing.onnx", Dimensions: 12}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer o.Close()
	v, err := o.Embed(ctx, "standup notes")
	if err != nil || len(v) != 12 {
		t.Errorf("onnx fallback: len %d, err %v", len(v), err)
	}
}

func TestRedisCache(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	ctx := context.Background()
	r, err := NewRedisCache(ctx, url, "test:"+t.Name(), time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if err := r.Set(ctx, "hello", []float32{0.25, -1}); err != nil {
		t.Fatal(err)
	}
	v, ok, err := r.Get(ctx, "hello")
	if err != nil || !ok || len(v) != 2 || v[0] != 0.25 || v[1] != -1 {
		t.Errorf("Get = %v %v %v", v, ok, err)
	}
	if _, ok, _ := r.Get(ctx, "missing"); ok {
		t.Error("missing key should miss")
	}
}

func TestVectorCodec(t *testing.T) {
	in := []float32{1.5, -2, 0}
	out, err := decodeVector(encodeVector(in))
	if err != nil {
		t.Fatal(err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("decode = %v", out)
		}
	}
	if _, err := decodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated blob")
	}
}
