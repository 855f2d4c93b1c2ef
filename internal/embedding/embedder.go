// Package embedding turns meeting titles and summaries into vectors. It holds
// the provider contract, the Gemini, Ollama, ONNX and mock providers, and an
// LRU cache with an optional Redis tier in front of them.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/gijiroku/internal/config"
)

// ErrNotConfigured is returned by providers that lack credentials or were disabled.
var ErrNotConfigured = errors.New("embedding provider not configured")

// Embedder produces vector embeddings for text.
// EmbedBatch returns one vector per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// New builds the provider selected by cfg.Provider, wrapped in a CachedEmbedder.
// When the ONNX model cannot be loaded it falls back to the mock embedder so the
// service still starts; other providers fail lazily on first call.
func New(ctx context.Context, cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := &http.Client{Timeout: cfg.Timeout}

	var inner Embedder
	switch strings.ToLower(cfg.Provider) {
	case "gemini", "":
		inner = NewGeminiEmbedder(cfg.APIKey, cfg.Model, cfg.Dimensions, WithHTTPClient(client))
	case "ollama":
		inner = NewOllamaEmbedder(cfg.OllamaURL, cfg.Model, cfg.Dimensions, WithHTTPClient(client))
	case "onnx":
		onnx, err := NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
		if err != nil {
			logger.Warn("ONNX embedder unavailable, using mock embedder", zap.Error(err))
			inner = NewMockEmbedder(cfg.Dimensions)
		} else {
			inner = onnx
		}
	case "mock":
		inner = NewMockEmbedder(cfg.Dimensions)
	case "none", "disabled":
		inner = Disabled{dimensions: cfg.Dimensions}
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	opts := []CachedOption{WithCacheLogger(logger)}
	if cfg.RedisURL != "" {
		remote, err := NewRedisCache(ctx, cfg.RedisURL, cfg.Provider+":"+cfg.Model, cfg.RedisTTL)
		if err != nil {
			logger.Warn("redis embedding cache unavailable", zap.Error(err))
		} else {
			opts = append(opts, WithRemoteCache(remote))
		}
	}
	return NewCachedEmbedder(inner, cfg.CacheSize, opts...), nil
}

// Disabled is an embedder that always reports ErrNotConfigured.
type Disabled struct {
	dimensions int
}

func (Disabled) Embed(context.Context, string) ([]float32, error) { return nil, ErrNotConfigured }

func (Disabled) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, ErrNotConfigured
}

func (d Disabled) Dimensions() int { return d.dimensions }

func (Disabled) Close() error { return nil }

// blank providers reject empty input, so blank texts are sent as a single space.
func providerText(s string) string {
	if strings.TrimSpace(s) == "" {
		return " "
	}
	return s
}

// Option configures a REST embedder.
type Option func(*restOptions)

type restOptions struct {
	client  *http.Client
	baseURL string
}

// WithHTTPClient sets the HTTP client used for provider calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *restOptions) {
		if c != nil {
			o.client = c
		}
	}
}

// WithBaseURL overrides the provider endpoint.
func WithBaseURL(u string) Option {
	return func(o *restOptions) { o.baseURL = strings.TrimRight(u, "/") }
}

func applyOptions(base string, opts []Option) restOptions {
	o := restOptions{client: http.DefaultClient, baseURL: base}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
