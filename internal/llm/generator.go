// Package llm holds the generative provider contract used by the summarizer
// and REST clients for Gemini and Ollama.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/gijiroku/internal/config"
)

var (
	// ErrNotConfigured is returned when the provider lacks credentials or was disabled.
	ErrNotConfigured = errors.New("generation provider not configured")
	// ErrEmptyResponse is returned when the provider answers without any text.
	ErrEmptyResponse = errors.New("generation provider returned no text")
)

// Generator turns a prompt into text. Implementations do not retry.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// New builds the generator selected by cfg.Provider.
func New(cfg config.SummarizerConfig) (Generator, error) {
	client := &http.Client{Timeout: cfg.Timeout}
	switch strings.ToLower(cfg.Provider) {
	case "gemini", "":
		return NewGemini(cfg.APIKey, cfg.Model, WithHTTPClient(client)), nil
	case "ollama":
		return NewOllama(cfg.OllamaURL, cfg.Model, WithHTTPClient(client)), nil
	case "none", "disabled":
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("unknown summarizer provider %q", cfg.Provider)
	}
}

// Option configures a REST client.
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

// WithBaseURL overrides the provider endpoint, mainly for tests and proxies.
func WithBaseURL(u string) Option {
	return func(o *restOptions) {
		o.baseURL = strings.TrimRight(u, "/")
	}
}

func applyOptions(defaultBase string, opts []Option) restOptions {
	o := restOptions{client: &http.Client{Timeout: 60 * time.Second}, baseURL: defaultBase}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Disabled is a generator that always reports ErrNotConfigured, so callers
// go straight to their fallback.
type Disabled struct{}

func (Disabled) Generate(context.Context, string) (string, error) { return "", ErrNotConfigured }

func (Disabled) Name() string { return "disabled" }
