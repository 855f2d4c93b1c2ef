// Package summarizer produces meeting summaries: a generative path over
// normalized, chunked transcripts with an extractive fallback whenever the
// provider cannot deliver.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hyperjump/gijiroku/internal/config"
	"github.com/hyperjump/gijiroku/internal/heuristic"
	"github.com/hyperjump/gijiroku/internal/llm"
	"github.com/hyperjump/gijiroku/internal/transcript"
)

// ErrEmptyInput is returned when the transcript or the instructions are blank.
var ErrEmptyInput = errors.New("transcript and instructions cannot be empty")

// Source tells which path produced a summary.
type Source string

const (
	SourceAI        Source = "ai"
	SourceHeuristic Source = "heuristic"
)

// Result is a finished summary and its provenance.
type Result struct {
	Text   string
	Source Source
	// Chunks is the number of transcript chunks the generative path saw (0 if it never ran).
	Chunks int
}

// Summarizer drives the generative path and the heuristic fallback.
type Summarizer struct {
	generator    llm.Generator
	maxChars     int
	maxSentences int
	concurrency  int
	callTimeout  time.Duration
	limiter      *rate.Limiter
	logger       *zap.Logger
	tracer       trace.Tracer
}

// Option configures a Summarizer.
type Option func(*Summarizer)

// WithLogger sets the logger. Default is no-op.
func WithLogger(l *zap.Logger) Option {
	return func(s *Summarizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxChars sets the chunk budget.
func WithMaxChars(n int) Option {
	return func(s *Summarizer) {
		if n > 0 {
			s.maxChars = n
		}
	}
}

// WithMaxSentences caps the extractive summary length.
func WithMaxSentences(n int) Option {
	return func(s *Summarizer) {
		if n > 0 {
			s.maxSentences = n
		}
	}
}

// WithConcurrency bounds concurrent chunk calls.
func WithConcurrency(n int) Option {
	return func(s *Summarizer) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithCallTimeout bounds each provider call. Zero means only the caller's context applies.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Summarizer) { s.callTimeout = d }
}

// WithRateLimit paces provider calls to rps per second. Zero disables pacing.
func WithRateLimit(rps float64) Option {
	return func(s *Summarizer) {
		if rps > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// New creates a Summarizer. A nil generator means the generative path is never tried.
func New(gen llm.Generator, opts ...Option) *Summarizer {
	s := &Summarizer{
		generator:    gen,
		maxChars:     transcript.DefaultMaxChars,
		maxSentences: heuristic.DefaultMaxSentences,
		concurrency:  4,
		logger:       zap.NewNop(),
		tracer:       otel.Tracer("github.com/hyperjump/gijiroku/internal/summarizer"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromConfig creates a Summarizer with limits taken from cfg.
func NewFromConfig(gen llm.Generator, cfg config.SummarizerConfig, opts ...Option) *Summarizer {
	base := []Option{
		WithMaxChars(cfg.MaxChars),
		WithMaxSentences(cfg.MaxSentences),
		WithConcurrency(cfg.Concurrency),
		WithCallTimeout(cfg.Timeout),
		WithRateLimit(cfg.RequestsPerSecond),
	}
	return New(gen, append(base, opts...)...)
}

// Summarize returns a summary of text following instructions. It fails only on
// blank input; provider failures of any kind switch to the extractive fallback.
func (s *Summarizer) Summarize(ctx context.Context, text, instructions string) (*Result, error) {
	instructions = strings.TrimSpace(instructions)
	if strings.TrimSpace(text) == "" || instructions == "" {
		return nil, ErrEmptyInput
	}

	ctx, span := s.tracer.Start(ctx, "summarizer.Summarize")
	defer span.End()

	summary, chunks, err := s.generate(ctx, text, instructions)
	span.SetAttributes(attribute.Int("chunks", chunks))
	if err == nil {
		span.SetAttributes(attribute.String("source", string(SourceAI)))
		return &Result{Text: summary, Source: SourceAI, Chunks: chunks}, nil
	}

	s.logger.Warn("generative summary failed, using extractive fallback",
		zap.String("provider", s.providerName()),
		zap.Int("chunks", chunks),
		zap.Error(err))
	span.SetAttributes(attribute.String("source", string(SourceHeuristic)))
	return &Result{
		Text:   heuristic.Summarize(text, instructions, s.maxSentences),
		Source: SourceHeuristic,
		Chunks: chunks,
	}, nil
}

func (s *Summarizer) providerName() string {
	if s.generator == nil {
		return "none"
	}
	return s.generator.Name()
}

// generate runs the generative path. Any error discards all partial output.
func (s *Summarizer) generate(ctx context.Context, text, instructions string) (string, int, error) {
	if s.generator == nil {
		return "", 0, llm.ErrNotConfigured
	}
	chunks := transcript.Chunk(transcript.Normalize(text), s.maxChars)
	if len(chunks) == 1 {
		out, err := s.call(ctx, SinglePrompt(instructions, chunks[0]))
		return out, 1, err
	}

	partials := make([]string, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			out, err := s.call(gctx, ChunkPrompt(i+1, len(chunks), chunk))
			if err != nil {
				return fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
			}
			partials[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", len(chunks), err
	}

	s.logger.Debug("chunk summaries complete", zap.Int("chunks", len(chunks)))
	out, err := s.call(ctx, SynthesisPrompt(instructions, partials))
	if err != nil {
		return "", len(chunks), fmt.Errorf("synthesis: %w", err)
	}
	return out, len(chunks), nil
}

func (s *Summarizer) call(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}
	if s.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
	}
	out, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", llm.ErrEmptyResponse
	}
	return out, nil
}
