package embedding

import (
	"context"

	"go.uber.org/zap"
)

// RemoteCache is a shared second-level cache, typically Redis.
type RemoteCache interface {
	Get(ctx context.Context, text string) ([]float32, bool, error)
	Set(ctx context.Context, text string, vector []float32) error
	Close() error
}

// CachedEmbedder serves repeated texts from an in-process LRU and an optional
// remote cache, and only sends misses to the wrapped provider.
type CachedEmbedder struct {
	inner  Embedder
	local  *EmbeddingCache
	remote RemoteCache
	logger *zap.Logger
}

// CachedOption configures a CachedEmbedder.
type CachedOption func(*CachedEmbedder)

// WithRemoteCache adds a shared cache tier behind the LRU.
func WithRemoteCache(r RemoteCache) CachedOption {
	return func(c *CachedEmbedder) { c.remote = r }
}

// WithCacheLogger sets the logger used for remote cache failures.
func WithCacheLogger(l *zap.Logger) CachedOption {
	return func(c *CachedEmbedder) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCachedEmbedder wraps inner with an LRU of the given capacity.
func NewCachedEmbedder(inner Embedder, capacity int, opts ...CachedOption) *CachedEmbedder {
	c := &CachedEmbedder{
		inner:  inner,
		local:  NewEmbeddingCache(capacity),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Embed returns the embedding for text.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch resolves cached texts and embeds the rest in one provider call.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, t := range texts {
		if v, ok := c.lookup(ctx, t); ok {
			out[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		out[i] = vectors[j]
		c.local.Set(missTexts[j], vectors[j])
		if c.remote != nil {
			if err := c.remote.Set(ctx, missTexts[j], vectors[j]); err != nil {
				c.logger.Debug("remote embedding cache write failed", zap.Error(err))
			}
		}
	}
	return out, nil
}

func (c *CachedEmbedder) lookup(ctx context.Context, text string) ([]float32, bool) {
	if v, ok := c.local.Get(text); ok {
		return v, true
	}
	if c.remote == nil {
		return nil, false
	}
	v, ok, err := c.remote.Get(ctx, text)
	if err != nil {
		c.logger.Debug("remote embedding cache read failed", zap.Error(err))
		return nil, false
	}
	if ok {
		c.local.Set(text, v)
	}
	return v, ok
}

// Dimensions returns the wrapped provider's dimension.
func (c *CachedEmbedder) Dimensions() int { return c.inner.Dimensions() }

// Close closes the remote cache and the wrapped provider.
func (c *CachedEmbedder) Close() error {
	if c.remote != nil {
		_ = c.remote.Close()
	}
	return c.inner.Close()
}
