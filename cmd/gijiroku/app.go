package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperjump/gijiroku/internal/config"
	"github.com/hyperjump/gijiroku/internal/embedding"
	"github.com/hyperjump/gijiroku/internal/events"
	"github.com/hyperjump/gijiroku/internal/extract"
	"github.com/hyperjump/gijiroku/internal/keyword"
	"github.com/hyperjump/gijiroku/internal/llm"
	"github.com/hyperjump/gijiroku/internal/mail"
	"github.com/hyperjump/gijiroku/internal/meetings"
	"github.com/hyperjump/gijiroku/internal/search"
	"github.com/hyperjump/gijiroku/internal/storage"
	"github.com/hyperjump/gijiroku/internal/summarizer"
	"github.com/hyperjump/gijiroku/internal/vector"
)

// loadConfig resolves the config file. An explicit path must exist. Otherwise
// ~/.gijiroku/config.yaml is tried, then ./config.yaml, and finally a config built
// from defaults and the environment. Returns the path that was loaded, or "".
func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}
	var candidates []string
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".gijiroku", "config.yaml"))
	}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, "config.yaml"))
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		cfg, err := config.Load(candidate)
		if err != nil {
			return nil, "", err
		}
		return cfg, candidate, nil
	}
	return config.Default(), "", nil
}

// components holds initialized services.
type components struct {
	Storage    storage.Storage
	Embedder   embedding.Embedder
	Vectors    *vector.Registry
	Keyword    *keyword.BleveIndex
	Publisher  events.Publisher
	Summarizer *summarizer.Summarizer
	Meetings   *meetings.Service
	Engine     *search.Engine
}

// Close saves local vector indices and releases every backend.
func (c *components) Close() error {
	var errs []error
	if c.Vectors != nil {
		errs = append(errs, c.Vectors.Close())
	}
	if c.Keyword != nil {
		errs = append(errs, c.Keyword.Close())
	}
	if c.Embedder != nil {
		errs = append(errs, c.Embedder.Close())
	}
	if c.Publisher != nil {
		errs = append(errs, c.Publisher.Close())
	}
	if c.Storage != nil {
		errs = append(errs, c.Storage.Close())
	}
	return errors.Join(errs...)
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*components, error) {
	c := &components{}
	fail := func(err error) (*components, error) {
		_ = c.Close()
		return nil, err
	}

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize storage: %w", err))
	}
	c.Storage = store

	gen, err := llm.New(cfg.Summarizer)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize summarizer: %w", err))
	}
	c.Summarizer = summarizer.NewFromConfig(gen, cfg.Summarizer, summarizer.WithLogger(logger))

	embedder, err := embedding.New(ctx, cfg.Embedding, logger)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize embeddings: %w", err))
	}
	c.Embedder = embedder

	c.Vectors = vector.NewRegistry(cfg.Vector, cfg.Storage.VectorIndexPath, vector.WithRegistryLogger(logger))

	kw, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize keyword index: %w", err))
	}
	c.Keyword = kw

	publisher, err := events.New(cfg.Events, logger)
	if err != nil {
		logger.Warn("event publishing disabled", zap.String("url", cfg.Events.NATSURL), zap.Error(err))
		publisher = events.Nop{}
	}
	c.Publisher = publisher

	c.Meetings = meetings.New(store, c.Summarizer, embedder, c.Vectors,
		meetings.WithLogger(logger),
		meetings.WithKeywordIndex(kw),
		meetings.WithMailer(mail.New(cfg.Mail)),
		meetings.WithPublisher(publisher),
		meetings.WithExtractor(extract.NewExtractor()),
		meetings.WithDiskPaths(cfg.Storage.DatabasePath, cfg.Storage.BleveIndexPath, cfg.Storage.VectorIndexPath))
	c.Engine = search.NewEngine(store, embedder, c.Vectors, kw, search.WithLogger(logger))

	// The configured embedding size is only a hint; the store takes its dimension
	// from vectors that actually exist.
	if dim, err := c.Meetings.PrimeVectors(ctx); err != nil {
		if errors.Is(err, vector.ErrMissingConfig) {
			return fail(fmt.Errorf("failed to initialize vector index: %w", err))
		}
		logger.Warn("vector index not ready", zap.Int("dimensions", dim), zap.Error(err))
	}
	return c, nil
}

// inboxHandler turns inbox file events into meeting ingestion.
type inboxHandler struct {
	meetings     *meetings.Service
	instructions string
	extensions   []string
}

func (h inboxHandler) FileChanged(ctx context.Context, path string) error {
	_, err := h.meetings.Ingest(ctx, path, h.instructions, h.extensions)
	return err
}

func (h inboxHandler) FileRemoved(ctx context.Context, path string) error {
	return h.meetings.RemoveFile(ctx, path)
}
