package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/gijiroku/internal/config"
)

// Open returns the configured document store.
func Open(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "sqlite":
		return NewSQLiteStorage(cfg.DatabasePath)
	case "mongo", "mongodb":
		return NewMongoStorage(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: sqlite, mongo)", cfg.Backend)
	}
}
