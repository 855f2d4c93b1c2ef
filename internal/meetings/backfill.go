package meetings

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/gijiroku/internal/storage"
	"github.com/hyperjump/gijiroku/internal/vector"
)

// BackfillBatchSize is the number of vectors sent per BulkLoad call.
const BackfillBatchSize = 200

// BackfillReport counts what Backfill loaded.
type BackfillReport struct {
	Dimensions int `json:"dimensions"`
	Title      int `json:"title"`
	Summary    int `json:"summary"`
	Skipped    int `json:"skipped"`
}

var errStopIteration = errors.New("stop iteration")

// PrimeVectors opens the vector store when its dimension is known from data: a
// persisted local index, or else the first embedding stored with a meeting. With
// neither it returns 0 and the store is created by the first upsert.
func (s *Service) PrimeVectors(ctx context.Context) (int, error) {
	dim, err := s.vectors.PersistedDimension()
	if err != nil {
		return 0, err
	}
	if dim == 0 {
		err := s.storage.IterateEmbeddings(ctx, func(rec storage.EmbeddingRecord) error {
			dim = len(rec.Summary)
			if dim == 0 {
				dim = len(rec.Title)
			}
			if dim == 0 {
				return nil
			}
			return errStopIteration
		})
		if err != nil && !errors.Is(err, errStopIteration) {
			return 0, fmt.Errorf("read stored embeddings: %w", err)
		}
	}
	if dim == 0 {
		return 0, nil
	}
	if _, err := s.vectors.Get(ctx, dim); err != nil {
		return dim, err
	}
	return dim, nil
}

// Backfill rebuilds the vector indices from embeddings stored with the meetings.
// The dimension is taken from the first stored vector; vectors of any other
// dimension are skipped.
func (s *Service) Backfill(ctx context.Context) (*BackfillReport, error) {
	report := &BackfillReport{}
	var (
		store   *vector.Store
		batches = map[vector.Scope][]vector.Item{}
	)
	flush := func(scope vector.Scope) error {
		items := batches[scope]
		if len(items) == 0 {
			return nil
		}
		if err := store.BulkLoad(ctx, scope, items); err != nil {
			return err
		}
		if scope == vector.ScopeTitle {
			report.Title += len(items)
		} else {
			report.Summary += len(items)
		}
		batches[scope] = items[:0]
		return nil
	}
	add := func(scope vector.Scope, id string, vec []float32) error {
		if len(vec) == 0 {
			return nil
		}
		if len(vec) != report.Dimensions {
			report.Skipped++
			s.logger.Warn("skipping stored vector with a different dimension",
				zap.String("id", id), zap.String("scope", string(scope)),
				zap.Int("dimensions", len(vec)), zap.Int("want", report.Dimensions))
			return nil
		}
		batches[scope] = append(batches[scope], vector.Item{ID: id, Vector: vec})
		if len(batches[scope]) >= BackfillBatchSize {
			return flush(scope)
		}
		return nil
	}

	err := s.storage.IterateEmbeddings(ctx, func(rec storage.EmbeddingRecord) error {
		if store == nil {
			dim := len(rec.Summary)
			if dim == 0 {
				dim = len(rec.Title)
			}
			var err error
			if store, err = s.vectors.Get(ctx, dim); err != nil {
				return err
			}
			report.Dimensions = dim
		}
		if err := add(vector.ScopeTitle, rec.ID, rec.Title); err != nil {
			return err
		}
		return add(vector.ScopeSummary, rec.ID, rec.Summary)
	})
	if err != nil {
		return report, fmt.Errorf("backfill: %w", err)
	}
	if store == nil {
		return report, nil
	}
	for _, scope := range vector.Scopes {
		if err := flush(scope); err != nil {
			return report, fmt.Errorf("backfill: %w", err)
		}
	}
	if err := s.vectors.Save(); err != nil {
		return report, fmt.Errorf("backfill: save indices: %w", err)
	}
	s.logger.Info("backfill complete",
		zap.Int("dimensions", report.Dimensions),
		zap.Int("title", report.Title),
		zap.Int("summary", report.Summary),
		zap.Int("skipped", report.Skipped))
	return report, nil
}
