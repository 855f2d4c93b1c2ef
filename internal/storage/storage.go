// Package storage defines the persistence interface for meetings.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/gijiroku/internal/models"
)

// ErrNotFound is returned when a meeting id has no document.
var ErrNotFound = errors.New("meeting not found")

// EmbeddingRecord is the stored vector pair of one meeting. Either vector may be nil.
type EmbeddingRecord struct {
	ID      string
	Title   []float32
	Summary []float32
}

// Storage defines meeting persistence operations.
type Storage interface {
	CreateMeeting(ctx context.Context, m *models.Meeting) error
	GetMeeting(ctx context.Context, id string) (*models.Meeting, error)
	UpdateMeeting(ctx context.Context, m *models.Meeting) error
	DeleteMeeting(ctx context.Context, id string) error
	// ListMeetings returns the newest meetings first.
	ListMeetings(ctx context.Context, limit int) ([]*models.Meeting, error)
	// GetMeetings returns meetings in the order of ids, skipping unknown ids.
	GetMeetings(ctx context.Context, ids []string) ([]*models.Meeting, error)
	// IterateEmbeddings calls fn for every meeting that has at least one embedding.
	IterateEmbeddings(ctx context.Context, fn func(EmbeddingRecord) error) error
	CountMeetings(ctx context.Context) (int64, error)
	Close() error
}

func orderByIDs(ids []string, found []*models.Meeting) []*models.Meeting {
	byID := make(map[string]*models.Meeting, len(found))
	for _, m := range found {
		byID[m.ID] = m
	}
	out := make([]*models.Meeting, 0, len(ids))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			out = append(out, m)
		}
	}
	return out
}
