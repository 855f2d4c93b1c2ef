// Package models defines meetings, their inputs and search request/response types.
package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidID is returned for a meeting id that is not a UUID.
var ErrInvalidID = errors.New("invalid meeting id")

// Summary provenance values.
const (
	SourceAI        = "ai"
	SourceHeuristic = "heuristic"
)

// Meeting is a stored transcript with its summary. Embeddings are optional; a
// meeting without them is stored but not reachable by semantic search.
type Meeting struct {
	ID               string    `json:"id" bson:"_id" db:"id"`
	Title            string    `json:"title" bson:"title" db:"title"`
	TranscriptText   string    `json:"transcriptText" bson:"transcriptText" db:"transcript_text"`
	Instructions     string    `json:"instructions" bson:"instructions" db:"instructions"`
	Summary          string    `json:"summary" bson:"summary" db:"summary"`
	SummarySource    string    `json:"summarySource,omitempty" bson:"summarySource,omitempty" db:"summary_source"`
	Recipients       []string  `json:"recipients" bson:"recipients" db:"recipients"`
	TitleEmbedding   []float32 `json:"-" bson:"titleEmbedding,omitempty" db:"title_embedding"`
	SummaryEmbedding []float32 `json:"-" bson:"summaryEmbedding,omitempty" db:"summary_embedding"`
	CreatedAt        time.Time `json:"createdAt" bson:"createdAt" db:"created_at"`
	UpdatedAt        time.Time `json:"updatedAt" bson:"updatedAt" db:"updated_at"`
}

// MeetingInput is the input for summarizing and storing a new meeting.
type MeetingInput struct {
	ID           string `json:"id,omitempty"`
	Title        string `json:"title"`
	Instructions string `json:"instructions"`
	Text         string `json:"text"`
}

// MeetingUpdate carries the editable fields of a meeting. Nil fields are left unchanged.
type MeetingUpdate struct {
	Title        *string `json:"title,omitempty"`
	Summary      *string `json:"summary,omitempty"`
	Instructions *string `json:"instructions,omitempty"`
}

// Empty reports whether no editable field is set.
func (u MeetingUpdate) Empty() bool {
	return u.Title == nil && u.Summary == nil && u.Instructions == nil
}

// EmailRequest asks for a meeting summary to be mailed.
type EmailRequest struct {
	To      []string `json:"to"`
	Subject string   `json:"subject,omitempty"`
	HTML    string   `json:"html,omitempty"`
}

// ValidateID checks that id is a UUID and returns its canonical form.
func ValidateID(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return u.String(), nil
}

// NewID returns a fresh random meeting id.
func NewID() string {
	return uuid.NewString()
}
