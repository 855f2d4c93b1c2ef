// Package meetings implements the meeting lifecycle: summarize and store a
// transcript, keep its title and summary vectors indexed, update, delete and
// email it.
package meetings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/gijiroku/internal/embedding"
	"github.com/hyperjump/gijiroku/internal/events"
	"github.com/hyperjump/gijiroku/internal/extract"
	"github.com/hyperjump/gijiroku/internal/keyword"
	"github.com/hyperjump/gijiroku/internal/mail"
	"github.com/hyperjump/gijiroku/internal/models"
	"github.com/hyperjump/gijiroku/internal/storage"
	"github.com/hyperjump/gijiroku/internal/summarizer"
	"github.com/hyperjump/gijiroku/internal/vector"
)

// ListLimit caps List.
const ListLimit = 100

const defaultSubject = "Meeting Summary"

// ErrNoRecipients is returned by Email without recipients.
var ErrNoRecipients = errors.New("recipients required")

// Service coordinates storage, summarization, embeddings and the indices.
type Service struct {
	storage    storage.Storage
	summarizer *summarizer.Summarizer
	embedder   embedding.Embedder
	vectors    *vector.Registry
	keyword    keyword.Index
	mailer     mail.Sender
	publisher  events.Publisher
	extractor  *extract.Extractor
	diskPaths  []string
	logger     *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithKeywordIndex keeps a full-text index of titles and summaries in sync.
func WithKeywordIndex(idx keyword.Index) Option {
	return func(s *Service) { s.keyword = idx }
}

// WithMailer sets the mail transport. Default is mail.Disabled.
func WithMailer(m mail.Sender) Option {
	return func(s *Service) {
		if m != nil {
			s.mailer = m
		}
	}
}

// WithPublisher sets the event publisher. Default is events.Nop.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithExtractor sets the transcript file reader used by Ingest.
func WithExtractor(e *extract.Extractor) Option {
	return func(s *Service) {
		if e != nil {
			s.extractor = e
		}
	}
}

// WithDiskPaths names the files and directories Status reports disk usage for.
func WithDiskPaths(paths ...string) Option {
	return func(s *Service) { s.diskPaths = append(s.diskPaths, paths...) }
}

// New creates a Service.
func New(
	store storage.Storage,
	sum *summarizer.Summarizer,
	embedder embedding.Embedder,
	vectors *vector.Registry,
	opts ...Option,
) *Service {
	s := &Service{
		storage:    store,
		summarizer: sum,
		embedder:   embedder,
		vectors:    vectors,
		mailer:     mail.Disabled{},
		publisher:  events.Nop{},
		extractor:  extract.NewExtractor(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summarize summarizes in.Text following in.Instructions and stores the result.
// An empty in.ID creates a new meeting; an existing id is overwritten while its
// recipients and creation time are kept. Embeddings are best-effort: without a
// provider the meeting is stored unsearchable.
func (s *Service) Summarize(ctx context.Context, in *models.MeetingInput) (*models.Meeting, error) {
	id := in.ID
	if id != "" {
		var err error
		if id, err = models.ValidateID(id); err != nil {
			return nil, err
		}
	}
	res, err := s.summarizer.Summarize(ctx, in.Text, in.Instructions)
	if err != nil {
		return nil, err
	}

	m := &models.Meeting{
		ID:             id,
		Title:          strings.TrimSpace(in.Title),
		TranscriptText: in.Text,
		Instructions:   strings.TrimSpace(in.Instructions),
		Summary:        res.Text,
		SummarySource:  string(res.Source),
		Recipients:     []string{},
	}
	s.embed(ctx, m)

	var existing *models.Meeting
	if m.ID != "" {
		existing, err = s.storage.GetMeeting(ctx, m.ID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("load meeting: %w", err)
		}
	} else {
		m.ID = models.NewID()
	}

	eventType := events.MeetingCreated
	if existing != nil {
		m.Recipients = existing.Recipients
		m.CreatedAt = existing.CreatedAt
		if err := s.storage.UpdateMeeting(ctx, m); err != nil {
			return nil, fmt.Errorf("failed to store meeting: %w", err)
		}
		eventType = events.MeetingUpdated
	} else if err := s.storage.CreateMeeting(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to store meeting: %w", err)
	}

	s.index(ctx, m, true, true)
	s.publish(ctx, eventType, m.ID)
	s.logger.Debug("meeting summarized",
		zap.String("id", m.ID),
		zap.String("source", m.SummarySource),
		zap.Int("chunks", res.Chunks))
	return m, nil
}

// Get returns one meeting. Invalid ids fail with models.ErrInvalidID.
func (s *Service) Get(ctx context.Context, id string) (*models.Meeting, error) {
	id, err := models.ValidateID(id)
	if err != nil {
		return nil, err
	}
	return s.storage.GetMeeting(ctx, id)
}

// List returns the newest meetings first, at most ListLimit.
func (s *Service) List(ctx context.Context) ([]*models.Meeting, error) {
	return s.storage.ListMeetings(ctx, ListLimit)
}

// Update applies the allowed fields of u. No field set returns the meeting
// unchanged. A title or summary change re-embeds both texts; if that fails the
// previous vectors are kept.
func (s *Service) Update(ctx context.Context, id string, u *models.MeetingUpdate) (*models.Meeting, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil || u.Empty() {
		return m, nil
	}
	textChanged := false
	if u.Title != nil {
		m.Title = *u.Title
		textChanged = true
	}
	if u.Summary != nil {
		m.Summary = *u.Summary
		textChanged = true
	}
	if u.Instructions != nil {
		m.Instructions = *u.Instructions
	}
	reembedded := false
	if textChanged {
		reembedded = s.embed(ctx, m)
	}
	if err := s.storage.UpdateMeeting(ctx, m); err != nil {
		return nil, err
	}
	s.index(ctx, m, reembedded, textChanged)
	s.publish(ctx, events.MeetingUpdated, m.ID)
	return m, nil
}

// Delete removes the meeting and its vectors in both scopes.
func (s *Service) Delete(ctx context.Context, id string) error {
	id, err := models.ValidateID(id)
	if err != nil {
		return err
	}
	if err := s.storage.DeleteMeeting(ctx, id); err != nil {
		return err
	}
	if store := s.vectors.Current(); store != nil {
		if err := store.Delete(ctx, id); err != nil {
			s.logger.Warn("failed to delete meeting vectors", zap.String("id", id), zap.Error(err))
		}
	}
	if s.keyword != nil {
		if err := s.keyword.Delete(ctx, id); err != nil {
			s.logger.Warn("failed to delete meeting from keyword index", zap.String("id", id), zap.Error(err))
		}
	}
	s.publish(ctx, events.MeetingDeleted, id)
	return nil
}

// Email sends the meeting summary and records the recipients. The subject
// defaults to the title, then "Meeting Summary"; the body defaults to the
// rendered summary. Returns the message id.
func (s *Service) Email(ctx context.Context, id string, req *models.EmailRequest) (string, error) {
	if req == nil || len(req.To) == 0 {
		return "", ErrNoRecipients
	}
	m, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = strings.TrimSpace(m.Title)
	}
	if subject == "" {
		subject = defaultSubject
	}
	html := req.HTML
	if strings.TrimSpace(html) == "" {
		if html, err = mail.RenderSummaryHTML(subject, m.Summary); err != nil {
			return "", err
		}
	}

	messageID, err := s.mailer.Send(ctx, mail.Message{To: req.To, Subject: subject, Text: m.Summary, HTML: html})
	if err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	m.Recipients = mergeRecipients(m.Recipients, req.To)
	if err := s.storage.UpdateMeeting(ctx, m); err != nil {
		s.logger.Warn("email sent but recipients not saved", zap.String("id", m.ID), zap.Error(err))
	}
	s.publish(ctx, events.MeetingEmailed, m.ID)
	return messageID, nil
}

// mergeRecipients returns the sorted union of both lists.
func mergeRecipients(current, added []string) []string {
	set := make(map[string]struct{}, len(current)+len(added))
	for _, r := range current {
		set[r] = struct{}{}
	}
	for _, r := range added {
		if r = strings.TrimSpace(r); r != "" {
			set[r] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// embed computes title and summary vectors into m. It reports whether m got new vectors.
func (s *Service) embed(ctx context.Context, m *models.Meeting) bool {
	if s.embedder == nil {
		return false
	}
	vecs, err := s.embedder.EmbedBatch(ctx, []string{m.Title, m.Summary})
	if err != nil || len(vecs) != 2 {
		s.logger.Warn("embeddings unavailable, meeting will not be searchable",
			zap.String("title", m.Title), zap.Error(err))
		return false
	}
	m.TitleEmbedding, m.SummaryEmbedding = vecs[0], vecs[1]
	return true
}

// index upserts the meeting vectors and keyword document. Failures are logged;
// the stored meeting stays valid without them.
func (s *Service) index(ctx context.Context, m *models.Meeting, vectors, text bool) {
	if vectors && (len(m.TitleEmbedding) > 0 || len(m.SummaryEmbedding) > 0) {
		if err := s.upsertVectors(ctx, m); err != nil {
			s.logger.Warn("failed to index meeting vectors", zap.String("id", m.ID), zap.Error(err))
		}
	}
	if text && s.keyword != nil {
		if err := s.keyword.Index(ctx, m); err != nil {
			s.logger.Warn("failed to index meeting keywords", zap.String("id", m.ID), zap.Error(err))
		}
	}
}

func (s *Service) upsertVectors(ctx context.Context, m *models.Meeting) error {
	dim := len(m.SummaryEmbedding)
	if dim == 0 {
		dim = len(m.TitleEmbedding)
	}
	store, err := s.vectors.Get(ctx, dim)
	if err != nil {
		return err
	}
	var errs []error
	if len(m.TitleEmbedding) > 0 {
		errs = append(errs, store.Upsert(ctx, vector.ScopeTitle, m.ID, m.TitleEmbedding))
	}
	if len(m.SummaryEmbedding) > 0 {
		errs = append(errs, store.Upsert(ctx, vector.ScopeSummary, m.ID, m.SummaryEmbedding))
	}
	return errors.Join(errs...)
}

func (s *Service) publish(ctx context.Context, eventType, id string) {
	err := s.publisher.Publish(ctx, events.Event{Type: eventType, MeetingID: id, At: time.Now().UTC()})
	if err != nil {
		s.logger.Warn("failed to publish event", zap.String("type", eventType), zap.String("id", id), zap.Error(err))
	}
}

// Close saves local vector indices.
func (s *Service) Close() error {
	return s.vectors.Save()
}
