package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/gijiroku/internal/models"
)

const meetingColumns = `id, title, transcript_text, instructions, summary, summary_source,
	recipients, title_embedding, summary_embedding, created_at, updated_at`

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS meetings (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		transcript_text TEXT NOT NULL,
		instructions TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		summary_source TEXT NOT NULL DEFAULT '',
		recipients TEXT NOT NULL DEFAULT '[]',
		title_embedding BLOB,
		summary_embedding BLOB,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_meetings_created_at ON meetings(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeeting(row rowScanner) (*models.Meeting, error) {
	var m models.Meeting
	var recipients string
	var titleEmb, summaryEmb []byte
	if err := row.Scan(&m.ID, &m.Title, &m.TranscriptText, &m.Instructions, &m.Summary, &m.SummarySource,
		&recipients, &titleEmb, &summaryEmb, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	if recipients != "" {
		if err := json.Unmarshal([]byte(recipients), &m.Recipients); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recipients: %w", err)
		}
	}
	if m.Recipients == nil {
		m.Recipients = []string{}
	}
	m.TitleEmbedding = decodeEmbedding(titleEmb)
	m.SummaryEmbedding = decodeEmbedding(summaryEmb)
	return &m, nil
}

func recipientsJSON(r []string) (string, error) {
	if r == nil {
		r = []string{}
	}
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to marshal recipients: %w", err)
	}
	return string(b), nil
}

// CreateMeeting inserts a meeting and sets its timestamps.
func (s *SQLiteStorage) CreateMeeting(ctx context.Context, m *models.Meeting) error {
	recipients, err := recipientsJSON(m.Recipients)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO meetings (`+meetingColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Title, m.TranscriptText, m.Instructions, m.Summary, m.SummarySource,
		recipients, encodeEmbedding(m.TitleEmbedding), encodeEmbedding(m.SummaryEmbedding),
		m.CreatedAt, m.UpdatedAt,
	)
	return err
}

// GetMeeting returns a meeting by ID.
func (s *SQLiteStorage) GetMeeting(ctx context.Context, id string) (*models.Meeting, error) {
	m, err := scanMeeting(s.db.QueryRowContext(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateMeeting overwrites every mutable field of an existing meeting.
func (s *SQLiteStorage) UpdateMeeting(ctx context.Context, m *models.Meeting) error {
	recipients, err := recipientsJSON(m.Recipients)
	if err != nil {
		return err
	}
	m.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx,
		`UPDATE meetings SET title = ?, transcript_text = ?, instructions = ?, summary = ?,
		 summary_source = ?, recipients = ?, title_embedding = ?, summary_embedding = ?, updated_at = ?
		 WHERE id = ?`,
		m.Title, m.TranscriptText, m.Instructions, m.Summary, m.SummarySource, recipients,
		encodeEmbedding(m.TitleEmbedding), encodeEmbedding(m.SummaryEmbedding), m.UpdatedAt, m.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, m.ID)
	}
	return nil
}

// DeleteMeeting removes a meeting by ID.
func (s *SQLiteStorage) DeleteMeeting(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM meetings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// ListMeetings returns up to limit meetings, newest first.
func (s *SQLiteStorage) ListMeetings(ctx context.Context, limit int) ([]*models.Meeting, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+meetingColumns+` FROM meetings ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meetings := make([]*models.Meeting, 0)
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, m)
	}
	return meetings, rows.Err()
}

// GetMeetings returns the meetings for ids in caller order.
func (s *SQLiteStorage) GetMeetings(ctx context.Context, ids []string) ([]*models.Meeting, error) {
	if len(ids) == 0 {
		return []*models.Meeting{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var found []*models.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orderByIDs(ids, found), nil
}

// IterateEmbeddings streams stored embeddings in creation order.
func (s *SQLiteStorage) IterateEmbeddings(ctx context.Context, fn func(EmbeddingRecord) error) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title_embedding, summary_embedding FROM meetings
		 WHERE title_embedding IS NOT NULL OR summary_embedding IS NOT NULL
		 ORDER BY created_at, rowid`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var rec EmbeddingRecord
		var titleEmb, summaryEmb []byte
		if err := rows.Scan(&rec.ID, &titleEmb, &summaryEmb); err != nil {
			return err
		}
		rec.Title = decodeEmbedding(titleEmb)
		rec.Summary = decodeEmbedding(summaryEmb)
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// CountMeetings returns the total number of meetings.
func (s *SQLiteStorage) CountMeetings(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM meetings`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// encodeEmbedding packs a vector as little-endian float32; nil stays NULL.
func encodeEmbedding(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	out := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

func decodeEmbedding(b []byte) []float32 {
	if len(b) < 4 {
		return nil
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
