package meetings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/gijiroku/internal/fileid"
	"github.com/hyperjump/gijiroku/internal/models"
	"github.com/hyperjump/gijiroku/internal/storage"
	"github.com/hyperjump/gijiroku/pkg/utils"
)

// ExtensionAllowed reports whether ext (with or without the dot) is in allowed,
// case-insensitively. An empty list allows everything.
func ExtensionAllowed(ext string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	norm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == norm {
			return true
		}
	}
	return false
}

// Ingest summarizes the transcript file at path into the meeting derived from its
// path. A file whose text and instructions match the stored meeting is skipped,
// so re-saving an unchanged file costs no provider calls. It reports whether a
// summary was produced.
func (s *Service) Ingest(ctx context.Context, path, instructions string, allowedExts []string) (bool, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("absolute path: %w", err)
	}
	if !ExtensionAllowed(filepath.Ext(absPath), allowedExts) {
		return false, fmt.Errorf("extension %q not in allowed list", filepath.Ext(absPath))
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return false, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return false, fmt.Errorf("not a regular file: %s", absPath)
	}
	text, err := s.extractor.Extract(absPath)
	if err != nil {
		return false, fmt.Errorf("extract transcript: %w", err)
	}

	id := fileid.MeetingID(absPath)
	if existing, err := s.storage.GetMeeting(ctx, id); err == nil &&
		existing.TranscriptText == text && existing.Instructions == strings.TrimSpace(instructions) {
		// Re-index text in case the keyword index was opened empty.
		s.index(ctx, existing, false, true)
		s.logger.Debug("skipping unchanged transcript", zap.String("path", absPath))
		return false, nil
	}

	m, err := s.Summarize(ctx, &models.MeetingInput{
		ID:           id,
		Title:        utils.TitleFromFilename(absPath),
		Instructions: instructions,
		Text:         text,
	})
	if err != nil {
		return false, err
	}
	s.logger.Info("transcript summarized",
		zap.String("path", absPath),
		zap.String("id", m.ID),
		zap.String("source", m.SummarySource))
	return true, nil
}

// IngestDirectory walks dir recursively and ingests every regular file with an
// allowed extension. It returns the number of files summarized and the first error.
func (s *Service) IngestDirectory(ctx context.Context, dir, instructions string, allowedExts []string) (int, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}
	n := 0
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !ExtensionAllowed(filepath.Ext(path), allowedExts) {
			return nil
		}
		// Resolve symlinks so only regular files are read.
		if fi, statErr := os.Stat(path); statErr != nil || !fi.Mode().IsRegular() {
			return nil
		}
		done, err := s.Ingest(ctx, path, instructions, allowedExts)
		if err != nil {
			return err
		}
		if done {
			n++
		}
		return nil
	})
	return n, err
}

// RemoveFile deletes the meeting derived from path. A path never ingested is not an error.
func (s *Service) RemoveFile(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	err = s.Delete(ctx, fileid.MeetingID(absPath))
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}
