package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/gijiroku/internal/meetings"
	"github.com/hyperjump/gijiroku/internal/models"
	"github.com/hyperjump/gijiroku/internal/search"
	"github.com/hyperjump/gijiroku/internal/storage"
	"github.com/hyperjump/gijiroku/internal/summarizer"
	"github.com/hyperjump/gijiroku/internal/vector"
)

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidID),
		errors.Is(err, models.ErrEmptyQuery),
		errors.Is(err, models.ErrInvalidQuery),
		errors.Is(err, summarizer.ErrEmptyInput),
		errors.Is(err, vector.ErrInvalidScope),
		errors.Is(err, meetings.ErrNoRecipients):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, search.ErrEmbeddingUnavailable),
		errors.Is(err, search.ErrKeywordUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.Error(err))
	} else {
		s.logger.Debug(msg, zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"service": "gijiroku",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.meetings.Status(r.Context())
	if err != nil {
		s.fail(w, "status failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleListMeetings(w http.ResponseWriter, r *http.Request) {
	list, err := s.meetings.List(r.Context())
	if err != nil {
		s.fail(w, "list meetings failed", err)
		return
	}
	if list == nil {
		list = []*models.Meeting{}
	}
	s.respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	query := models.SearchQuery{
		Query: params.Get("q"),
		Scope: params.Get("scope"),
		Mode:  params.Get("mode"),
	}
	if v := params.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		query.Limit = limit
	}
	s.logger.Debug("search request",
		zap.String("query", query.Query),
		zap.String("scope", query.Scope),
		zap.String("mode", query.Mode))
	response, err := s.engine.Search(r.Context(), &query)
	if err != nil {
		s.fail(w, "search failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleGetMeeting(w http.ResponseWriter, r *http.Request) {
	m, err := s.meetings.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "get meeting failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, m)
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	input, err := s.readMeetingInput(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(input.Text) == "" {
		s.respondError(w, http.StatusBadRequest, "no transcript text provided")
		return
	}
	s.logger.Debug("summarize request",
		zap.String("title", input.Title),
		zap.Int("chars", len(input.Text)))
	m, err := s.meetings.Summarize(r.Context(), input)
	if err != nil {
		s.fail(w, "summarize failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, m)
}

// readMeetingInput accepts either a JSON body or a multipart form whose
// transcript comes from the text field or an uploaded file.
func (s *Server) readMeetingInput(r *http.Request) (*models.MeetingInput, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var input models.MeetingInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			return nil, errors.New("invalid request body")
		}
		input.ID = ""
		return &input, nil
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, fmt.Errorf("invalid multipart form: %w", err)
	}
	input := &models.MeetingInput{
		Title:        r.FormValue("title"),
		Instructions: r.FormValue("instructions"),
		Text:         r.FormValue("text"),
	}
	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return input, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	defer file.Close()
	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	text, err := s.extractor.ExtractBytes(content, filepath.Ext(header.Filename))
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", header.Filename, err)
	}
	input.Text = text
	if strings.TrimSpace(input.Title) == "" {
		input.Title = strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	}
	return input, nil
}

func (s *Server) handleUpdateMeeting(w http.ResponseWriter, r *http.Request) {
	var update models.MeetingUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	m, err := s.meetings.Update(r.Context(), chi.URLParam(r, "id"), &update)
	if err != nil {
		s.fail(w, "update meeting failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, m)
}

func (s *Server) handleDeleteMeeting(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete meeting request", zap.String("id", id))
	if err := s.meetings.Delete(r.Context(), id); err != nil {
		s.fail(w, "delete meeting failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEmail(w http.ResponseWriter, r *http.Request) {
	var req models.EmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	messageID, err := s.meetings.Email(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		s.fail(w, "email failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"ok": true, "messageId": messageID})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
