// Package cli provides output helpers for the gijiroku command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hyperjump/gijiroku/internal/meetings"
	"github.com/hyperjump/gijiroku/internal/models"
	"github.com/hyperjump/gijiroku/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" or "json"; anything else is an error.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q: use text or json", s)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d meetings in %dms (%s search, scope %s)\n", response.Total, response.QueryTime, response.Mode, response.Scope)
	if response.AutoFuzzy {
		fmt.Fprintln(w, "No exact keyword match; showing typo-tolerant results.")
	}
	fmt.Fprintln(w)
	for _, result := range response.Results {
		writeOneResult(w, result)
	}
	return nil
}

func writeOneResult(w io.Writer, result *models.SearchResult) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Score: %.4f (Keyword: %.4f, Semantic: %.4f)\n",
		result.Rank, result.Score, result.KeywordScore, result.SemanticScore)
	if result.Meeting == nil {
		fmt.Fprintln(w)
		return
	}
	fmt.Fprintf(w, "ID: %s\n", result.Meeting.ID)
	if result.Meeting.Title != "" {
		fmt.Fprintf(w, "Title: %s\n", result.Meeting.Title)
	}
	fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(result.Meeting.Summary, 200))
}

// WriteMeeting writes one meeting: its header, then the full summary.
func WriteMeeting(w io.Writer, m *models.Meeting, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, m)
	}
	fmt.Fprintf(w, "ID: %s\n", m.ID)
	if m.Title != "" {
		fmt.Fprintf(w, "Title: %s\n", m.Title)
	}
	if m.SummarySource != "" {
		fmt.Fprintf(w, "Source: %s\n", m.SummarySource)
	}
	if len(m.Recipients) > 0 {
		fmt.Fprintf(w, "Recipients: %s\n", strings.Join(m.Recipients, ", "))
	}
	fmt.Fprintf(w, "\n%s\n", m.Summary)
	return nil
}

// WriteStatus writes store and index counts.
func WriteStatus(w io.Writer, st *meetings.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Meetings:        %d\n", st.Meetings)
	backend := st.VectorBackend
	if backend == "" {
		backend = "(not created)"
	}
	fmt.Fprintf(w, "Vector backend:  %s\n", backend)
	fmt.Fprintf(w, "Dimensions:      %d\n", st.Dimensions)
	fmt.Fprintf(w, "Title vectors:   %d\n", st.TitleVectors)
	fmt.Fprintf(w, "Summary vectors: %d\n", st.SummaryVectors)
	fmt.Fprintf(w, "Keyword docs:    %d\n", st.KeywordDocs)
	fmt.Fprintf(w, "Disk usage:      %s\n", FormatBytes(st.DiskUsageBytes))
	return nil
}

// WriteBackfillReport writes the outcome of a vector backfill.
func WriteBackfillReport(w io.Writer, r *meetings.BackfillReport) {
	if r.Dimensions == 0 {
		fmt.Fprintln(w, "No stored embeddings to load.")
		return
	}
	fmt.Fprintf(w, "Loaded %d title and %d summary vectors (dimension %d).\n", r.Title, r.Summary, r.Dimensions)
	if r.Skipped > 0 {
		fmt.Fprintf(w, "Skipped %d meetings with a different dimension.\n", r.Skipped)
	}
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// PrintSearchResults prints search results to stdout in text format.
func PrintSearchResults(response *models.SearchResponse) {
	_ = WriteSearchResults(os.Stdout, response, OutputText)
}
