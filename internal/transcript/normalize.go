// Package transcript turns raw meeting transcripts into clean text, ordered
// sentences and sentence-aligned chunks.
package transcript

import (
	"regexp"
	"strings"
)

var (
	bracketedTimeRe = regexp.MustCompile(`(?i)\[(?:\d{1,2}:)?\d{1,2}:\d{2}\s*(?:AM|PM)?\]`)
	parenTimeRe     = regexp.MustCompile(`\((?:\d{1,2}:)?\d{1,2}:\d{2}\)`)
	bareTimeRe      = regexp.MustCompile(`\b\d{1,2}:\d{2}(?::\d{2})?\b`)
	dateRe          = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`)
	speakerLabelRe  = regexp.MustCompile(`(?m)^[A-Z][A-Za-z0-9_\- ]{1,30}:\s*`)
	fillerRe        = regexp.MustCompile(`(?i)\b(?:um+|uh+|er+|ah+)\b`)
	bulletRe        = regexp.MustCompile(`(?m)^\s*[-•*]\s*`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
)

// Normalize strips clock times, date stamps, leading speaker labels and filler
// words, rewrites bullet markers to "- " and collapses whitespace.
func Normalize(raw string) string {
	s := bracketedTimeRe.ReplaceAllString(raw, " ")
	s = parenTimeRe.ReplaceAllString(s, " ")
	s = bareTimeRe.ReplaceAllString(s, " ")
	s = dateRe.ReplaceAllString(s, " ")
	s = speakerLabelRe.ReplaceAllString(s, "")
	s = fillerRe.ReplaceAllString(s, " ")
	s = bulletRe.ReplaceAllString(s, "- ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
