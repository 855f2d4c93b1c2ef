// Package extract turns transcript files into plain text ready for summarization.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extractor extracts transcript text from files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// SupportedExtensions lists the extensions with a dedicated reader. Anything
// else is read as plain text.
var SupportedExtensions = []string{".txt", ".md", ".vtt", ".srt", ".pdf", ".docx", ".xlsx"}

// Extract reads the file at path and returns its transcript text.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, filepath.Ext(path))
}

// ExtractBytes extracts text from content based on ext, which includes the leading dot.
// Caption files lose their cue numbers and timings; speaker voice tags become
// "Speaker: " prefixes.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".xlsx":
		return extractExcel(content)
	case ".vtt", ".srt":
		text, err := extractPlain(content)
		if err != nil {
			return "", err
		}
		return extractCaptions(text), nil
	default:
		return extractPlain(content)
	}
}
