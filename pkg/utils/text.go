// Package utils provides shared helpers for logging, vector math and text.
package utils

import (
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Truncate returns s cut to at most maxLen runes, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	return string(r[:maxLen]) + "..."
}

// TitleFromFilename derives a human title from a transcript file path:
// "2024-05-01_weekly-sync.txt" becomes "2024-05-01 weekly sync".
func TitleFromFilename(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	// keep ISO dates readable
	fields := strings.Fields(base)
	if len(fields) >= 3 && isDigits(fields[0]) && len(fields[0]) == 4 && isDigits(fields[1]) && isDigits(fields[2]) {
		date := fields[0] + "-" + fields[1] + "-" + fields[2]
		fields = append([]string{date}, fields[3:]...)
	}
	return strings.Join(fields, " ")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
