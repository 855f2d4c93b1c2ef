package transcript

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxChars is the chunk budget used when none is configured.
const DefaultMaxChars = 12000

// Chunk splits text into sentence-aligned chunks of at most maxChars characters.
// Text that already fits, or a non-positive budget, yields a single chunk.
// A sentence longer than maxChars becomes a chunk of its own.
func Chunk(text string, maxChars int) []string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return []string{text}
	}

	var (
		chunks []string
		buf    []string
		size   int
	)
	flush := func() {
		if len(buf) > 0 {
			chunks = append(chunks, strings.Join(buf, " "))
			buf = buf[:0]
			size = 0
		}
	}
	for _, s := range Segment(text) {
		n := utf8.RuneCountInString(s.Text)
		next := n
		if len(buf) > 0 {
			next = size + 1 + n
		}
		if next > maxChars && len(buf) > 0 {
			flush()
			next = n
		}
		buf = append(buf, s.Text)
		size = next
	}
	flush()
	return chunks
}
