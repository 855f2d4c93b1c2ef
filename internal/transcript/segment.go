package transcript

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Sentence is one sentence of a transcript. Index is its position in the
// segmented output and is the only key used to restore source order.
type Sentence struct {
	Text  string
	Index int
}

var newlinesRe = regexp.MustCompile(`\n+`)

// Segment splits text after '.', '!' or '?' followed by whitespace.
// Fragments are trimmed and empty ones dropped.
func Segment(text string) []Sentence {
	text = newlinesRe.ReplaceAllString(text, " ")
	var out []Sentence
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, Sentence{Text: s, Index: len(out)})
		}
	}

	start := 0
	for i := 0; i < len(text); {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			i++
			continue
		}
		j := i + 1
		for j < len(text) {
			r, size := utf8.DecodeRuneInString(text[j:])
			if !unicode.IsSpace(r) {
				break
			}
			j += size
		}
		if j == i+1 {
			i++
			continue
		}
		add(text[start : i+1])
		start = j
		i = j
	}
	if start < len(text) {
		add(text[start:])
	}
	return out
}

// Texts returns the sentence texts in slice order.
func Texts(sentences []Sentence) []string {
	out := make([]string, len(sentences))
	for i, s := range sentences {
		out[i] = s.Text
	}
	return out
}
