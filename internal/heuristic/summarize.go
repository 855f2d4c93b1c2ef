package heuristic

import (
	"regexp"
	"sort"
	"strings"

	"github.com/hyperjump/gijiroku/internal/transcript"
)

// DefaultMaxSentences caps an extractive summary.
const DefaultMaxSentences = 6

var bulletRequestRe = regexp.MustCompile(`(?i)bullet|point|list`)

// Select ranks sentences by score (stable, so earlier sentences win ties),
// keeps min(maxSentences, max(3, 30% of the input)) of them and returns the
// kept sentences in source order.
func Select(sentences []transcript.Sentence, scores []float64, maxSentences int) []transcript.Sentence {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	order := make([]int, len(sentences))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	take := len(sentences) * 3 / 10
	if take < 3 {
		take = 3
	}
	if take > maxSentences {
		take = maxSentences
	}
	if take > len(order) {
		take = len(order)
	}

	selected := make([]transcript.Sentence, 0, take)
	for _, i := range order[:take] {
		selected = append(selected, sentences[i])
	}
	sort.Slice(selected, func(a, b int) bool {
		return selected[a].Index < selected[b].Index
	})
	return selected
}

// WantsBullets reports whether instructions ask for a bulleted list.
func WantsBullets(instructions string) bool {
	return bulletRequestRe.MatchString(instructions)
}

// Format joins sentences as "• " lines when bullets is set, otherwise as prose.
func Format(sentences []transcript.Sentence, bullets bool) string {
	texts := transcript.Texts(sentences)
	if !bullets {
		return strings.Join(texts, " ")
	}
	for i, t := range texts {
		texts[i] = "• " + t
	}
	return strings.Join(texts, "\n")
}

// Summarize produces an extractive summary of text guided by instructions.
// It returns "" when text has no sentences.
func Summarize(text, instructions string, maxSentences int) string {
	sentences := transcript.Segment(text)
	if len(sentences) == 0 {
		return ""
	}
	filtered := Filter(sentences, instructions)
	selected := Select(filtered, Score(filtered), maxSentences)
	return Format(selected, WantsBullets(instructions))
}
