// Package heuristic implements the extractive fallback summarizer: an
// instruction-driven sentence filter, a term-frequency salience scorer and
// the selection policy that joins the winners back in source order.
package heuristic

import (
	"regexp"

	"github.com/hyperjump/gijiroku/internal/transcript"
)

// Category is a kind of content an instruction can ask for.
type Category string

const (
	Deadlines Category = "deadlines"
	Actions   Category = "actions"
	Decisions Category = "decisions"
	Risks     Category = "risks"
	Owners    Category = "owners"
)

// Categories lists every category in detection order.
var Categories = []Category{Deadlines, Actions, Decisions, Risks, Owners}

// requestPatterns detect a category in the instruction text.
var requestPatterns = map[Category]*regexp.Regexp{
	Deadlines: regexp.MustCompile(`(?i)deadline|due|by\s+\d{1,2}/(?:\d{1,2}|\d{4})|eod|eow`),
	Actions:   regexp.MustCompile(`(?i)action|todo|follow[- ]?up|task|next step`),
	Decisions: regexp.MustCompile(`(?i)decision|agreed|conclude|finalize`),
	Risks:     regexp.MustCompile(`(?i)risk|blocker|issue|concern`),
	Owners:    regexp.MustCompile(`(?i)owner|assign|responsible|who`),
}

// sentencePatterns decide whether a sentence carries a category.
// The owner matcher looks for @mentions, explicit assignment wording, or a
// capitalized name that is not the first word of the sentence.
var sentencePatterns = map[Category]*regexp.Regexp{
	Deadlines: regexp.MustCompile(`(?i)deadline|due|by\s+\w+\s*\d{1,2}|\b\d{1,2}/\d{1,2}\b|eod|eow|tomorrow|next week`),
	Actions:   regexp.MustCompile(`(?i)\b(?:we|i|they)\s+(?:will|need to|must|should)|action|todo|follow[- ]?up|task|next step`),
	Decisions: regexp.MustCompile(`(?i)decided|agreed|approved|concluded|finalized`),
	Risks:     regexp.MustCompile(`(?i)risk|blocker|issue|concern|problem`),
	Owners:    regexp.MustCompile(`(?i:assigned to|owner|responsible)|@\w+|\S\s+[A-Z][a-z]+\b`),
}

// DetectCategories returns the categories requested by instructions, in
// Categories order. Empty instructions request nothing.
func DetectCategories(instructions string) []Category {
	var out []Category
	for _, c := range Categories {
		if requestPatterns[c].MatchString(instructions) {
			out = append(out, c)
		}
	}
	return out
}

// MatchesAny reports whether text matches at least one of cats.
func MatchesAny(text string, cats []Category) bool {
	for _, c := range cats {
		if sentencePatterns[c].MatchString(text) {
			return true
		}
	}
	return false
}

// Filter keeps the sentences matching any category requested by instructions.
// Without requested categories it returns the input unchanged, and it never
// returns an empty set for a non-empty input.
func Filter(sentences []transcript.Sentence, instructions string) []transcript.Sentence {
	cats := DetectCategories(instructions)
	if len(cats) == 0 {
		return sentences
	}
	seen := make(map[int]struct{}, len(sentences))
	var out []transcript.Sentence
	for _, s := range sentences {
		if _, dup := seen[s.Index]; dup {
			continue
		}
		if MatchesAny(s.Text, cats) {
			seen[s.Index] = struct{}{}
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return sentences
	}
	return out
}
