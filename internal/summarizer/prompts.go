package summarizer

import (
	"fmt"
	"strings"
)

const chunkInstructions = "You are summarizing a long meeting transcript chunk. " +
	"Return concise markdown sections: Key Points, Decisions, Action Items with owners & deadlines if any."

const synthesisInstructions = "You are given partial summaries of chunks from a long transcript. " +
	"Synthesize a single, coherent, non-redundant markdown summary with these sections: " +
	"- Agenda (one line)\n- Key Discussion Points\n- Decisions\n- Action Items (with owners & deadlines)\n- Next Steps."

// SinglePrompt is the prompt for a transcript that fits in one chunk.
func SinglePrompt(instructions, chunk string) string {
	return fmt.Sprintf("%s\n\n--- TRANSCRIPT ---\n%s", instructions, chunk)
}

// ChunkPrompt is the prompt for chunk i (1-based) of n.
func ChunkPrompt(i, n int, chunk string) string {
	return fmt.Sprintf("%s\n\nCHUNK %d/%d:\n%s", chunkInstructions, i, n, chunk)
}

// SynthesisPrompt merges partial summaries, which must already be in chunk order.
func SynthesisPrompt(instructions string, partials []string) string {
	return fmt.Sprintf("%s\n\n%s\n\nPARTIAL SUMMARIES:\n%s", instructions, synthesisInstructions, strings.Join(partials, "\n\n"))
}
