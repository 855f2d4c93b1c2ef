package transcript

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"bracketed time", "[10:15] Kickoff starts", "Kickoff starts"},
		{"bracketed time with meridiem", "[1:02:03 pm] Intro", "Intro"},
		{"parenthesized time", "Budget review (12:30) done", "Budget review done"},
		{"bare time", "Call at 14:05:10 sharp", "Call at sharp"},
		{"date stamp", "Notes from 03/14/2024 meeting", "Notes from meeting"},
		{"speaker labels", "Alice: hello there\nBob Smith: hi", "hello there hi"},
		{"fillers", "So um we uhh need to, er, ship", "So we need to, , ship"},
		{"bullets", "agenda\n* one\n• two\n  - three", "agenda - one - two - three"},
		{"whitespace", "  a \t\n\n b  ", "a b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_keepsMidLineLabels(t *testing.T) {
	got := Normalize("Alice: We agreed to ship by Friday. Bob: I will send the report.")
	want := "We agreed to ship by Friday. Bob: I will send the report."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSegment(t *testing.T) {
	got := Segment("First one. Second?  Third!\n\nFourth without end")
	want := []Sentence{
		{Text: "First one.", Index: 0},
		{Text: "Second?", Index: 1},
		{Text: "Third!", Index: 2},
		{Text: "Fourth without end", Index: 3},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Segment = %#v, want %#v", got, want)
	}
}

func TestSegment_noSplitWithoutWhitespace(t *testing.T) {
	got := Texts(Segment("Version 1.2 shipped. See example.com for details."))
	want := []string{"Version 1.2 shipped.", "See example.com for details."}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSegment_empty(t *testing.T) {
	if got := Segment("   \n "); len(got) != 0 {
		t.Errorf("expected no sentences, got %v", got)
	}
}

func TestChunk_singleWhenFits(t *testing.T) {
	text := "Short text. Fits."
	got := Chunk(text, 100)
	if len(got) != 1 || got[0] != text {
		t.Errorf("Chunk = %q", got)
	}
}

func TestChunk_bound(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("This sentence number ")
		b.WriteString(strings.Repeat("x", i%17))
		b.WriteString(" is here. ")
	}
	text := strings.TrimSpace(b.String())
	for _, max := range []int{40, 80, 250, 1000} {
		chunks := Chunk(text, max)
		if len(chunks) < 2 {
			t.Fatalf("max=%d: expected several chunks, got %d", max, len(chunks))
		}
		for i, c := range chunks {
			if utf8.RuneCountInString(c) > max && len(Segment(c)) > 1 {
				t.Errorf("max=%d: chunk %d has %d chars", max, i, utf8.RuneCountInString(c))
			}
		}
		if strings.Join(chunks, " ") != strings.Join(Texts(Segment(text)), " ") {
			t.Errorf("max=%d: chunks do not partition the text in order", max)
		}
	}
}

func TestChunk_oversizedSentence(t *testing.T) {
	long := strings.Repeat("word ", 30) + "end."
	text := "Tiny. " + long + " Tail."
	got := Chunk(text, 20)
	want := []string{"Tiny.", long, "Tail."}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Chunk = %q, want %q", got, want)
	}
}
