package embedding

import (
	"reflect"
	"testing"
)

func TestSimpleTokenizer_Tokenize(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, types := tok.Tokenize("Hello, world", 10)
	if len(ids) != 10 || len(attn) != 10 || len(types) != 10 {
		t.Fatalf("lengths: %d %d %d", len(ids), len(attn), len(types))
	}
	if ids[0] != 101 {
		t.Errorf("expected CLS 101, got %d", ids[0])
	}
	if ids[3] != 102 {
		t.Errorf("expected SEP after two words, got %v", ids)
	}
	if attn[3] != 1 || attn[4] != 0 {
		t.Errorf("attention mask = %v", attn)
	}
}

func TestSimpleTokenizer_truncates(t *testing.T) {
	ids, _, _ := (&SimpleTokenizer{}).Tokenize("a b c d e f g h", 4)
	if len(ids) != 4 || ids[0] != 101 || ids[3] != 102 {
		t.Errorf("ids = %v", ids)
	}
}

func TestNormalizedWords(t *testing.T) {
	got := NormalizedWords("  Q3 budget: Alice's plan -- approved!  ")
	want := []string{"q3", "budget", "alice's", "plan", "approved"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizedWords = %q, want %q", got, want)
	}
	if len(NormalizedWords("")) != 0 {
		t.Error("empty string should have no words")
	}
}

func TestHashString(t *testing.T) {
	if HashString("abc") != HashString("abc") {
		t.Error("hash should be deterministic")
	}
	if HashString("abc") == HashString("abd") {
		t.Error("different strings should usually hash differently")
	}
	if HashString("anything at all") < 0 {
		t.Error("hash should be non-negative")
	}
}
