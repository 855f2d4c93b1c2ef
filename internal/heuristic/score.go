package heuristic

import (
	"regexp"
	"strings"

	"github.com/hyperjump/gijiroku/internal/transcript"
)

// minScoreLength keeps very short sentences from dominating the ranking.
const minScoreLength = 5

var (
	termRe  = regexp.MustCompile(`[a-z0-9'-]+`)
	tokenRe = regexp.MustCompile(`\S+`)
)

var stopWords = func() map[string]struct{} {
	words := "a,an,the,and,or,but,if,then,else,for,of,in,on,at,by,to,from,with,as,that,this,these,those," +
		"is,are,was,were,be,been,being,can,could,should,would,may,might,will,shall,do,does,did,have,has,had"
	m := make(map[string]struct{})
	for _, w := range strings.Split(words, ",") {
		m[w] = struct{}{}
	}
	return m
}()

func terms(text string) []string {
	all := termRe.FindAllString(strings.ToLower(text), -1)
	out := all[:0]
	for _, w := range all {
		if _, stop := stopWords[w]; !stop {
			out = append(out, w)
		}
	}
	return out
}

// Score returns one salience score per sentence, aligned with the input:
// the summed corpus frequency of the sentence's non-stop terms divided by
// max(5, whitespace token count).
func Score(sentences []transcript.Sentence) []float64 {
	freq := make(map[string]int)
	perSentence := make([][]string, len(sentences))
	for i, s := range sentences {
		perSentence[i] = terms(s.Text)
		for _, w := range perSentence[i] {
			freq[w]++
		}
	}
	scores := make([]float64, len(sentences))
	for i, s := range sentences {
		sum := 0
		for _, w := range perSentence[i] {
			sum += freq[w]
		}
		length := len(tokenRe.FindAllStringIndex(s.Text, -1))
		if length < minScoreLength {
			length = minScoreLength
		}
		scores[i] = float64(sum) / float64(length)
	}
	return scores
}
