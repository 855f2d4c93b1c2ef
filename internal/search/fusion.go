package search

import (
	"sort"

	"github.com/hyperjump/gijiroku/internal/keyword"
	"github.com/hyperjump/gijiroku/internal/vector"
)

// Hit is one ranked meeting id.
type Hit struct {
	ID    string
	Score float64
}

// FusedResult holds a meeting ID and fused keyword/semantic scores.
type FusedResult struct {
	MeetingID     string
	Score         float64
	KeywordScore  float64
	SemanticScore float64
}

// MergeByMax combines ranked lists into one list holding, per owner id, the
// maximum score seen. Output is sorted by score descending; equal scores keep
// first-seen order.
func MergeByMax(lists ...[]vector.Result) []Hit {
	best := make(map[string]int)
	hits := make([]Hit, 0)
	for _, list := range lists {
		for _, r := range list {
			if i, ok := best[r.ID]; ok {
				if r.Score > hits[i].Score {
					hits[i].Score = r.Score
				}
				continue
			}
			best[r.ID] = len(hits)
			hits = append(hits, Hit{ID: r.ID, Score: r.Score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	return hits
}

// NormalizeKeywordScores normalizes keyword scores to [0,1] by max.
func NormalizeKeywordScores(results []keyword.Result) map[string]float64 {
	normalized := make(map[string]float64, len(results))
	if len(results) == 0 {
		return normalized
	}
	maxScore := results[0].Score
	for _, r := range results {
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}
	for _, r := range results {
		if maxScore > 0 {
			normalized[r.ID] = r.Score / maxScore
		} else {
			normalized[r.ID] = 0
		}
	}
	return normalized
}

// Fuse merges keyword and semantic hits with weights. Keyword scores are
// normalized by max first; semantic scores are cosine similarities already.
// Equal fused scores keep keyword order, then semantic order.
func Fuse(keywordHits []keyword.Result, semanticHits []Hit, keywordWeight, semanticWeight float64) []*FusedResult {
	keywordScores := NormalizeKeywordScores(keywordHits)
	byID := make(map[string]*FusedResult)
	results := make([]*FusedResult, 0, len(keywordHits)+len(semanticHits))
	for _, r := range keywordHits {
		if _, ok := byID[r.ID]; ok {
			continue
		}
		fr := &FusedResult{MeetingID: r.ID, KeywordScore: keywordScores[r.ID]}
		byID[r.ID] = fr
		results = append(results, fr)
	}
	for _, h := range semanticHits {
		if fr, ok := byID[h.ID]; ok {
			fr.SemanticScore = h.Score
			continue
		}
		fr := &FusedResult{MeetingID: h.ID, SemanticScore: h.Score}
		byID[h.ID] = fr
		results = append(results, fr)
	}
	for _, fr := range results {
		fr.Score = keywordWeight*fr.KeywordScore + semanticWeight*fr.SemanticScore
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results
}
