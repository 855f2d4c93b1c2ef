package models

// SearchResult is a single search hit with its meeting.
type SearchResult struct {
	Meeting       *Meeting `json:"meeting"`
	Score         float64  `json:"score"`
	KeywordScore  float64  `json:"keywordScore,omitempty"`
	SemanticScore float64  `json:"semanticScore,omitempty"`
	Rank          int      `json:"rank"`
}

// SearchResponse is the response for a search request. Results are in ranking order.
type SearchResponse struct {
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"queryTimeMs"`
	Query     string          `json:"query"`
	Scope     string          `json:"scope"`
	Mode      string          `json:"mode"`
	// AutoFuzzy reports that keyword matching fell back to typo-tolerant search
	// because the exact search found nothing.
	AutoFuzzy bool `json:"autoFuzzy,omitempty"`
}
