package keyword

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/gijiroku/internal/models"
)

// meetingDoc is the indexed projection of a meeting.
type meetingDoc struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// BleveIndex implements Index using Bleve.
type BleveIndex struct {
	index bleve.Index
}

func newMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	// Standard analyzer: lowercase + tokenize, no stemming, so names match exactly.
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(FieldTitle, textFieldMapping)
	docMapping.AddFieldMappingsAt(FieldSummary, textFieldMapping)
	im.AddDocumentMapping("meeting", docMapping)
	im.DefaultType = "meeting"
	im.DefaultMapping = docMapping
	return im
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path keeps the
// index in memory.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := newMapping()
	if path == "" {
		index, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, fmt.Errorf("failed to create Bleve index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index adds or replaces the meeting's title and summary.
func (b *BleveIndex) Index(ctx context.Context, m *models.Meeting) error {
	return b.index.Index(m.ID, meetingDoc{Title: m.Title, Summary: m.Summary})
}

// Search matches query against the selected fields. Each field is searched
// separately and scores are added, with title scores multiplied by TitleBoost.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]Result, error) {
	if limit <= 0 {
		return nil, nil
	}
	fields := []string{FieldTitle, FieldSummary}
	titleBoost := 1.0
	fuzzy := false
	fuzziness := 1
	if opts != nil {
		if len(opts.Fields) > 0 {
			fields = opts.Fields
		}
		if opts.TitleBoost > 1 {
			titleBoost = opts.TitleBoost
		}
		fuzzy = opts.Fuzzy
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
	}

	// Request enough from each field so the merged top "limit" is correct.
	reqSize := limit * 2
	if reqSize < 50 {
		reqSize = 50
	}

	scores := make(map[string]float64)
	order := make([]string, 0)
	for _, field := range fields {
		var q blevequery.Query
		if fuzzy {
			q = buildFuzzyQuery(query, fuzziness, field)
		} else {
			mq := bleve.NewMatchQuery(query)
			mq.SetField(field)
			q = mq
		}
		req := bleve.NewSearchRequest(q)
		req.Size = reqSize
		res, err := b.index.SearchInContext(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("Bleve %s search failed: %w", field, err)
		}
		boost := 1.0
		if field == FieldTitle {
			boost = titleBoost
		}
		for _, hit := range res.Hits {
			if _, ok := scores[hit.ID]; !ok {
				order = append(order, hit.ID)
			}
			scores[hit.ID] += hit.Score * boost
		}
	}

	out := make([]Result, len(order))
	for i, id := range order {
		out[i] = Result{ID: id, Score: scores[id]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// tokenizeQuery splits query into lowercase terms.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// buildFuzzyQuery ORs one FuzzyQuery per term, restricted to field.
func buildFuzzyQuery(queryStr string, fuzziness int, field string) blevequery.Query {
	terms := tokenizeQuery(queryStr)
	if len(terms) == 0 {
		mq := bleve.NewMatchQuery(queryStr)
		mq.SetField(field)
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		fq.SetField(field)
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// Delete removes a meeting from the index.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// DocCount returns the total number of indexed meetings.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
