package meetings

import (
	"context"

	"go.uber.org/zap"

	"github.com/hyperjump/gijiroku/internal/storage"
	"github.com/hyperjump/gijiroku/internal/vector"
)

// Status summarizes what is stored and indexed.
type Status struct {
	Meetings       int64  `json:"meetings"`
	VectorBackend  string `json:"vectorBackend"`
	Dimensions     int    `json:"dimensions"`
	TitleVectors   int    `json:"titleVectors"`
	SummaryVectors int    `json:"summaryVectors"`
	KeywordDocs    uint64 `json:"keywordDocs"`
	DiskUsageBytes int64  `json:"diskUsageBytes"`
}

// Status reports counts. Vector counts are zero until the vector store exists.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	n, err := s.storage.CountMeetings(ctx)
	if err != nil {
		return nil, err
	}
	st := &Status{Meetings: n}
	if store := s.vectors.Current(); store != nil {
		st.VectorBackend = store.Backend()
		st.Dimensions = store.Dimensions()
		st.TitleVectors = store.Size(vector.ScopeTitle)
		st.SummaryVectors = store.Size(vector.ScopeSummary)
	}
	if s.keyword != nil {
		if st.KeywordDocs, err = s.keyword.DocCount(); err != nil {
			s.logger.Warn("keyword doc count failed", zap.Error(err))
		}
	}
	if len(s.diskPaths) > 0 {
		if st.DiskUsageBytes, err = storage.DiskUsageBytes(s.diskPaths...); err != nil {
			s.logger.Warn("disk usage failed", zap.Error(err))
		}
	}
	return st, nil
}
