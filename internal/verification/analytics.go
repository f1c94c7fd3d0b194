package verification

import (
	"fmt"
	"time"

	"github.com/srivastavaprakhar/VERIFIN-AI/internal/comparison"
)

// Analytics summarizes the verification history for the dashboard
type Analytics struct {
	TotalDocuments  int `json:"total_documents"`
	TotalMismatches int `json:"total_mismatches"`
	// MatchedPairs counts pairs without mismatches, compared or not.
	MatchedPairs    int `json:"matched_pairs"`
	MismatchedPairs int `json:"mismatched_pairs"`
	ComparedPairs   int `json:"compared_pairs"`
	// PairsBySeverity counts pairs having at least one mismatch of each severity.
	PairsBySeverity  map[comparison.Severity]int     `json:"pairs_by_severity"`
	MismatchesByType map[comparison.MismatchType]int `json:"mismatches_by_type"`
	LastUpdateTime   time.Time                       `json:"last_update_time"`
}

func computeAnalytics(pairs []*DocumentPair, now time.Time) *Analytics {
	a := &Analytics{
		TotalDocuments: len(pairs),
		PairsBySeverity: map[comparison.Severity]int{
			comparison.SeverityHigh:   0,
			comparison.SeverityMedium: 0,
			comparison.SeverityLow:    0,
		},
		MismatchesByType: make(map[comparison.MismatchType]int),
	}

	for _, pair := range pairs {
		a.TotalMismatches += len(pair.Mismatches)
		if len(pair.Mismatches) == 0 {
			a.MatchedPairs++
		}
		if pair.Status == StatusCompared || pair.Status == StatusVerified {
			a.ComparedPairs++
		}
		for severity := range comparison.CountBySeverity(pair.Mismatches) {
			a.PairsBySeverity[severity]++
		}
		for t, n := range comparison.CountByType(pair.Mismatches) {
			a.MismatchesByType[t] += n
		}
		if pair.LastUpdated.After(a.LastUpdateTime) {
			a.LastUpdateTime = pair.LastUpdated
		}
	}
	a.MismatchedPairs = a.TotalDocuments - a.MatchedPairs

	if a.LastUpdateTime.IsZero() {
		a.LastUpdateTime = now
	}
	return a
}

// Analytics aggregates mismatch counts across all pairs
func (s *Service) Analytics() (*Analytics, error) {
	pairs, err := s.db.ListPairs()
	if err != nil {
		return nil, fmt.Errorf("listing pairs: %w", err)
	}
	return computeAnalytics(pairs, s.timeSource.Now()), nil
}
