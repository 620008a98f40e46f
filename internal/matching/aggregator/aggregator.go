// Package aggregator ranks and buckets the per-lender results of one
// matching run.
package aggregator

import (
	"sort"

	"loanmatch-workers/internal/models"
)

// Aggregate sorts results by match percentage descending and partitions them
// by eligibility tier. The sort is stable, so lenders with equal percentages
// keep their evaluation order. Nil entries (from a cancelled run) are skipped.
func Aggregate(results []*models.MatchResult) *models.BatchResult {
	ranked := make([]*models.MatchResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			ranked = append(ranked, r)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].MatchPercentage > ranked[j].MatchPercentage
	})

	batch := &models.BatchResult{
		Eligible:    []*models.MatchResult{},
		Borderline:  []*models.MatchResult{},
		NotEligible: []*models.MatchResult{},
	}

	for _, r := range ranked {
		switch r.EligibilityStatus {
		case models.TierEligible:
			batch.Eligible = append(batch.Eligible, r)
		case models.TierBorderline:
			batch.Borderline = append(batch.Borderline, r)
		default:
			batch.NotEligible = append(batch.NotEligible, r)
		}
	}

	batch.Summary = models.MatchSummary{
		TotalLenders:     len(ranked),
		EligibleCount:    len(batch.Eligible),
		BorderlineCount:  len(batch.Borderline),
		NotEligibleCount: len(batch.NotEligible),
	}
	if len(ranked) > 0 {
		batch.Summary.TopMatch = ranked[0]
	}

	return batch
}
