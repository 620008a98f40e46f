package aggregator

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanmatch-workers/internal/models"
)

func result(id string, pct float64, tier models.EligibilityTier) *models.MatchResult {
	return &models.MatchResult{
		LenderID:          id,
		MatchPercentage:   pct,
		EligibilityStatus: tier,
	}
}

// ==========================
// Aggregate Tests
// ==========================

func TestAggregate_PartitionsByTier(t *testing.T) {
	results := []*models.MatchResult{
		result("a", 90, models.TierEligible),
		result("b", 70, models.TierBorderline),
		result("c", 30, models.TierNotEligible),
		result("d", 85, models.TierEligible),
		result("e", 62, models.TierBorderline),
	}

	batch := Aggregate(results)

	assert.Len(t, batch.Eligible, 2)
	assert.Len(t, batch.Borderline, 2)
	assert.Len(t, batch.NotEligible, 1)

	assert.Equal(t, 5, batch.Summary.TotalLenders)
	assert.Equal(t, 2, batch.Summary.EligibleCount)
	assert.Equal(t, 2, batch.Summary.BorderlineCount)
	assert.Equal(t, 1, batch.Summary.NotEligibleCount)
}

func TestAggregate_BucketsOrderedByPercentageDesc(t *testing.T) {
	results := []*models.MatchResult{
		result("a", 81, models.TierEligible),
		result("b", 95, models.TierEligible),
		result("c", 88, models.TierEligible),
	}

	batch := Aggregate(results)

	require.Len(t, batch.Eligible, 3)
	assert.Equal(t, "b", batch.Eligible[0].LenderID)
	assert.Equal(t, "c", batch.Eligible[1].LenderID)
	assert.Equal(t, "a", batch.Eligible[2].LenderID)
}

func TestAggregate_TopMatchIsGlobalBest(t *testing.T) {
	results := []*models.MatchResult{
		result("a", 55, models.TierNotEligible),
		result("b", 72, models.TierBorderline),
		result("c", 91, models.TierEligible),
	}

	batch := Aggregate(results)

	require.NotNil(t, batch.Summary.TopMatch)
	assert.Equal(t, "c", batch.Summary.TopMatch.LenderID)
}

func TestAggregate_StableForEqualPercentages(t *testing.T) {
	results := []*models.MatchResult{
		result("first", 75, models.TierBorderline),
		result("second", 75, models.TierBorderline),
		result("third", 75, models.TierBorderline),
	}

	batch := Aggregate(results)

	require.Len(t, batch.Borderline, 3)
	assert.Equal(t, "first", batch.Borderline[0].LenderID)
	assert.Equal(t, "second", batch.Borderline[1].LenderID)
	assert.Equal(t, "third", batch.Borderline[2].LenderID)
}

func TestAggregate_EmptyInput(t *testing.T) {
	batch := Aggregate(nil)

	assert.Empty(t, batch.Eligible)
	assert.Empty(t, batch.Borderline)
	assert.Empty(t, batch.NotEligible)
	assert.Zero(t, batch.Summary.TotalLenders)
	assert.Nil(t, batch.Summary.TopMatch)
}

func TestAggregate_SkipsNilEntries(t *testing.T) {
	results := []*models.MatchResult{
		result("a", 90, models.TierEligible),
		nil,
		result("b", 40, models.TierNotEligible),
	}

	batch := Aggregate(results)

	assert.Equal(t, 2, batch.Summary.TotalLenders)
}

func TestAggregate_EveryResultLandsInExactlyOneBucket(t *testing.T) {
	tiers := []models.EligibilityTier{models.TierEligible, models.TierBorderline, models.TierNotEligible}
	results := make([]*models.MatchResult, 0, 30)
	for i := 0; i < 30; i++ {
		results = append(results, result(fmt.Sprintf("lender-%02d", i), float64(i*3%100), tiers[i%3]))
	}

	batch := Aggregate(results)

	total := len(batch.Eligible) + len(batch.Borderline) + len(batch.NotEligible)
	assert.Equal(t, len(results), total)

	seen := make(map[string]bool)
	for _, bucket := range [][]*models.MatchResult{batch.Eligible, batch.Borderline, batch.NotEligible} {
		for _, r := range bucket {
			assert.False(t, seen[r.LenderID], "duplicate lender %s", r.LenderID)
			seen[r.LenderID] = true
		}
	}
}
