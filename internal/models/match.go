package models

import "time"

// EligibilityTier classifies a total match score.
type EligibilityTier string

const (
	TierEligible    EligibilityTier = "eligible"
	TierBorderline  EligibilityTier = "borderline"
	TierNotEligible EligibilityTier = "not_eligible"
)

// ScoreBreakdown maps dimension name to earned points plus the rounded total.
type ScoreBreakdown struct {
	Dimensions map[string]float64 `json:"dimensions"`
	Total      float64            `json:"total"`
}

// StructuredAssessment is the contract the rich external evaluator is
// expected to return, either directly as JSON or buried inside free text.
type StructuredAssessment struct {
	MatchPercentage   float64                `json:"matchPercentage"`
	EligibilityStatus string                 `json:"eligibilityStatus"`
	CriteriaAnalysis  map[string]interface{} `json:"criteriaAnalysis,omitempty"`
	Strengths         []string               `json:"strengths,omitempty"`
	Gaps              []string               `json:"gaps,omitempty"`
	Recommendations   []string               `json:"recommendations,omitempty"`
	EstimatedROI      string                 `json:"estimatedROI,omitempty"`
	Confidence        float64                `json:"confidence,omitempty"`
}

// MatchResult is the outcome of evaluating one (profile, lender) pair.
// It is created once per matching run and never mutated afterwards.
type MatchResult struct {
	LenderID          string                 `json:"lenderId"`
	LenderName        string                 `json:"lenderName"`
	LenderEmail       string                 `json:"lenderEmail"`
	MatchPercentage   float64                `json:"matchPercentage"`
	EligibilityStatus EligibilityTier        `json:"eligibilityStatus"`
	Analysis          map[string]interface{} `json:"analysis"`
	Timestamp         time.Time              `json:"timestamp"`
}

// MatchSummary gives the per-bucket counts and the overall best result.
type MatchSummary struct {
	TotalLenders     int          `json:"totalLenders"`
	EligibleCount    int          `json:"eligibleCount"`
	BorderlineCount  int          `json:"borderlineCount"`
	NotEligibleCount int          `json:"notEligibleCount"`
	TopMatch         *MatchResult `json:"topMatch"`
}

// BatchResult buckets all results of one matching run by tier, each bucket
// ordered by match percentage descending.
type BatchResult struct {
	Eligible    []*MatchResult `json:"eligible"`
	Borderline  []*MatchResult `json:"borderline"`
	NotEligible []*MatchResult `json:"notEligible"`
	Summary     MatchSummary   `json:"summary"`
}
