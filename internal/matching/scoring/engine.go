// Package scoring implements the deterministic rule-based match scorer.
// It is pure: no I/O, no state, and missing profile data degrades to the
// lowest score for the affected dimension instead of erroring.
package scoring

import (
	"math"

	"loanmatch-workers/internal/models"
)

// Dimension names used as keys in a ScoreBreakdown.
const (
	DimCibil      = "cibil"
	DimFoir       = "foir"
	DimIncome     = "income"
	DimAcademics  = "academics"
	DimUniversity = "university"
	DimCoBorrower = "coBorrower"
	DimTests      = "tests"
)

// Fixed dimension weights, summing to 100.
const (
	WeightCibil      = 25.0
	WeightFoir       = 20.0
	WeightIncome     = 20.0
	WeightAcademics  = 15.0
	WeightUniversity = 10.0
	WeightCoBorrower = 5.0
	WeightTests      = 5.0
)

// Eligibility tier thresholds on the total score.
const (
	EligibleThreshold   = 80.0
	BorderlineThreshold = 60.0
)

// Policy carries the near-miss grace bands. The defaults reproduce the
// original underwriting rules; they are policy parameters with no derivation,
// so they are kept configurable rather than re-derived.
type Policy struct {
	// CibilGraceBand is how many points below the lender minimum still earn
	// partial credit ("close enough to negotiate").
	CibilGraceBand float64
	// FoirGraceBand is how many percentage points above the lender maximum
	// still earn partial credit.
	FoirGraceBand float64
	// IncomeGraceRatio is the fraction of the minimum income that still earns
	// partial credit.
	IncomeGraceRatio float64
}

// DefaultPolicy returns the grace bands used when none are configured.
func DefaultPolicy() Policy {
	return Policy{
		CibilGraceBand:   50,
		FoirGraceBand:    10,
		IncomeGraceRatio: 0.8,
	}
}

// Score evaluates the profile against one lender's criteria using the
// default policy.
func Score(profile *models.ApplicantProfile, cfg *models.LoanConfig) models.ScoreBreakdown {
	return ScoreWithPolicy(profile, cfg, DefaultPolicy())
}

// ScoreWithPolicy evaluates the profile against one lender's criteria.
// Identical inputs always produce an identical breakdown.
func ScoreWithPolicy(profile *models.ApplicantProfile, cfg *models.LoanConfig, policy Policy) models.ScoreBreakdown {
	dims := map[string]float64{
		DimCibil:      scoreCibil(profile, cfg, policy),
		DimFoir:       scoreFoir(profile, cfg, policy),
		DimIncome:     scoreIncome(profile, cfg, policy),
		DimAcademics:  scoreAcademics(profile, cfg),
		DimUniversity: scoreUniversity(profile, cfg),
		DimCoBorrower: scoreCoBorrower(profile, cfg),
		DimTests:      scoreTests(profile, cfg),
	}

	total := 0.0
	for _, v := range dims {
		total += v
	}

	return models.ScoreBreakdown{
		Dimensions: dims,
		Total:      math.Round(total),
	}
}

// TierFor classifies a total score. Every component that needs a tier,
// including the evaluator's fallback path, must use this function so a
// fallback result is never more or less generous than a primary one.
func TierFor(total float64) models.EligibilityTier {
	switch {
	case total >= EligibleThreshold:
		return models.TierEligible
	case total >= BorderlineThreshold:
		return models.TierBorderline
	default:
		return models.TierNotEligible
	}
}

func scoreCibil(p *models.ApplicantProfile, cfg *models.LoanConfig, policy Policy) float64 {
	if p.FinancialSummary == nil {
		return 0
	}
	score := p.FinancialSummary.AvgCibilScore
	switch {
	case score >= cfg.Cibil.MinScore:
		return WeightCibil
	case score >= cfg.Cibil.MinScore-policy.CibilGraceBand:
		return WeightCibil * 0.6
	default:
		return 0
	}
}

func scoreFoir(p *models.ApplicantProfile, cfg *models.LoanConfig, policy Policy) float64 {
	if p.FinancialSummary == nil {
		return 0
	}
	// Lower FOIR is better, the inverse of the credit check.
	foir := p.FinancialSummary.AvgFoir
	switch {
	case foir <= cfg.Foir.MaxPercentage:
		return WeightFoir
	case foir <= cfg.Foir.MaxPercentage+policy.FoirGraceBand:
		return WeightFoir * 0.6
	default:
		return 0
	}
}

func scoreIncome(p *models.ApplicantProfile, cfg *models.LoanConfig, policy Policy) float64 {
	if p.FinancialSummary == nil {
		return 0
	}
	income := p.FinancialSummary.AvgAnnualIncome
	switch {
	case income >= cfg.IncomeItr.MinAnnualIncome:
		return WeightIncome
	case income >= cfg.IncomeItr.MinAnnualIncome*policy.IncomeGraceRatio:
		return WeightIncome * 0.5
	default:
		return 0
	}
}

func scoreAcademics(p *models.ApplicantProfile, cfg *models.LoanConfig) float64 {
	a := p.Academics
	if a == nil || a.Status == models.StatusNotProvided {
		return 0
	}

	pass := true
	if a.TenthGrade.Percentage < cfg.Academics.MinPercentage10th {
		pass = false
	}
	if a.TwelfthGrade.Percentage < cfg.Academics.MinPercentage12th {
		pass = false
	}
	if a.Graduation.Percentage < cfg.Academics.MinPercentageGrad {
		pass = false
	}
	if a.GapYears > cfg.Academics.MaxGapYears {
		pass = false
	}

	if pass {
		return WeightAcademics
	}
	return WeightAcademics * 0.4
}

func scoreUniversity(p *models.ApplicantProfile, cfg *models.LoanConfig) float64 {
	if len(p.AdmissionLetters) == 0 {
		return 0
	}
	top := p.AdmissionLetters[0]
	if top.Status == models.StatusNotProvided {
		return 0
	}

	if !cfg.University.RankingRequired {
		return WeightUniversity
	}
	if top.WorldRank != nil && *top.WorldRank <= cfg.University.MaxRankThreshold {
		return WeightUniversity
	}
	return WeightUniversity * 0.3
}

func scoreCoBorrower(p *models.ApplicantProfile, cfg *models.LoanConfig) float64 {
	if !cfg.CoBorrower.Mandatory {
		return WeightCoBorrower
	}
	for _, cb := range p.CoBorrowers {
		if cb.KYCStatus == models.KYCVerified {
			return WeightCoBorrower
		}
	}
	return 0
}

func scoreTests(p *models.ApplicantProfile, cfg *models.LoanConfig) float64 {
	ts := p.TestScores
	if ts == nil || ts.Status == models.StatusNotProvided {
		// Unknown test status degrades but does not fully fail.
		return WeightTests * 0.5
	}

	if cfg.Tests.OthersOptional {
		return WeightTests
	}
	// An unset lender minimum is zero and therefore trivially satisfied.
	if ts.GRE >= cfg.Tests.GREMinScore ||
		ts.IELTS >= cfg.Tests.IELTSMinScore ||
		ts.TOEFL >= cfg.Tests.TOEFLMinScore {
		return WeightTests
	}
	return WeightTests * 0.5
}
