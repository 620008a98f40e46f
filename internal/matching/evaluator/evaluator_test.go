package evaluator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonerrors "loanmatch-workers/internal/common/errors"
	"loanmatch-workers/internal/common/logger"
	"loanmatch-workers/internal/matching/assessment"
	"loanmatch-workers/internal/matching/scoring"
	"loanmatch-workers/internal/models"
)

// ==========================
// Test Fixtures
// ==========================

func intPtr(v int) *int { return &v }

func strongProfile() *models.ApplicantProfile {
	return &models.ApplicantProfile{
		FinancialSummary: &models.FinancialSummary{
			AvgCibilScore:   780,
			AvgFoir:         30,
			AvgAnnualIncome: 1500000,
		},
		Academics: &models.Academics{
			Status:       "provided",
			TenthGrade:   models.GradeRecord{Percentage: 88},
			TwelfthGrade: models.GradeRecord{Percentage: 85},
			Graduation:   models.GradeRecord{Percentage: 80},
			GapYears:     0,
		},
		AdmissionLetters: []models.AdmissionLetter{
			{Status: "provided", WorldRank: intPtr(120)},
		},
		CoBorrowers: []models.CoBorrower{
			{KYCStatus: models.KYCVerified},
		},
		TestScores: &models.TestScores{Status: "provided", GRE: 320},
	}
}

func testLender() *models.LenderRecord {
	return &models.LenderRecord{
		ID:          "lender-001",
		CompanyName: "Acme Credit",
		Email:       "ops@acmecredit.example",
		LoanConfig: models.LoanConfig{
			Cibil:      models.CibilCriteria{MinScore: 700},
			Foir:       models.FoirCriteria{MaxPercentage: 50},
			IncomeItr:  models.IncomeCriteria{MinAnnualIncome: 1000000},
			Academics:  models.AcademicCriteria{MinPercentage10th: 60, MinPercentage12th: 60, MinPercentageGrad: 60, MaxGapYears: 2},
			University: models.UniversityCriteria{RankingRequired: true, MaxRankThreshold: 500},
			CoBorrower: models.CoBorrowerCriteria{Mandatory: true},
			Tests:      models.TestCriteria{GREMinScore: 300},
			ROI:        models.ROIRange{MinRate: 9.5, MaxRate: 12.0},
		},
	}
}

func staticAssessor(response string) assessment.AssessorFunc {
	return func(context.Context, *models.ApplicantProfile, *models.LenderRecord) (string, error) {
		return response, nil
	}
}

func failingAssessor(err error) assessment.AssessorFunc {
	return func(context.Context, *models.ApplicantProfile, *models.LenderRecord) (string, error) {
		return "", err
	}
}

// ==========================
// Rich Path Tests
// ==========================

func TestEvaluate_RichAssessment(t *testing.T) {
	raw := `{
		"matchPercentage": 87,
		"eligibilityStatus": "eligible",
		"criteriaAnalysis": {"cibil": "well above minimum"},
		"strengths": ["strong income"],
		"gaps": [],
		"recommendations": ["proceed"],
		"estimatedROI": "9.5% - 10.5%",
		"confidence": 0.92
	}`
	eval := New(staticAssessor(raw), scoring.DefaultPolicy(), logger.NewNoOpLogger())

	result := eval.Evaluate(context.Background(), strongProfile(), testLender())

	assert.Equal(t, "lender-001", result.LenderID)
	assert.Equal(t, "Acme Credit", result.LenderName)
	assert.Equal(t, "ops@acmecredit.example", result.LenderEmail)
	assert.Equal(t, 87.0, result.MatchPercentage)
	assert.Equal(t, models.TierEligible, result.EligibilityStatus)
	assert.Equal(t, 0.92, result.Analysis["confidence"])
	assert.NotContains(t, result.Analysis, "fallbackUsed")
	assert.WithinDuration(t, time.Now().UTC(), result.Timestamp, 5*time.Second)
}

func TestEvaluate_RichAssessmentDefaultsMissingFields(t *testing.T) {
	eval := New(staticAssessor(`{"criteriaAnalysis": {}}`), scoring.DefaultPolicy(), logger.NewNoOpLogger())

	result := eval.Evaluate(context.Background(), strongProfile(), testLender())

	assert.Zero(t, result.MatchPercentage)
	assert.Equal(t, models.TierNotEligible, result.EligibilityStatus)
}

func TestEvaluate_StatusNormalization(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected models.EligibilityTier
	}{
		{
			name:     "high percentage with garbage status derives from percentage",
			raw:      `{"matchPercentage": 85, "eligibilityStatus": "VERY GOOD"}`,
			expected: models.TierEligible,
		},
		{
			name:     "missing status defaults to not eligible despite high percentage",
			raw:      `{"matchPercentage": 85}`,
			expected: models.TierNotEligible,
		},
		{
			name:     "blank status defaults to not eligible",
			raw:      `{"matchPercentage": 65, "eligibilityStatus": "  "}`,
			expected: models.TierNotEligible,
		},
		{
			name:     "case-insensitive known status wins over percentage",
			raw:      `{"matchPercentage": 20, "eligibilityStatus": "Eligible"}`,
			expected: models.TierEligible,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := New(staticAssessor(tt.raw), scoring.DefaultPolicy(), logger.NewNoOpLogger())
			result := eval.Evaluate(context.Background(), strongProfile(), testLender())
			assert.Equal(t, tt.expected, result.EligibilityStatus)
		})
	}
}

// ==========================
// Fallback Path Tests
// ==========================

func TestClassifyAssessorError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode commonerrors.ErrorCode
	}{
		{
			name:         "deadline exceeded maps to assessment timeout",
			err:          fmt.Errorf("assess: %w", context.DeadlineExceeded),
			expectedCode: commonerrors.ErrCodeAssessmentTimeout,
		},
		{
			name:         "cancellation maps to assessment timeout",
			err:          context.Canceled,
			expectedCode: commonerrors.ErrCodeAssessmentTimeout,
		},
		{
			name:         "anything else maps to evaluator unavailable",
			err:          errors.New("503 from upstream"),
			expectedCode: commonerrors.ErrCodeEvaluatorUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdErr := classifyAssessorError("lender-001", tt.err)
			assert.Equal(t, tt.expectedCode, stdErr.Code)
			assert.True(t, stdErr.Retryable)
		})
	}
}

func TestEvaluate_AssessorErrorFallsBackToRules(t *testing.T) {
	eval := New(failingAssessor(errors.New("service unavailable")), scoring.DefaultPolicy(), logger.NewNoOpLogger())
	profile := strongProfile()
	lender := testLender()

	result := eval.Evaluate(context.Background(), profile, lender)

	expected := scoring.Score(profile, &lender.LoanConfig)
	assert.Equal(t, expected.Total, result.MatchPercentage)
	assert.Equal(t, scoring.TierFor(expected.Total), result.EligibilityStatus)
	assert.Equal(t, true, result.Analysis["fallbackUsed"])
	assert.Contains(t, result.Analysis["error"], "service unavailable")
	assert.Contains(t, result.Analysis, "scoreBreakdown")
}

func TestEvaluate_MalformedResponseSynthesized(t *testing.T) {
	eval := New(staticAssessor("I think the applicant looks fine overall."), scoring.DefaultPolicy(), logger.NewNoOpLogger())
	profile := strongProfile()
	lender := testLender()

	result := eval.Evaluate(context.Background(), profile, lender)

	expected := scoring.Score(profile, &lender.LoanConfig)
	assert.Equal(t, expected.Total, result.MatchPercentage)
	assert.Equal(t, scoring.TierFor(expected.Total), result.EligibilityStatus)
	assert.Equal(t, true, result.Analysis["fallbackUsed"])
	assert.Equal(t, 0.6, result.Analysis["confidence"])
	assert.Equal(t, "9.50% - 12.00%", result.Analysis["estimatedROI"])

	recs, ok := result.Analysis["recommendations"].([]string)
	require.True(t, ok)
	require.NotEmpty(t, recs)
	assert.Contains(t, recs[0], "Manual review")
}

func TestEvaluate_FallbackTierMatchesRuleEngine(t *testing.T) {
	// Whatever the profile, the fallback must classify exactly like the
	// rule engine would.
	profiles := []*models.ApplicantProfile{
		strongProfile(),
		{},
		{FinancialSummary: &models.FinancialSummary{AvgCibilScore: 660, AvgFoir: 55, AvgAnnualIncome: 850000}},
	}
	eval := New(failingAssessor(errors.New("down")), scoring.DefaultPolicy(), logger.NewNoOpLogger())
	lender := testLender()

	for i, profile := range profiles {
		t.Run(fmt.Sprintf("profile_%d", i), func(t *testing.T) {
			result := eval.Evaluate(context.Background(), profile, lender)
			breakdown := scoring.Score(profile, &lender.LoanConfig)
			assert.Equal(t, scoring.TierFor(breakdown.Total), result.EligibilityStatus)
		})
	}
}

// ==========================
// Cache Tests
// ==========================

func TestEvaluate_CacheHitSkipsAssessor(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	calls := 0
	assessor := assessment.AssessorFunc(func(context.Context, *models.ApplicantProfile, *models.LenderRecord) (string, error) {
		calls++
		return `{"matchPercentage": 75, "eligibilityStatus": "borderline"}`, nil
	})

	eval := New(assessor, scoring.DefaultPolicy(), logger.NewNoOpLogger()).
		WithCache(client, time.Hour)

	profile := strongProfile()
	lender := testLender()

	first := eval.Evaluate(context.Background(), profile, lender)
	second := eval.Evaluate(context.Background(), profile, lender)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first.MatchPercentage, second.MatchPercentage)
	assert.Equal(t, first.EligibilityStatus, second.EligibilityStatus)
	assert.Equal(t, first.LenderID, second.LenderID)
}

func TestEvaluate_DifferentLenderMissesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	calls := 0
	assessor := assessment.AssessorFunc(func(context.Context, *models.ApplicantProfile, *models.LenderRecord) (string, error) {
		calls++
		return `{"matchPercentage": 75, "eligibilityStatus": "borderline"}`, nil
	})

	eval := New(assessor, scoring.DefaultPolicy(), logger.NewNoOpLogger()).
		WithCache(client, time.Hour)

	profile := strongProfile()
	other := testLender()
	other.ID = "lender-002"

	eval.Evaluate(context.Background(), profile, testLender())
	eval.Evaluate(context.Background(), profile, other)

	assert.Equal(t, 2, calls)
}

func TestEvaluate_ZeroTTLDisablesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	calls := 0
	assessor := assessment.AssessorFunc(func(context.Context, *models.ApplicantProfile, *models.LenderRecord) (string, error) {
		calls++
		return `{"matchPercentage": 75, "eligibilityStatus": "borderline"}`, nil
	})

	eval := New(assessor, scoring.DefaultPolicy(), logger.NewNoOpLogger()).
		WithCache(client, 0)

	eval.Evaluate(context.Background(), strongProfile(), testLender())
	eval.Evaluate(context.Background(), strongProfile(), testLender())

	assert.Equal(t, 2, calls)
}

func TestEvaluate_CacheWriteFailureStillReturnsResult(t *testing.T) {
	client, mock := redismock.NewClientMock()

	profile := strongProfile()
	lender := testLender()
	key, err := cacheKey(profile, lender)
	require.NoError(t, err)

	mock.ExpectGet(key).RedisNil()
	mock.Regexp().ExpectSet(key, `.*`, time.Hour).SetErr(errors.New("READONLY replica"))

	eval := New(staticAssessor(`{"matchPercentage": 75, "eligibilityStatus": "borderline"}`), scoring.DefaultPolicy(), logger.NewNoOpLogger()).
		WithCache(client, time.Hour)

	result := eval.Evaluate(context.Background(), profile, lender)

	assert.Equal(t, 75.0, result.MatchPercentage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEvaluate_CorruptCacheEntryFallsThroughToAssessor(t *testing.T) {
	client, mock := redismock.NewClientMock()

	profile := strongProfile()
	lender := testLender()
	key, err := cacheKey(profile, lender)
	require.NoError(t, err)

	mock.ExpectGet(key).SetVal("{not json")
	mock.Regexp().ExpectSet(key, `.*`, time.Hour).SetVal("OK")

	calls := 0
	assessor := assessment.AssessorFunc(func(context.Context, *models.ApplicantProfile, *models.LenderRecord) (string, error) {
		calls++
		return `{"matchPercentage": 75, "eligibilityStatus": "borderline"}`, nil
	})

	eval := New(assessor, scoring.DefaultPolicy(), logger.NewNoOpLogger()).
		WithCache(client, time.Hour)

	result := eval.Evaluate(context.Background(), profile, lender)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 75.0, result.MatchPercentage)
}

func TestEvaluate_CacheOutageDegradesToDirectCall(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()

	eval := New(staticAssessor(`{"matchPercentage": 75, "eligibilityStatus": "borderline"}`), scoring.DefaultPolicy(), logger.NewNoOpLogger()).
		WithCache(client, time.Hour)

	result := eval.Evaluate(context.Background(), strongProfile(), testLender())

	assert.Equal(t, 75.0, result.MatchPercentage)
	assert.Equal(t, models.TierBorderline, result.EligibilityStatus)
}

// ==========================
// Recorder Tests
// ==========================

type stubRecorder struct {
	outcomes  []string
	durations int
}

func (r *stubRecorder) RecordEvaluation(_ context.Context, outcome string) {
	r.outcomes = append(r.outcomes, outcome)
}

func (r *stubRecorder) RecordEvaluationDuration(_ context.Context, _ time.Duration, _ string) {
	r.durations++
}

func TestEvaluate_RecorderSeesEveryOutcome(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	rec := &stubRecorder{}
	eval := New(staticAssessor(`{"matchPercentage": 75, "eligibilityStatus": "borderline"}`), scoring.DefaultPolicy(), logger.NewNoOpLogger()).
		WithCache(client, time.Hour).
		WithRecorder(rec)

	profile := strongProfile()
	lender := testLender()

	eval.Evaluate(context.Background(), profile, lender)
	eval.Evaluate(context.Background(), profile, lender)

	assert.Equal(t, []string{"rich", "cached"}, rec.outcomes)
	assert.Equal(t, 2, rec.durations)
}

func TestEvaluate_RecorderSeesFallback(t *testing.T) {
	rec := &stubRecorder{}
	eval := New(failingAssessor(errors.New("down")), scoring.DefaultPolicy(), logger.NewNoOpLogger()).
		WithRecorder(rec)

	eval.Evaluate(context.Background(), strongProfile(), testLender())

	assert.Equal(t, []string{"fallback"}, rec.outcomes)
}
