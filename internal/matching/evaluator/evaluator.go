// Package evaluator produces one MatchResult per (profile, lender) pair.
// The rich assessor is tried first; any assessor or parse failure degrades
// to the rule-based scorer so a single flaky lender evaluation never sinks
// the whole matching run.
package evaluator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	commonerrors "loanmatch-workers/internal/common/errors"
	"loanmatch-workers/internal/common/logger"
	"loanmatch-workers/internal/common/metrics"
	"loanmatch-workers/internal/matching/assessment"
	"loanmatch-workers/internal/matching/scoring"
	"loanmatch-workers/internal/models"
)

// Evaluation outcomes reported to metrics.
const (
	outcomeRich     = "rich"
	outcomeFallback = "fallback"
	outcomeCached   = "cached"
)

// Fallback reasons reported to metrics.
const (
	reasonAssessorError     = "assessor_error"
	reasonMalformedResponse = "malformed_response"
)

// Recorder receives per-evaluation telemetry.
// *observability.Observability satisfies it.
type Recorder interface {
	RecordEvaluation(ctx context.Context, outcome string)
	RecordEvaluationDuration(ctx context.Context, duration time.Duration, outcome string)
}

type Evaluator struct {
	assessor assessment.Assessor
	policy   scoring.Policy
	cache    *redis.Client
	cacheTTL time.Duration
	recorder Recorder
	logger   logger.Logger
}

func New(assessor assessment.Assessor, policy scoring.Policy, log logger.Logger) *Evaluator {
	return &Evaluator{
		assessor: assessor,
		policy:   policy,
		logger:   log,
	}
}

// WithCache enables result caching. A zero TTL disables caching again.
func (e *Evaluator) WithCache(client *redis.Client, ttl time.Duration) *Evaluator {
	e.cache = client
	e.cacheTTL = ttl
	return e
}

// WithRecorder forwards per-evaluation outcomes and durations to the
// observability layer.
func (e *Evaluator) WithRecorder(rec Recorder) *Evaluator {
	e.recorder = rec
	return e
}

// Evaluate assesses one lender. It always returns a usable MatchResult;
// failures surface inside the result's analysis, never as an error.
func (e *Evaluator) Evaluate(ctx context.Context, profile *models.ApplicantProfile, lender *models.LenderRecord) *models.MatchResult {
	metrics.EvaluationsInFlight.Inc()
	defer metrics.EvaluationsInFlight.Dec()
	started := time.Now()

	if cached := e.cacheGet(ctx, profile, lender); cached != nil {
		metrics.LenderEvaluationsTotal.WithLabelValues(outcomeCached).Inc()
		e.record(ctx, outcomeCached, started)
		return cached
	}

	result, outcome := e.evaluate(ctx, profile, lender)
	e.record(ctx, outcome, started)
	e.cacheSet(ctx, profile, lender, result)
	return result
}

func (e *Evaluator) evaluate(ctx context.Context, profile *models.ApplicantProfile, lender *models.LenderRecord) (*models.MatchResult, string) {
	raw, err := e.assessor.Assess(ctx, profile, lender)
	if err != nil {
		stdErr := classifyAssessorError(lender.ID, err)
		e.logger.Warn("rich assessment failed, using rule-based fallback", map[string]interface{}{
			"lenderId":  lender.ID,
			"errorCode": string(stdErr.Code),
			"error":     err.Error(),
		})
		metrics.LenderEvaluationsTotal.WithLabelValues(outcomeFallback).Inc()
		metrics.EvaluationFallbacksTotal.WithLabelValues(reasonAssessorError).Inc()
		return e.fallbackResult(profile, lender, err), outcomeFallback
	}

	parsed, err := assessment.ParseStructured(raw)
	if err != nil {
		stdErr := commonerrors.NewMalformedAssessmentError(lender.ID, err)
		e.logger.Warn("rich assessment response malformed, synthesizing from rule-based score", map[string]interface{}{
			"lenderId":  lender.ID,
			"errorCode": string(stdErr.Code),
			"error":     err.Error(),
		})
		metrics.LenderEvaluationsTotal.WithLabelValues(outcomeFallback).Inc()
		metrics.EvaluationFallbacksTotal.WithLabelValues(reasonMalformedResponse).Inc()
		return e.syntheticResult(profile, lender), outcomeFallback
	}

	metrics.LenderEvaluationsTotal.WithLabelValues(outcomeRich).Inc()
	return e.richResult(lender, parsed), outcomeRich
}

func (e *Evaluator) record(ctx context.Context, outcome string, started time.Time) {
	if e.recorder == nil {
		return
	}
	e.recorder.RecordEvaluation(ctx, outcome)
	e.recorder.RecordEvaluationDuration(ctx, time.Since(started), outcome)
}

// classifyAssessorError maps an assessor failure onto the error taxonomy so
// logs carry a stable code alongside the raw message.
func classifyAssessorError(lenderID string, err error) *commonerrors.StandardError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return commonerrors.NewAssessmentTimeoutError(lenderID)
	}
	return commonerrors.NewEvaluatorUnavailableError(err)
}

// richResult turns a well-formed assessment into a MatchResult, defaulting
// the fields the contract allows to be absent.
func (e *Evaluator) richResult(lender *models.LenderRecord, parsed *models.StructuredAssessment) *models.MatchResult {
	tier := normalizeTier(parsed.EligibilityStatus, parsed.MatchPercentage)

	analysis := map[string]interface{}{
		"confidence": parsed.Confidence,
	}
	if parsed.CriteriaAnalysis != nil {
		analysis["criteriaAnalysis"] = parsed.CriteriaAnalysis
	}
	if parsed.Strengths != nil {
		analysis["strengths"] = parsed.Strengths
	}
	if parsed.Gaps != nil {
		analysis["gaps"] = parsed.Gaps
	}
	if parsed.Recommendations != nil {
		analysis["recommendations"] = parsed.Recommendations
	}
	if parsed.EstimatedROI != "" {
		analysis["estimatedROI"] = parsed.EstimatedROI
	}

	return e.newResult(lender, parsed.MatchPercentage, tier, analysis)
}

// fallbackResult covers a failed assessor call: score with the rule engine
// and record why the rich path was skipped.
func (e *Evaluator) fallbackResult(profile *models.ApplicantProfile, lender *models.LenderRecord, cause error) *models.MatchResult {
	breakdown := scoring.ScoreWithPolicy(profile, &lender.LoanConfig, e.policy)

	analysis := map[string]interface{}{
		"fallbackUsed":   true,
		"error":          cause.Error(),
		"scoreBreakdown": breakdown,
	}

	return e.newResult(lender, breakdown.Total, scoring.TierFor(breakdown.Total), analysis)
}

// syntheticResult covers a malformed assessor response: the capability is up
// but untrustworthy, so the rule-based score is dressed as a structured
// assessment flagged for manual review.
func (e *Evaluator) syntheticResult(profile *models.ApplicantProfile, lender *models.LenderRecord) *models.MatchResult {
	breakdown := scoring.ScoreWithPolicy(profile, &lender.LoanConfig, e.policy)
	tier := scoring.TierFor(breakdown.Total)

	analysis := map[string]interface{}{
		"fallbackUsed":    true,
		"confidence":      0.6,
		"recommendations": []string{"Manual review recommended: automated assessment was unreadable"},
		"estimatedROI":    roiRange(&lender.LoanConfig),
		"scoreBreakdown":  breakdown,
	}

	return e.newResult(lender, breakdown.Total, tier, analysis)
}

func (e *Evaluator) newResult(lender *models.LenderRecord, pct float64, tier models.EligibilityTier, analysis map[string]interface{}) *models.MatchResult {
	return &models.MatchResult{
		LenderID:          lender.ID,
		LenderName:        lender.CompanyName,
		LenderEmail:       lender.Email,
		MatchPercentage:   pct,
		EligibilityStatus: tier,
		Analysis:          analysis,
		Timestamp:         time.Now().UTC(),
	}
}

// normalizeTier accepts the assessor's status when it is one of the known
// tiers. An absent status defaults to not eligible; any other value derives
// the tier from the match percentage.
func normalizeTier(status string, pct float64) models.EligibilityTier {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" {
		return models.TierNotEligible
	}
	switch models.EligibilityTier(status) {
	case models.TierEligible:
		return models.TierEligible
	case models.TierBorderline:
		return models.TierBorderline
	case models.TierNotEligible:
		return models.TierNotEligible
	default:
		return scoring.TierFor(pct)
	}
}

func roiRange(cfg *models.LoanConfig) string {
	return fmt.Sprintf("%.2f%% - %.2f%%", cfg.ROI.MinRate, cfg.ROI.MaxRate)
}

// ==========================
// Cache
// ==========================

func (e *Evaluator) cacheEnabled() bool {
	return e.cache != nil && e.cacheTTL > 0
}

func (e *Evaluator) cacheGet(ctx context.Context, profile *models.ApplicantProfile, lender *models.LenderRecord) *models.MatchResult {
	if !e.cacheEnabled() {
		return nil
	}

	key, err := cacheKey(profile, lender)
	if err != nil {
		return nil
	}

	payload, err := e.cache.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			e.logger.Debug("assessment cache read failed", map[string]interface{}{
				"lenderId": lender.ID,
				"error":    err.Error(),
			})
		}
		return nil
	}

	var result models.MatchResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil
	}
	return &result
}

func (e *Evaluator) cacheSet(ctx context.Context, profile *models.ApplicantProfile, lender *models.LenderRecord, result *models.MatchResult) {
	if !e.cacheEnabled() {
		return
	}

	key, err := cacheKey(profile, lender)
	if err != nil {
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return
	}

	if err := e.cache.Set(ctx, key, payload, e.cacheTTL).Err(); err != nil {
		e.logger.Debug("assessment cache write failed", map[string]interface{}{
			"lenderId": lender.ID,
			"error":    err.Error(),
		})
	}
}

// cacheKey hashes the full profile plus lender criteria so any change to
// either invalidates the entry.
func cacheKey(profile *models.ApplicantProfile, lender *models.LenderRecord) (string, error) {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return "", err
	}
	lenderJSON, err := json.Marshal(lender)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(append(profileJSON, lenderJSON...))
	return "match:assessment:" + hex.EncodeToString(sum[:]), nil
}
