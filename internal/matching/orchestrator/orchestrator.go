// Package orchestrator fans one applicant profile out across every lender
// under a fixed concurrency bound.
package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"loanmatch-workers/internal/common/logger"
	"loanmatch-workers/internal/common/metrics"
	"loanmatch-workers/internal/models"
)

// LenderEvaluator evaluates one (profile, lender) pair. Implementations must
// always return a result; per-lender failures are folded into the result.
type LenderEvaluator interface {
	Evaluate(ctx context.Context, profile *models.ApplicantProfile, lender *models.LenderRecord) *models.MatchResult
}

type Orchestrator struct {
	evaluator  LenderEvaluator
	dispatcher Dispatcher
	logger     logger.Logger
}

func New(evaluator LenderEvaluator, batchSize int, pause time.Duration, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		evaluator: evaluator,
		dispatcher: Dispatcher{
			GroupSize: batchSize,
			Pause:     pause,
		},
		logger: log,
	}
}

// MatchAll evaluates the profile against every lender and returns one result
// per lender in the lenders' original order. Each goroutine writes only its
// own slot, so the result buffer needs no locking.
func (o *Orchestrator) MatchAll(ctx context.Context, profile *models.ApplicantProfile, lenders []models.LenderRecord) []*models.MatchResult {
	batchID := uuid.New().String()
	started := time.Now()

	o.logger.Info("matching run started", map[string]interface{}{
		"batchId":     batchID,
		"lenderCount": len(lenders),
		"groupSize":   o.dispatcher.GroupSize,
	})

	results := make([]*models.MatchResult, len(lenders))
	o.dispatcher.Run(ctx, len(lenders), func(ctx context.Context, i int) {
		results[i] = o.evaluator.Evaluate(ctx, profile, &lenders[i])
	})

	elapsed := time.Since(started)
	metrics.MatchBatchDuration.Observe(elapsed.Seconds())

	o.logger.Info("matching run finished", map[string]interface{}{
		"batchId":    batchID,
		"durationMs": elapsed.Milliseconds(),
	})

	return results
}
