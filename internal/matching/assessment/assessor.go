// Package assessment integrates the rich external evaluator: an opaque,
// rate-limited capability that may be down, slow, or reply with free-form
// text instead of the structured contract. Parsing is defensive and fully
// separated from the transport so tests can inject canned responses.
package assessment

import (
	"context"

	"loanmatch-workers/internal/models"
)

// Assessor is the rich assessment capability for one (profile, lender) pair.
// Implementations return the raw textual response; interpretation is the
// caller's job via ParseStructured.
type Assessor interface {
	Assess(ctx context.Context, profile *models.ApplicantProfile, lender *models.LenderRecord) (string, error)
}

// AssessorFunc adapts a plain function to the Assessor interface.
type AssessorFunc func(ctx context.Context, profile *models.ApplicantProfile, lender *models.LenderRecord) (string, error)

func (f AssessorFunc) Assess(ctx context.Context, profile *models.ApplicantProfile, lender *models.LenderRecord) (string, error) {
	return f(ctx, profile, lender)
}
