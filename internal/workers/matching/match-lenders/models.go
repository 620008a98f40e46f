// internal/workers/matching/match-lenders/models.go
package matchlenders

import "loanmatch-workers/internal/models"

// Input carries the applicant profile and the lender set to evaluate.
type Input struct {
	ApplicantProfile *models.ApplicantProfile `json:"applicantProfile"`
	Lenders          []models.LenderRecord    `json:"lenders"`
}

// Output is the ranked, bucketed outcome of one matching run.
type Output struct {
	BatchID string `json:"batchId"`
	models.BatchResult
}
