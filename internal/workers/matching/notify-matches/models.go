// internal/workers/matching/notify-matches/models.go
package notifymatches

import "loanmatch-workers/internal/models"

// Notification statuses reported back to the process.
const (
	StatusSent    = "sent"
	StatusPartial = "partial"
	StatusSkipped = "skipped"
)

// Input carries the applicant's contact details and the matching outcome
// produced by the match-lenders worker.
type Input struct {
	ApplicantName  string                `json:"applicantName,omitempty"`
	ApplicantEmail string                `json:"applicantEmail"`
	ApplicantPhone string                `json:"applicantPhone,omitempty"`
	BatchID        string                `json:"batchId"`
	Eligible       []*models.MatchResult `json:"eligible"`
	Borderline     []*models.MatchResult `json:"borderline"`
	Summary        models.MatchSummary   `json:"summary"`
}

type Output struct {
	NotificationID string   `json:"notificationId"`
	Status         string   `json:"notificationStatus"`
	Channels       []string `json:"notificationChannels"`
	SentAt         string   `json:"sentAt"`
}
