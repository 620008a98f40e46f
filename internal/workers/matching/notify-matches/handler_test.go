// internal/workers/matching/notify-matches/handler_test.go
package notifymatches

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonerrors "loanmatch-workers/internal/common/errors"
	"loanmatch-workers/internal/common/logger"
	"loanmatch-workers/internal/models"
)

// ==========================
// Mocks
// ==========================

type mockSES struct {
	input *ses.SendEmailInput
	err   error
}

func (m *mockSES) SendEmail(_ context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	m.input = input
	if m.err != nil {
		return nil, m.err
	}
	return &ses.SendEmailOutput{}, nil
}

type mockSNS struct {
	input *sns.PublishInput
	err   error
}

func (m *mockSNS) Publish(_ context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	m.input = input
	if m.err != nil {
		return nil, m.err
	}
	return &sns.PublishOutput{}, nil
}

// ==========================
// Fixtures
// ==========================

func matchedInput() *Input {
	top := &models.MatchResult{
		LenderID:          "lender-001",
		LenderName:        "Acme Credit",
		MatchPercentage:   91,
		EligibilityStatus: models.TierEligible,
	}
	return &Input{
		ApplicantName:  "Priya",
		ApplicantEmail: "priya@example.com",
		ApplicantPhone: "+911234567890",
		BatchID:        "batch-1",
		Eligible:       []*models.MatchResult{top},
		Borderline: []*models.MatchResult{
			{LenderID: "lender-002", LenderName: "Borderline Bank", MatchPercentage: 68, EligibilityStatus: models.TierBorderline},
		},
		Summary: models.MatchSummary{
			TotalLenders:     3,
			EligibleCount:    1,
			BorderlineCount:  1,
			NotEligibleCount: 1,
			TopMatch:         top,
		},
	}
}

func smsConfig() *Config {
	cfg := LoadConfig()
	cfg.FromEmail = "noreply@loanmatch.example"
	cfg.SMSEnabled = true
	return cfg
}

// ==========================
// Execute Tests
// ==========================

func TestExecute_EmailOnly(t *testing.T) {
	sesMock := &mockSES{}
	snsMock := &mockSNS{}
	cfg := LoadConfig()
	cfg.FromEmail = "noreply@loanmatch.example"

	h := NewHandlerWithClients(cfg, sesMock, snsMock, logger.NewNoOpLogger())

	output, err := h.Execute(context.Background(), matchedInput())
	require.NoError(t, err)

	assert.Equal(t, StatusSent, output.Status)
	assert.Equal(t, []string{"email"}, output.Channels)
	assert.NotEmpty(t, output.NotificationID)

	require.NotNil(t, sesMock.input)
	assert.Equal(t, "noreply@loanmatch.example", *sesMock.input.Source)
	assert.Equal(t, []string{"priya@example.com"}, sesMock.input.Destination.ToAddresses)
	assert.Contains(t, *sesMock.input.Message.Subject.Data, "1 lenders matched")

	body := *sesMock.input.Message.Body.Text.Data
	assert.Contains(t, body, "Hi Priya")
	assert.Contains(t, body, "Acme Credit (91% match)")
	assert.Contains(t, body, "Borderline Bank (68% match)")

	assert.Nil(t, snsMock.input, "SMS must stay disabled by default")
}

func TestExecute_SMSForStrongTopMatch(t *testing.T) {
	sesMock := &mockSES{}
	snsMock := &mockSNS{}
	h := NewHandlerWithClients(smsConfig(), sesMock, snsMock, logger.NewNoOpLogger())

	output, err := h.Execute(context.Background(), matchedInput())
	require.NoError(t, err)

	assert.Equal(t, StatusSent, output.Status)
	assert.Equal(t, []string{"email", "sms"}, output.Channels)

	require.NotNil(t, snsMock.input)
	assert.Equal(t, "+911234567890", *snsMock.input.PhoneNumber)
	assert.Contains(t, *snsMock.input.Message, "Acme Credit")
}

func TestExecute_NoSMSBelowThreshold(t *testing.T) {
	snsMock := &mockSNS{}
	h := NewHandlerWithClients(smsConfig(), &mockSES{}, snsMock, logger.NewNoOpLogger())

	input := matchedInput()
	input.Summary.TopMatch.MatchPercentage = 72

	output, err := h.Execute(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, []string{"email"}, output.Channels)
	assert.Nil(t, snsMock.input)
}

func TestExecute_SkippedWithoutContact(t *testing.T) {
	h := NewHandlerWithClients(smsConfig(), &mockSES{}, &mockSNS{}, logger.NewNoOpLogger())

	input := matchedInput()
	input.ApplicantEmail = ""
	input.ApplicantPhone = ""

	output, err := h.Execute(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, StatusSkipped, output.Status)
	assert.Empty(t, output.Channels)
}

func TestExecute_EmailFailureIsRetryable(t *testing.T) {
	sesMock := &mockSES{err: errors.New("ses throttled")}
	cfg := LoadConfig()
	cfg.FromEmail = "noreply@loanmatch.example"
	h := NewHandlerWithClients(cfg, sesMock, &mockSNS{}, logger.NewNoOpLogger())

	_, err := h.Execute(context.Background(), matchedInput())

	require.Error(t, err)
	stdErr, ok := err.(*commonerrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, commonerrors.ErrCodeNotificationSendFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

func TestExecute_PartialWhenSMSFails(t *testing.T) {
	snsMock := &mockSNS{err: errors.New("sns unavailable")}
	h := NewHandlerWithClients(smsConfig(), &mockSES{}, snsMock, logger.NewNoOpLogger())

	output, err := h.Execute(context.Background(), matchedInput())
	require.NoError(t, err)

	assert.Equal(t, StatusPartial, output.Status)
	assert.Equal(t, []string{"email"}, output.Channels)
}

func TestBuildEmail_NoMatches(t *testing.T) {
	input := &Input{
		ApplicantEmail: "x@example.com",
		Summary:        models.MatchSummary{TotalLenders: 5},
	}

	subject, body := buildEmail(input)

	assert.Equal(t, "Your lender matching results", subject)
	assert.Contains(t, body, "Hi there")
	assert.Contains(t, body, "No lender matched your profile")
}
