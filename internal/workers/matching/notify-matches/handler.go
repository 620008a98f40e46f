// internal/workers/matching/notify-matches/handler.go
package notifymatches

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	commonaws "loanmatch-workers/internal/common/aws"
	"loanmatch-workers/internal/common/errors"
	"loanmatch-workers/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "notify-matches"
)

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

type Handler struct {
	config     *Config
	logger     logger.Logger
	errHandler *errors.ErrorHandler
	sesClient  SESService
	snsClient  SNSService
}

func NewHandler(config *Config, log logger.Logger) (*Handler, error) {
	ctx := context.Background()

	sesClient, err := commonaws.NewSESClient(ctx, config.AWSRegion)
	if err != nil {
		return nil, fmt.Errorf("init SES client: %w", err)
	}
	snsClient, err := commonaws.NewSNSClient(ctx, config.AWSRegion)
	if err != nil {
		return nil, fmt.Errorf("init SNS client: %w", err)
	}

	return NewHandlerWithClients(config, sesClient, snsClient, log), nil
}

// NewHandlerWithClients wires explicit SES/SNS clients, used by tests.
func NewHandlerWithClients(config *Config, sesClient SESService, snsClient SNSService, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		logger:     scoped,
		errHandler: errors.NewErrorHandler(scoped),
		sesClient:  sesClient,
		snsClient:  snsClient,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		// Retryable codes fail the job with retries left; only business
		// errors surface as terminal BPMN errors.
		h.errHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	output := &Output{
		NotificationID: uuid.New().String(),
		Channels:       []string{},
		SentAt:         time.Now().UTC().Format(time.RFC3339),
	}

	emailWanted := h.config.EmailEnabled && input.ApplicantEmail != ""
	smsWanted := h.smsWanted(input)

	if !emailWanted && !smsWanted {
		output.Status = StatusSkipped
		h.logger.Info("no notification channel applicable", map[string]interface{}{
			"batchId": input.BatchID,
		})
		return output, nil
	}

	var firstErr error

	if emailWanted {
		if err := h.sendEmail(ctx, input); err != nil {
			firstErr = errors.NewNotificationSendFailedError("email", err)
		} else {
			output.Channels = append(output.Channels, "email")
		}
	}

	if smsWanted {
		if err := h.sendSMS(ctx, input); err != nil {
			if firstErr == nil {
				firstErr = errors.NewNotificationSendFailedError("sms", err)
			}
		} else {
			output.Channels = append(output.Channels, "sms")
		}
	}

	switch {
	case len(output.Channels) == 0:
		return nil, firstErr
	case firstErr != nil:
		output.Status = StatusPartial
	default:
		output.Status = StatusSent
	}

	h.logger.Info("match notification sent", map[string]interface{}{
		"notificationId": output.NotificationID,
		"batchId":        input.BatchID,
		"channels":       output.Channels,
		"status":         output.Status,
	})

	return output, nil
}

func (h *Handler) smsWanted(input *Input) bool {
	if !h.config.SMSEnabled || input.ApplicantPhone == "" {
		return false
	}
	top := input.Summary.TopMatch
	return top != nil && top.MatchPercentage >= h.config.SMSMinMatchPercentage
}

func (h *Handler) sendEmail(ctx context.Context, input *Input) error {
	subject, body := buildEmail(input)

	_, err := h.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(h.config.FromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{input.ApplicantEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
	})
	if err != nil {
		h.logger.Error("SES send failed", map[string]interface{}{
			"batchId": input.BatchID,
			"error":   err.Error(),
		})
	}
	return err
}

func (h *Handler) sendSMS(ctx context.Context, input *Input) error {
	top := input.Summary.TopMatch
	message := fmt.Sprintf(
		"Great news! %s matched your study loan profile at %.0f%%. Check your email for the full lender list.",
		top.LenderName, top.MatchPercentage,
	)

	_, err := h.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(input.ApplicantPhone),
		Message:     aws.String(message),
	})
	if err != nil {
		h.logger.Error("SNS publish failed", map[string]interface{}{
			"batchId": input.BatchID,
			"error":   err.Error(),
		})
	}
	return err
}

func buildEmail(input *Input) (subject, body string) {
	name := input.ApplicantName
	if name == "" {
		name = "there"
	}

	if input.Summary.EligibleCount == 0 {
		subject = "Your lender matching results"
	} else {
		subject = fmt.Sprintf("%d lenders matched your study loan profile", input.Summary.EligibleCount)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	fmt.Fprintf(&b, "We evaluated your profile against %d lenders.\n\n", input.Summary.TotalLenders)

	if len(input.Eligible) > 0 {
		b.WriteString("Eligible lenders:\n")
		for _, m := range input.Eligible {
			fmt.Fprintf(&b, "  - %s (%.0f%% match)\n", m.LenderName, m.MatchPercentage)
		}
		b.WriteString("\n")
	}
	if len(input.Borderline) > 0 {
		b.WriteString("Borderline lenders worth a closer look:\n")
		for _, m := range input.Borderline {
			fmt.Fprintf(&b, "  - %s (%.0f%% match)\n", m.LenderName, m.MatchPercentage)
		}
		b.WriteString("\n")
	}
	if len(input.Eligible) == 0 && len(input.Borderline) == 0 {
		b.WriteString("No lender matched your profile this time. Improving your credit score or adding a co-borrower can change that.\n\n")
	}

	b.WriteString("Regards,\nThe Loan Matching Team\n")
	return subject, b.String()
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
	})

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
