package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"loanmatch-workers/internal/models"
)

const defaultModel = "gemini-2.0-flash"

// contentGenerator is the narrow slice of the GenAI client the assessor
// needs, kept as an interface so tests can substitute canned generators.
type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// GeminiAssessor implements Assessor on top of the Gemini API.
type GeminiAssessor struct {
	generator contentGenerator
}

// NewGeminiAssessor builds an assessor backed by a real Gemini client.
func NewGeminiAssessor(ctx context.Context, apiKey, model string) (*GeminiAssessor, error) {
	gen, err := newGenerator(ctx, apiKey, model)
	if err != nil {
		return nil, err
	}
	return &GeminiAssessor{generator: gen}, nil
}

// NewGeminiAssessorWithGenerator wires a custom generator, used by tests.
func NewGeminiAssessorWithGenerator(generator contentGenerator) *GeminiAssessor {
	return &GeminiAssessor{generator: generator}
}

func (a *GeminiAssessor) Assess(ctx context.Context, profile *models.ApplicantProfile, lender *models.LenderRecord) (string, error) {
	profileJSON, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal applicant profile: %w", err)
	}
	criteriaJSON, err := json.MarshalIndent(lender.LoanConfig, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal lender criteria: %w", err)
	}

	return a.generator.GenerateContent(ctx, buildPrompt(string(profileJSON), string(criteriaJSON)))
}

func buildPrompt(profileJSON, criteriaJSON string) string {
	var parts []string

	parts = append(parts, "You are a study-loan underwriting analyst. Assess how well the applicant matches the lender's eligibility criteria.")
	parts = append(parts, "\nApplicant Profile:")
	parts = append(parts, profileJSON)
	parts = append(parts, "\nLender Criteria:")
	parts = append(parts, criteriaJSON)
	parts = append(parts, "\nInstructions:")
	parts = append(parts, "- Respond with ONLY a JSON object, no prose before or after")
	parts = append(parts, `- Fields: matchPercentage (0-100 number), eligibilityStatus ("eligible"|"borderline"|"not_eligible"), criteriaAnalysis (object keyed by criterion), strengths (array of strings), gaps (array of strings), recommendations (array of strings), estimatedROI (string), confidence (0.0-1.0 number)`)
	parts = append(parts, "- Treat missing applicant data as failing the corresponding criterion")

	return strings.Join(parts, "\n")
}

// generator wraps the GenAI client for simple prompt-in, text-out calls.
type generator struct {
	client    *genai.Client
	modelName string
}

func newGenerator(ctx context.Context, apiKey, model string) (*generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	return &generator{client: client, modelName: model}, nil
}

func (g *generator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}
