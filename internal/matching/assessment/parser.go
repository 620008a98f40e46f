package assessment

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"loanmatch-workers/internal/models"
)

// assessmentSchema constrains field types without requiring any field:
// the evaluator defaults missing matchPercentage/eligibilityStatus itself.
var assessmentSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"matchPercentage":   map[string]interface{}{"type": "number"},
		"eligibilityStatus": map[string]interface{}{"type": "string"},
		"criteriaAnalysis":  map[string]interface{}{"type": "object"},
		"strengths":         map[string]interface{}{"type": "array"},
		"gaps":              map[string]interface{}{"type": "array"},
		"recommendations":   map[string]interface{}{"type": "array"},
		"estimatedROI":      map[string]interface{}{"type": "string"},
		"confidence":        map[string]interface{}{"type": "number"},
	},
}

// ParseStructured interprets the raw evaluator response as a structured
// assessment. It strips Markdown code fences, extracts the first balanced
// JSON object if the response is not pure JSON, and validates field types
// against the expected contract.
func ParseStructured(raw string) (*models.StructuredAssessment, error) {
	cleaned := stripCodeFences(strings.TrimSpace(raw))
	if candidate, ok := extractFirstObject(cleaned); ok {
		cleaned = candidate
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse assessment response: %w", err)
	}

	schemaLoader := gojsonschema.NewGoLoader(assessmentSchema)
	documentLoader := gojsonschema.NewGoLoader(data)
	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("validate assessment response: %w", err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return nil, fmt.Errorf("assessment response violates contract: %s", strings.Join(details, "; "))
	}

	return &models.StructuredAssessment{
		MatchPercentage:   coerceFloat(data["matchPercentage"]),
		EligibilityStatus: coerceString(data["eligibilityStatus"]),
		CriteriaAnalysis:  coerceObject(data["criteriaAnalysis"]),
		Strengths:         coerceStringSlice(data["strengths"]),
		Gaps:              coerceStringSlice(data["gaps"]),
		Recommendations:   coerceStringSlice(data["recommendations"]),
		EstimatedROI:      coerceString(data["estimatedROI"]),
		Confidence:        coerceFloat(data["confidence"]),
	}, nil
}

// stripCodeFences removes surrounding Markdown fences like ```json ... ```.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(strings.Trim(s, "`"))
}

// extractFirstObject returns the first balanced {...} substring, which lets
// the parser tolerate prose wrapped around the JSON payload.
func extractFirstObject(s string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}

func coerceFloat(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	default:
		return 0
	}
}

func coerceString(v interface{}) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func coerceObject(v interface{}) map[string]interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	return nil
}

func coerceStringSlice(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch val := item.(type) {
		case string:
			out = append(out, val)
		default:
			b, err := json.Marshal(val)
			if err == nil {
				out = append(out, string(b))
			}
		}
	}
	return out
}
