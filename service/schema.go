package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"speech-coach/constant"
	"speech-coach/dto"
)

// buildFeedbackJSONSchema describes the only document shape we accept from
// the scoring provider. The provider's output is untrusted free text, so
// everything is validated before any field reaches the database.
func buildFeedbackJSONSchema() map[string]any {
	labels := make([]any, 0, len(constant.OverallLabels))
	for _, l := range constant.OverallLabels {
		labels = append(labels, l)
	}

	scoreProps := map[string]any{}
	explanationProps := map[string]any{}
	for _, dim := range constant.ScoreDimensions {
		scoreProps[dim] = map[string]any{"type": "number", "minimum": 1, "maximum": 10}
		explanationProps[dim] = map[string]any{"type": "string", "minLength": 1}
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required": []string{
			"overall_score", "overall_label", "scores",
			"score_explanations", "feedback_points", "summary",
		},
		"properties": map[string]any{
			"overall_score": map[string]any{"type": "number", "minimum": 1, "maximum": 10},
			"overall_label": map[string]any{"enum": labels},
			"scores": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             constant.ScoreDimensions,
				"properties":           scoreProps,
			},
			"score_explanations": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             constant.ScoreDimensions,
				"properties":           explanationProps,
			},
			"feedback_points": map[string]any{
				"type":     "array",
				"minItems": 3,
				"maxItems": 5,
				"items":    map[string]any{"type": "string", "minLength": 1},
			},
			"summary": map[string]any{"type": "string", "minLength": 1},
		},
	}
}

func validateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	return schema.Validate(v)
}

// ParseSpeechFeedback extracts and validates the scoring provider's JSON
// answer. Markdown fences and surrounding prose are tolerated; anything
// that fails schema validation is rejected.
func ParseSpeechFeedback(raw string) (*dto.SpeechFeedback, error) {
	content := strings.TrimSpace(raw)
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in scoring response")
	}
	doc := []byte(content[start : end+1])

	if err := validateJSONAgainstSchema(buildFeedbackJSONSchema(), doc); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	feedback := &dto.SpeechFeedback{}
	if err := json.Unmarshal(doc, feedback); err != nil {
		return nil, fmt.Errorf("unmarshal feedback: %w", err)
	}
	return feedback, nil
}
