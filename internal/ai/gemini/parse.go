package gemini

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"github.com/xeipuuv/gojsonschema"

	"github.com/spigell/resume-gate/internal/ai"
)

//go:embed schema.json
var analysisSchemaJSON string

var analysisSchema = mustCompileSchema(analysisSchemaJSON)

func mustCompileSchema(source string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
	if err != nil {
		panic(fmt.Sprintf("compile analysis schema: %v", err))
	}
	return schema
}

// ParseAnalysis decodes model text into a RawAnalysis. Code fences around the
// JSON are removed first. Any other deviation from a JSON object is a
// *ai.SchemaError.
func ParseAnalysis(text string) (*ai.RawAnalysis, error) {
	cleaned := stripCodeFence(text)
	if cleaned == "" {
		return nil, &ai.SchemaError{Message: "model returned no content"}
	}

	var document any
	if err := json.Unmarshal([]byte(cleaned), &document); err != nil {
		return nil, &ai.SchemaError{Message: "model output is not valid json", Cause: err}
	}

	payload, ok := document.(map[string]any)
	if !ok {
		return nil, &ai.SchemaError{Message: "model output is not a json object"}
	}

	result, err := analysisSchema.Validate(gojsonschema.NewGoLoader(payload))
	if err != nil {
		return nil, &ai.SchemaError{Message: "validate model output", Cause: err}
	}
	if !result.Valid() {
		fields := make([]string, 0, len(result.Errors()))
		for _, fieldErr := range result.Errors() {
			fields = append(fields, fmt.Sprintf("%s: %s", fieldErr.Field(), fieldErr.Description()))
		}
		return nil, &ai.SchemaError{Message: "unexpected field types", Fields: fields}
	}

	return decodeAnalysis(payload)
}

func decodeAnalysis(payload map[string]any) (*ai.RawAnalysis, error) {
	var lists struct {
		KeyInsights     ai.KeyInsights `mapstructure:"keyInsights"`
		Recommendations []string       `mapstructure:"recommendations"`
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &lists,
	})
	if err != nil {
		return nil, fmt.Errorf("create analysis decoder: %w", err)
	}
	if err := decoder.Decode(payload); err != nil {
		return nil, &ai.SchemaError{Message: "decode analysis lists", Cause: err}
	}

	insights := lists.KeyInsights
	feedback, _ := payload["detailedFeedback"].(map[string]any)

	return &ai.RawAnalysis{
		ResumeScore:          coerceScore(payload["resumeScore"]),
		ShortlistingDecision: coerceString(payload["shortlistingDecision"]),
		KeyInsights: ai.KeyInsights{
			Strengths:     cleanList(insights.Strengths),
			Gaps:          cleanList(insights.Gaps),
			MatchedSkills: cleanList(insights.MatchedSkills),
			MissingSkills: cleanList(insights.MissingSkills),
		},
		DetailedFeedback: ai.Feedback{
			TechnicalSkills: coerceScore(feedback["technicalSkills"]),
			Experience:      coerceScore(feedback["experience"]),
			Education:       coerceScore(feedback["education"]),
			ProjectWork:     coerceScore(feedback["projectWork"]),
			Communication:   coerceScore(feedback["communication"]),
		},
		Recommendations: cleanList(lists.Recommendations),
	}, nil
}

func stripCodeFence(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```")
		if nl := strings.IndexByte(raw, '\n'); nl != -1 && isFenceTag(raw[:nl]) {
			raw = raw[nl+1:]
		} else if len(raw) >= 4 && strings.EqualFold(raw[:4], "json") {
			raw = raw[4:]
		}
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func isFenceTag(line string) bool {
	for _, r := range strings.TrimSpace(line) {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// coerceScore accepts numbers and numeric strings such as "72" or "72%".
// Everything else, including NaN and infinities, is nil.
func coerceScore(v any) *float64 {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case int:
		f = float64(val)
	case string:
		trimmed := strings.TrimSuffix(strings.TrimSpace(val), "%")
		parsed, err := strconv.ParseFloat(strings.TrimSpace(trimmed), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", val))
	}
}

func cleanList(items []string) []string {
	cleaned := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			cleaned = append(cleaned, item)
		}
	}
	return cleaned
}
