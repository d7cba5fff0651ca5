package ai

import "context"

// KeyInsights are the qualitative lists produced by the model, in model order.
type KeyInsights struct {
	Strengths     []string `json:"strengths" mapstructure:"strengths"`
	Gaps          []string `json:"gaps" mapstructure:"gaps"`
	MatchedSkills []string `json:"matchedSkills" mapstructure:"matchedSkills"`
	MissingSkills []string `json:"missingSkills" mapstructure:"missingSkills"`
}

// Normalize replaces absent lists with empty ones.
func (k KeyInsights) Normalize() KeyInsights {
	return KeyInsights{
		Strengths:     nonNil(k.Strengths),
		Gaps:          nonNil(k.Gaps),
		MatchedSkills: nonNil(k.MatchedSkills),
		MissingSkills: nonNil(k.MissingSkills),
	}
}

// Feedback holds the model's sub-scores. A nil value means the model did not
// give a usable number.
type Feedback struct {
	TechnicalSkills *float64 `json:"technicalSkills"`
	Experience      *float64 `json:"experience"`
	Education       *float64 `json:"education"`
	ProjectWork     *float64 `json:"projectWork"`
	Communication   *float64 `json:"communication"`
}

// RawAnalysis is the decoded model answer. Nothing in it is trusted: the
// score is unclamped and the decision is whatever the model claimed.
type RawAnalysis struct {
	ResumeScore          *float64    `json:"resumeScore"`
	ShortlistingDecision string      `json:"shortlistingDecision"`
	KeyInsights          KeyInsights `json:"keyInsights"`
	DetailedFeedback     Feedback    `json:"detailedFeedback"`
	Recommendations      []string    `json:"recommendations"`
}

// Analyzer sends a rendered prompt to an LLM and returns its decoded answer.
type Analyzer interface {
	RequestAnalysis(ctx context.Context, prompt string) (*RawAnalysis, error)
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
