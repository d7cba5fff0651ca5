// Package policy turns an untrusted model analysis and the applicant's form
// into the one verdict that decides whether an application may be submitted.
package policy

import (
	"fmt"
	"math"
	"strings"

	"github.com/spigell/resume-gate/internal/ai"
)

// ScoreThreshold is the minimum resume score required to submit. It is fixed
// policy and never taken from the model.
const ScoreThreshold = 60

// DefaultRepositoryHost must appear in the repository link.
const DefaultRepositoryHost = "github.com"

// Decision is the shortlisting label derived from the score threshold.
type Decision string

const (
	Recommended    Decision = "RECOMMENDED"
	NotRecommended Decision = "NOT_RECOMMENDED"
)

// Mandatory field names in check order.
const (
	FieldName        = "name"
	FieldEmail       = "email"
	FieldGitHub      = "github"
	FieldEducation   = "education"
	FieldPassingYear = "passingYear"
	FieldResume      = "resume"
)

var fieldOrder = []string{FieldName, FieldEmail, FieldGitHub, FieldEducation, FieldPassingYear, FieldResume}

// Fields are the applicant values the policy checks.
type Fields struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	GitHub      string `json:"github"`
	Education   string `json:"education"`
	PassingYear string `json:"passingYear"`
}

// Feedback holds the clamped sub-scores.
type Feedback struct {
	TechnicalSkills int `json:"technicalSkills"`
	Experience      int `json:"experience"`
	Education       int `json:"education"`
	ProjectWork     int `json:"projectWork"`
	Communication   int `json:"communication"`
}

// Eligibility is the submit or block verdict.
type Eligibility struct {
	MeetsScoreThreshold   bool            `json:"meetsScoreThreshold"`
	HasAllMandatoryFields bool            `json:"hasAllMandatoryFields"`
	MissingFields         []string        `json:"missingFields"`
	FieldValidation       map[string]bool `json:"fieldValidation"`
	CanSubmit             bool            `json:"canSubmit"`
	IsBlocked             bool            `json:"isBlocked"`
	BlockingMessage       *string         `json:"blockingMessage"`
	BlockingReasons       []string        `json:"blockingReasons"`
	ScoreThreshold        int             `json:"scoreThreshold"`
	Summary               string          `json:"summary"`
}

// Result is the canonical analysis outcome. Only SubmissionEligibility may be
// used to gate submission.
type Result struct {
	ResumeScore           int            `json:"resumeScore"`
	ShortlistingDecision  Decision       `json:"shortlistingDecision"`
	KeyInsights           ai.KeyInsights `json:"keyInsights"`
	DetailedFeedback      Feedback       `json:"detailedFeedback"`
	Recommendations       []string       `json:"recommendations"`
	SubmissionEligibility Eligibility    `json:"submissionEligibility"`
}

// Engine evaluates analyses. The zero value checks against DefaultRepositoryHost.
type Engine struct {
	repositoryHost string
}

// NewEngine returns an engine checking repository links against repositoryHost.
func NewEngine(repositoryHost string) *Engine {
	return &Engine{repositoryHost: strings.TrimSpace(repositoryHost)}
}

var defaultEngine = &Engine{}

// Evaluate applies the default engine.
func Evaluate(raw *ai.RawAnalysis, fields Fields, resumePresent bool) Result {
	return defaultEngine.Evaluate(raw, fields, resumePresent)
}

// Evaluate is a pure function of its inputs. A nil raw analysis scores 0.
func (e *Engine) Evaluate(raw *ai.RawAnalysis, fields Fields, resumePresent bool) Result {
	if raw == nil {
		raw = &ai.RawAnalysis{}
	}

	score := Clamp(raw.ResumeScore)
	meetsThreshold := score >= ScoreThreshold

	decision := NotRecommended
	if meetsThreshold {
		decision = Recommended
	}

	recommendations := make([]string, len(raw.Recommendations))
	copy(recommendations, raw.Recommendations)

	return Result{
		ResumeScore:          score,
		ShortlistingDecision: decision,
		KeyInsights:          copyInsights(raw.KeyInsights),
		DetailedFeedback: Feedback{
			TechnicalSkills: Clamp(raw.DetailedFeedback.TechnicalSkills),
			Experience:      Clamp(raw.DetailedFeedback.Experience),
			Education:       Clamp(raw.DetailedFeedback.Education),
			ProjectWork:     Clamp(raw.DetailedFeedback.ProjectWork),
			Communication:   Clamp(raw.DetailedFeedback.Communication),
		},
		Recommendations:       recommendations,
		SubmissionEligibility: e.Eligibility(score, fields, resumePresent),
	}
}

// Eligibility computes the submission verdict for an already clamped score.
func (e *Engine) Eligibility(score int, fields Fields, resumePresent bool) Eligibility {
	validation := e.ValidateFields(fields, resumePresent)

	missing := make([]string, 0, len(fieldOrder))
	for _, field := range fieldOrder {
		if !validation[field] {
			missing = append(missing, field)
		}
	}

	meetsThreshold := score >= ScoreThreshold
	hasAllFields := len(missing) == 0
	canSubmit := meetsThreshold && hasAllFields

	reasons := make([]string, 0, 2)
	if !meetsThreshold {
		reasons = append(reasons, fmt.Sprintf(
			"Resume score %d%% is below the minimum required threshold of %d%%", score, ScoreThreshold))
	}
	if !hasAllFields {
		reasons = append(reasons, "Missing mandatory fields: "+strings.Join(missing, ", "))
	}

	var message *string
	switch {
	case canSubmit:
	case !meetsThreshold:
		msg := fmt.Sprintf(
			"Application cannot be submitted. Your resume score of %d%% does not meet the minimum requirement of %d%%.",
			score, ScoreThreshold)
		message = &msg
	default:
		msg := "Application cannot be submitted due to missing mandatory fields."
		message = &msg
	}

	summary := "Application ready for submission"
	if !canSubmit {
		summary = "Application blocked: " + strings.Join(reasons, "; ")
	}

	return Eligibility{
		MeetsScoreThreshold:   meetsThreshold,
		HasAllMandatoryFields: hasAllFields,
		MissingFields:         missing,
		FieldValidation:       validation,
		CanSubmit:             canSubmit,
		IsBlocked:             !canSubmit,
		BlockingMessage:       message,
		BlockingReasons:       reasons,
		ScoreThreshold:        ScoreThreshold,
		Summary:               summary,
	}
}

// ValidateFields reports validity per mandatory field.
func (e *Engine) ValidateFields(fields Fields, resumePresent bool) map[string]bool {
	host := e.repositoryHost
	if host == "" {
		host = DefaultRepositoryHost
	}

	email := strings.TrimSpace(fields.Email)
	github := strings.TrimSpace(fields.GitHub)

	return map[string]bool{
		FieldName:        present(fields.Name),
		FieldEmail:       email != "" && strings.Contains(email, "@"),
		FieldGitHub:      github != "" && strings.Contains(strings.ToLower(github), strings.ToLower(host)),
		FieldEducation:   present(fields.Education),
		FieldPassingYear: present(fields.PassingYear),
		FieldResume:      resumePresent,
	}
}

// Clamp bounds an untrusted score to [0,100] and drops the fraction. A nil
// score is 0.
func Clamp(score *float64) int {
	if score == nil || math.IsNaN(*score) {
		return 0
	}
	return int(math.Floor(math.Max(0, math.Min(100, *score))))
}

func present(value string) bool {
	return strings.TrimSpace(value) != ""
}

func copyInsights(k ai.KeyInsights) ai.KeyInsights {
	dup := func(items []string) []string {
		out := make([]string, len(items))
		copy(out, items)
		return out
	}
	return ai.KeyInsights{
		Strengths:     dup(k.Strengths),
		Gaps:          dup(k.Gaps),
		MatchedSkills: dup(k.MatchedSkills),
		MissingSkills: dup(k.MissingSkills),
	}
}
