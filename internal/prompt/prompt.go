package prompt

import (
	"strconv"
	"strings"

	_ "embed"

	"github.com/spigell/resume-gate/internal/policy"
)

//go:embed prompt.md
var template string

const fallbackTemplate = "Job description:\n{{JOB_DESCRIPTION}}\n\nResume:\n{{RESUME_TEXT}}\n\nJSON Response:"

// Build renders the analysis prompt. Placeholders are substituted in one pass,
// so template markers inside the inputs are left as they are.
func Build(resumeText, jobDescription string) string {
	tmpl := template
	if strings.TrimSpace(tmpl) == "" {
		tmpl = fallbackTemplate
	}

	r := strings.NewReplacer(
		"{{JOB_DESCRIPTION}}", strings.TrimSpace(jobDescription),
		"{{RESUME_TEXT}}", strings.TrimSpace(resumeText),
		"{{THRESHOLD}}", strconv.Itoa(policy.ScoreThreshold),
	)
	return r.Replace(tmpl)
}
