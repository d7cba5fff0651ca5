package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spigell/resume-gate/internal/applicant"
	"github.com/spigell/resume-gate/internal/policy"
)

func addProfileFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("resume", "r", "", "path to the resume file (PDF, DOC or DOCX)")
	cmd.Flags().String("name", "", "applicant full name")
	cmd.Flags().String("email", "", "applicant email")
	cmd.Flags().String("github", "", "link to the applicant's repository profile")
	cmd.Flags().String("college", "", "college or university")
	cmd.Flags().String("passing-year", "", "year of graduation")
	cmd.Flags().String("address", "", "postal address")
	cmd.Flags().String("age", "", "applicant age")
	cmd.Flags().String("phone", "", "phone number")
	cmd.Flags().String("skills", "", "comma separated skills")
}

func profileFromFlags(cmd *cobra.Command) applicant.Profile {
	get := func(name string) string {
		value, _ := cmd.Flags().GetString(name)
		return value
	}

	return applicant.Profile{
		Name:        get("name"),
		Email:       get("email"),
		GitHub:      get("github"),
		College:     get("college"),
		PassingYear: get("passing-year"),
		Address:     get("address"),
		Age:         get("age"),
		Phone:       get("phone"),
		Skills:      applicant.SplitSkills(get("skills")),
	}.Normalize()
}

// printResult renders the canonical result either as indented json or as a
// short human readable report.
func printResult(w io.Writer, result policy.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	elig := result.SubmissionEligibility

	fmt.Fprintf(w, "Score:     %d/100 (threshold %d)\n", result.ResumeScore, elig.ScoreThreshold)
	fmt.Fprintf(w, "Decision:  %s\n", result.ShortlistingDecision)
	fmt.Fprintf(w, "Verdict:   %s\n", elig.Summary)

	fb := result.DetailedFeedback
	fmt.Fprintf(w, "\nFeedback:\n")
	fmt.Fprintf(w, "  technical skills  %3d\n", fb.TechnicalSkills)
	fmt.Fprintf(w, "  experience        %3d\n", fb.Experience)
	fmt.Fprintf(w, "  education         %3d\n", fb.Education)
	fmt.Fprintf(w, "  project work      %3d\n", fb.ProjectWork)
	fmt.Fprintf(w, "  communication     %3d\n", fb.Communication)

	printList(w, "Strengths", result.KeyInsights.Strengths)
	printList(w, "Gaps", result.KeyInsights.Gaps)
	printList(w, "Matched skills", result.KeyInsights.MatchedSkills)
	printList(w, "Missing skills", result.KeyInsights.MissingSkills)
	printList(w, "Recommendations", result.Recommendations)

	if elig.IsBlocked {
		printList(w, "Blocked because", elig.BlockingReasons)
	}
	return nil
}

func printList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", strings.TrimSpace(item))
	}
}
