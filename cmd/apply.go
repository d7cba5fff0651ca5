package cmd

import (
	"context"
	"errors"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/resume-gate/internal/applicant"
	"github.com/spigell/resume-gate/internal/pipeline"
	"github.com/spigell/resume-gate/internal/submission"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var confirmPrompt = promptui.Select{
	Label: "Submit the application?",
	Items: []string{PromptYes, PromptNo},
}

// profileField binds one form field to a prompt.
type profileField struct {
	key   string
	label string
	get   func(applicant.Profile) string
	set   func(*applicant.Profile, string)
}

var profileFields = []profileField{
	{"name", "Full name", func(p applicant.Profile) string { return p.Name }, func(p *applicant.Profile, v string) { p.Name = v }},
	{"email", "Email", func(p applicant.Profile) string { return p.Email }, func(p *applicant.Profile, v string) { p.Email = v }},
	{"github", "GitHub profile", func(p applicant.Profile) string { return p.GitHub }, func(p *applicant.Profile, v string) { p.GitHub = v }},
	{"college", "College", func(p applicant.Profile) string { return p.College }, func(p *applicant.Profile, v string) { p.College = v }},
	{"passingYear", "Passing year", func(p applicant.Profile) string { return p.PassingYear }, func(p *applicant.Profile, v string) { p.PassingYear = v }},
	{"address", "Address", func(p applicant.Profile) string { return p.Address }, func(p *applicant.Profile, v string) { p.Address = v }},
	{"age", "Age", func(p applicant.Profile) string { return p.Age }, func(p *applicant.Profile, v string) { p.Age = v }},
	{"phone", "Phone", func(p applicant.Profile) string { return p.Phone }, func(p *applicant.Profile, v string) { p.Phone = v }},
	{"skills", "Skills (comma separated)", func(p applicant.Profile) string { return p.SkillsLine() }, func(p *applicant.Profile, v string) { p.Skills = applicant.SplitSkills(v) }},
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Fill in the application interactively, analyze the resume and submit it if eligible",
	Run: func(cmd *cobra.Command, _ []string) {
		apply(cmd)
	},
}

func init() {
	rootCmd.AddCommand(applyCmd)
	addProfileFlags(applyCmd)

	applyCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation if the application can be submitted")
}

func apply(cmd *cobra.Command) {
	ctx := context.Background()
	logger, config := setup(false)

	resume, _ := cmd.Flags().GetString("resume")
	doc, err := loadResume(resume, config.Extractor.MaxFileSize)
	if err != nil {
		logger.Fatal("loading the resume", zap.Error(err))
	}

	profile, err := askProfile(profileFromFlags(cmd))
	if err != nil {
		logger.Fatal("exiting", zap.Error(err))
	}

	pipe, err := newPipeline(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the pipeline", zap.Error(err))
	}

	outcome, err := pipe.Analyze(ctx, pipeline.Request{Document: doc, Profile: profile})
	if err != nil {
		logger.Fatal("analyzing the resume", zap.Error(err))
	}

	if err := printResult(cmd.OutOrStdout(), outcome.Result, false); err != nil {
		logger.Fatal("printing the result", zap.Error(err))
	}

	elig := outcome.Result.SubmissionEligibility
	if !elig.CanSubmit {
		logger.Info("exiting", zap.String("reason", *elig.BlockingMessage))
		return
	}

	submitter, err := newSubmitter(config, logger)
	if err != nil {
		logger.Fatal("building the submission client", zap.Error(err))
	}
	if submitter == nil {
		logger.Fatal("submission is not configured", zap.String("hint", "set submission.endpoint in the configuration file"))
	}

	if autoApprove, _ := cmd.Flags().GetBool("auto-approve"); !autoApprove {
		_, answer, err := confirmPrompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		if answer != PromptYes {
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	receipt, err := submitter.Submit(ctx, submission.Application{Profile: profile, Document: doc})
	if err != nil {
		logger.Fatal("submitting the application", zap.Error(err))
	}

	if !receipt.Delivered {
		logger.Warn("application was not delivered", zap.String("error", receipt.Error))
		return
	}

	logger.Info("successfully submitted the application",
		zap.String("name", profile.Name),
		zap.Int("score", outcome.Result.ResumeScore),
	)
}

// askProfile walks every form field, offering the current value as default.
func askProfile(profile applicant.Profile) (applicant.Profile, error) {
	for _, field := range profileFields {
		prompt := promptui.Prompt{
			Label:     field.label,
			Default:   field.get(profile),
			AllowEdit: true,
			Validate:  fieldValidator(profile, field),
		}

		value, err := prompt.Run()
		if err != nil {
			return profile, err
		}
		field.set(&profile, strings.TrimSpace(value))
	}

	return profile.Normalize(), nil
}

// fieldValidator reports only the error of the field being edited, so a
// required field further down the form does not block earlier prompts.
func fieldValidator(profile applicant.Profile, field profileField) promptui.ValidateFunc {
	return func(input string) error {
		candidate := profile
		field.set(&candidate, strings.TrimSpace(input))

		var verrs applicant.ValidationErrors
		if err := applicant.Validate(candidate); errors.As(err, &verrs) {
			if msg, ok := verrs[field.key]; ok {
				return errors.New(msg)
			}
		}
		return nil
	}
}
