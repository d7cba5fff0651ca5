package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-gate/internal/applicant"
	"github.com/spigell/resume-gate/internal/extract"
	"github.com/spigell/resume-gate/internal/pipeline"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a resume against the job listing and print the verdict",
	Long: "Analyze a resume against the job listing and print the verdict.\n" +
		"With --json the result is printed as json and logs go to stderr.",
	Run: func(cmd *cobra.Command, _ []string) {
		analyze(cmd)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	addProfileFlags(analyzeCmd)
}

func analyze(cmd *cobra.Command) {
	ctx := context.Background()
	logger, config := setup(true)

	resume, _ := cmd.Flags().GetString("resume")
	doc, err := loadResume(resume, config.Extractor.MaxFileSize)
	if err != nil {
		logger.Fatal("loading the resume", zap.Error(err))
	}

	profile := profileFromFlags(cmd)
	warnProfile(profile, logger)

	pipe, err := newPipeline(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the pipeline", zap.Error(err))
	}

	outcome, err := pipe.Analyze(ctx, pipeline.Request{Document: doc, Profile: profile})
	if err != nil {
		logger.Fatal("analyzing the resume", zap.Error(err))
	}

	if err := printResult(cmd.OutOrStdout(), outcome.Result, viper.GetBool("json")); err != nil {
		logger.Fatal("printing the result", zap.Error(err))
	}
}

func loadResume(path string, maxSize int64) (*extract.Document, error) {
	if path == "" {
		return nil, errors.New("--resume is required")
	}

	doc, err := extract.FromPath(path)
	if err != nil {
		return nil, err
	}
	if err := extract.Validate(doc, maxSize); err != nil {
		return nil, err
	}
	return doc, nil
}

// warnProfile reports malformed values. They never stop the analysis; the
// eligibility verdict decides what blocks submission.
func warnProfile(profile applicant.Profile, logger *zap.Logger) {
	var verrs applicant.ValidationErrors
	if err := applicant.Validate(profile); errors.As(err, &verrs) {
		for field, msg := range verrs {
			logger.Warn("profile field is not valid", zap.String("field", field), zap.String("reason", msg))
		}
	}
}
