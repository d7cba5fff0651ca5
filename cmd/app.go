package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-gate/internal/ai"
	"github.com/spigell/resume-gate/internal/ai/gemini"
	"github.com/spigell/resume-gate/internal/extract"
	"github.com/spigell/resume-gate/internal/logger"
	"github.com/spigell/resume-gate/internal/pipeline"
	"github.com/spigell/resume-gate/internal/policy"
	"github.com/spigell/resume-gate/internal/secrets"
	"github.com/spigell/resume-gate/internal/submission"
)

const (
	extractorPlaceholder = "placeholder"
	extractorPDF         = "pdf"

	transportREST = "rest"
	transportSDK  = "sdk"
)

// setup creates the logger and reads the config the way every command needs
// them. stderr keeps stdout free for command output.
func setup(stderr bool) (*zap.Logger, *Config) {
	newLogger := logger.New
	if stderr {
		newLogger = logger.NewStderr
	}

	logger, err := newLogger(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	return logger, config
}

func newPipeline(ctx context.Context, config *Config, log *zap.Logger) (*pipeline.Pipeline, error) {
	analyzer, err := newAnalyzer(ctx, config.AI, log)
	if err != nil {
		return nil, fmt.Errorf("building analyzer: %w", err)
	}

	extractor, err := newExtractor(config.Extractor, log)
	if err != nil {
		return nil, err
	}

	engine := policy.NewEngine(config.Policy.RepositoryHost)

	return pipeline.New(extractor, analyzer, engine, config.Job.PromptDescription(), log), nil
}

func newExtractor(cfg *ExtractorConfig, log *zap.Logger) (extract.Extractor, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Mode)) {
	case "", extractorPlaceholder:
		return extract.Placeholder{}, nil
	case extractorPDF:
		return extract.NewPDF(log), nil
	default:
		return nil, fmt.Errorf("unsupported extractor mode: %s", cfg.Mode)
	}
}

func newAnalyzer(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Analyzer, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
		Env:   []string{"GEMINI_API_KEY"},
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	opts := gemini.Options{
		Model:           cfg.Gemini.Model,
		Endpoint:        cfg.Gemini.Endpoint,
		Temperature:     cfg.Gemini.Temperature,
		MaxOutputTokens: cfg.Gemini.MaxOutputTokens,
		Timeout:         cfg.Gemini.Timeout,
	}

	var generator gemini.Generator
	switch strings.ToLower(strings.TrimSpace(cfg.Transport)) {
	case "", transportREST:
		generator, err = gemini.NewRESTGenerator(apiKey, opts)
	case transportSDK:
		generator, err = gemini.NewSDKGenerator(ctx, apiKey, opts)
	default:
		return nil, fmt.Errorf("unsupported gemini transport: %s", cfg.Transport)
	}
	if err != nil {
		return nil, err
	}

	log.Debug("analyzer ready",
		append(logger.CommonFields("gemini", generator.Model()),
			zap.String("transport", cfg.Transport),
			zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries),
		)...,
	)

	return gemini.NewClient(generator, log, gemini.ClientOptions{
		Retry: gemini.RetryPolicy{
			MaxRetries: cfg.Gemini.MaxRetries,
			BaseDelay:  cfg.Gemini.RetryDelay,
		},
		Timeout:      cfg.Gemini.Timeout,
		MaxLogLength: cfg.Gemini.MaxLogLength,
	}), nil
}

// newSubmitter returns nil when no endpoint is configured.
func newSubmitter(config *Config, log *zap.Logger) (*submission.Client, error) {
	if strings.TrimSpace(config.Submission.Endpoint) == "" {
		return nil, nil
	}

	return submission.New(submission.Options{
		Endpoint:     config.Submission.Endpoint,
		Mode:         submission.Mode(config.Submission.Mode),
		Timeout:      config.Submission.Timeout,
		MaxLogLength: config.AI.Gemini.MaxLogLength,
	}, log)
}
