package cmd

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/resume-gate/internal/ai/gemini"
	"github.com/spigell/resume-gate/internal/extract"
	"github.com/spigell/resume-gate/internal/listing"
	"github.com/spigell/resume-gate/internal/policy"
	"github.com/spigell/resume-gate/internal/server"
	"github.com/spigell/resume-gate/internal/session"
	"github.com/spigell/resume-gate/internal/submission"
)

const (
	app       = "resume-gate"
	envPrefix = "RESUME_GATE"
)

type Config struct {
	Listen     string            `mapstructure:"listen"`
	Job        *listing.Listing  `mapstructure:"job"`
	AI         *AIConfig         `mapstructure:"ai"`
	Extractor  *ExtractorConfig  `mapstructure:"extractor"`
	Policy     *PolicyConfig     `mapstructure:"policy"`
	Submission *SubmissionConfig `mapstructure:"submission"`
	Server     *ServerConfig     `mapstructure:"server"`
}

type AIConfig struct {
	Provider  string        `mapstructure:"provider"`
	Transport string        `mapstructure:"transport"`
	Gemini    *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey          string        `mapstructure:"api-key"`
	APIKeyFile      string        `mapstructure:"api-key-file"`
	Model           string        `mapstructure:"model"`
	Endpoint        string        `mapstructure:"endpoint"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxOutputTokens int           `mapstructure:"max-output-tokens"`
	MaxRetries      int           `mapstructure:"max-retries"`
	RetryDelay      time.Duration `mapstructure:"retry-delay"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxLogLength    int           `mapstructure:"max-log-length"`
}

type ExtractorConfig struct {
	Mode        string `mapstructure:"mode"`
	MaxFileSize int64  `mapstructure:"max-file-size"`
}

type PolicyConfig struct {
	RepositoryHost string `mapstructure:"repository-host"`
}

type SubmissionConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Mode     string        `mapstructure:"mode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type ServerConfig struct {
	RateLimit    int           `mapstructure:"rate-limit"`
	RateWindow   time.Duration `mapstructure:"rate-window"`
	SessionTTL   time.Duration `mapstructure:"session-ttl"`
	BodyLimit    int           `mapstructure:"body-limit"`
	AllowOrigins string        `mapstructure:"allow-origins"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-gate scores a resume against the job listing and gates the application on the result",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-gate.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", ":8080")

	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.transport", "rest")
	v.SetDefault("ai.gemini.api-key", "")
	v.SetDefault("ai.gemini.api-key-file", "")
	v.SetDefault("ai.gemini.model", gemini.DefaultModel)
	v.SetDefault("ai.gemini.endpoint", gemini.DefaultEndpoint)
	v.SetDefault("ai.gemini.temperature", gemini.DefaultTemperature)
	v.SetDefault("ai.gemini.max-output-tokens", gemini.DefaultMaxOutputTokens)
	v.SetDefault("ai.gemini.max-retries", 2)
	v.SetDefault("ai.gemini.retry-delay", time.Second)
	v.SetDefault("ai.gemini.timeout", gemini.DefaultTimeout)
	v.SetDefault("ai.gemini.max-log-length", 200)

	v.SetDefault("extractor.mode", extractorPlaceholder)
	v.SetDefault("extractor.max-file-size", extract.DefaultMaxSize)

	v.SetDefault("policy.repository-host", policy.DefaultRepositoryHost)

	v.SetDefault("submission.endpoint", "")
	v.SetDefault("submission.mode", string(submission.BestEffort))
	v.SetDefault("submission.timeout", submission.DefaultTimeout)

	v.SetDefault("server.rate-limit", server.DefaultRateLimit)
	v.SetDefault("server.rate-window", server.DefaultRateWindow)
	v.SetDefault("server.session-ttl", session.DefaultTTL)
	v.SetDefault("server.body-limit", server.DefaultBodyLimit)
	v.SetDefault("server.allow-origins", "*")
}

func initConfig() {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("ai.gemini.api-key", envPrefix+"_AI_GEMINI_API_KEY", "GEMINI_API_KEY"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY environment variable: %v", err)
	}
	if err := viper.BindEnv("ai.gemini.api-key-file", envPrefix+"_AI_GEMINI_API_KEY_FILE", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The config file is optional, but a broken one is fatal.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

// decodeConfig unmarshals v and fills every section that was left out.
func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return config, err
	}
	if config == nil {
		config = &Config{}
	}

	job := listing.Default()
	if config.Job != nil {
		job = config.Job.Merge(job)
	}
	config.Job = &job

	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}
	if config.Extractor == nil {
		config.Extractor = &ExtractorConfig{}
	}
	if config.Policy == nil {
		config.Policy = &PolicyConfig{}
	}
	if config.Submission == nil {
		config.Submission = &SubmissionConfig{}
	}
	if config.Server == nil {
		config.Server = &ServerConfig{}
	}

	return config, nil
}
