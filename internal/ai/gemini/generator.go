package gemini

import (
	"context"
	"strings"
	"time"
)

const (
	DefaultModel           = "gemini-2.0-flash"
	DefaultEndpoint        = "https://generativelanguage.googleapis.com/v1"
	DefaultTemperature     = 0.3
	DefaultMaxOutputTokens = 2000
	DefaultTimeout         = 30 * time.Second
)

// Generator sends one prompt and returns the model text of the first
// candidate. Implementations report failures as *ai.TransportError or
// *ai.MalformedResponseError.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Options configure both transports. Zero values fall back to the defaults.
type Options struct {
	Model           string
	Endpoint        string
	Temperature     float64
	MaxOutputTokens int
	Timeout         time.Duration
}

func (o Options) withDefaults() Options {
	if o.Model = strings.TrimSpace(o.Model); o.Model == "" {
		o.Model = DefaultModel
	}
	if o.Endpoint = strings.TrimRight(strings.TrimSpace(o.Endpoint), "/"); o.Endpoint == "" {
		o.Endpoint = DefaultEndpoint
	}
	if o.Temperature <= 0 {
		o.Temperature = DefaultTemperature
	}
	if o.MaxOutputTokens <= 0 {
		o.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}
