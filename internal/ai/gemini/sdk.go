package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/spigell/resume-gate/internal/ai"
)

type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// SDKGenerator talks to Gemini through the Google GenAI client.
type SDKGenerator struct {
	models modelsAPI
	opts   Options
}

// NewSDKGenerator creates a generator configured for the Gemini API backend.
func NewSDKGenerator(ctx context.Context, apiKey string, opts Options) (*SDKGenerator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &SDKGenerator{models: client.Models, opts: opts.withDefaults()}, nil
}

func (g *SDKGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(g.opts.Temperature)),
		MaxOutputTokens: int32(g.opts.MaxOutputTokens),
	}

	resp, err := g.models.GenerateContent(ctx, g.opts.Model, genai.Text(prompt), config)
	if err != nil {
		return "", toTransportError(err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", &ai.MalformedResponseError{Message: "response has no candidates"}
	}

	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil || len(candidate.Content.Parts) == 0 || candidate.Content.Parts[0] == nil {
		return "", &ai.MalformedResponseError{Message: "first candidate has no content parts"}
	}

	text := candidate.Content.Parts[0].Text
	if strings.TrimSpace(text) == "" {
		return "", &ai.MalformedResponseError{Message: "first content part has no text"}
	}

	return text, nil
}

func (g *SDKGenerator) Model() string {
	if g == nil {
		return ""
	}
	return g.opts.Model
}

func toTransportError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &ai.TransportError{StatusCode: apiErr.Code, Message: apiErr.Message, Cause: err}
	}

	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &ai.TransportError{StatusCode: apiErrPtr.Code, Message: apiErrPtr.Message, Cause: err}
	}

	return &ai.TransportError{Cause: err}
}
