package gemini

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/spigell/resume-gate/internal/ai"
	"github.com/spigell/resume-gate/internal/logger"
)

const (
	generatePath = "/models/{model}:generateContent"
	textPath     = "candidates.0.content.parts.0.text"
)

// RESTGenerator calls the generateContent endpoint directly, passing the API
// key as the "key" query parameter.
type RESTGenerator struct {
	http   *resty.Client
	apiKey string
	opts   Options
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

func NewRESTGenerator(apiKey string, opts Options) (*RESTGenerator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	opts = opts.withDefaults()

	client := resty.New().
		SetBaseURL(opts.Endpoint).
		SetTimeout(opts.Timeout).
		SetHeader("Content-Type", "application/json")

	return &RESTGenerator{http: client, apiKey: apiKey, opts: opts}, nil
}

func (g *RESTGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	body := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     g.opts.Temperature,
			MaxOutputTokens: g.opts.MaxOutputTokens,
		},
	}

	resp, err := g.http.R().
		SetContext(ctx).
		SetPathParam("model", g.opts.Model).
		SetQueryParam("key", g.apiKey).
		SetBody(body).
		Post(generatePath)
	if err != nil {
		return "", &ai.TransportError{Cause: err}
	}

	payload := resp.Body()

	if !resp.IsSuccess() {
		message := gjson.GetBytes(payload, "error.message").String()
		if message == "" {
			message = logger.Truncate(string(payload), 200)
		}
		return "", &ai.TransportError{
			StatusCode: resp.StatusCode(),
			Message:    message,
			RetryAfter: parseRetryAfter(resp.Header().Get("Retry-After")),
		}
	}

	if !gjson.ValidBytes(payload) {
		return "", &ai.MalformedResponseError{Message: "response body is not valid json"}
	}

	if apiErr := gjson.GetBytes(payload, "error"); apiErr.Exists() {
		status := int(apiErr.Get("code").Int())
		if status == 0 {
			status = resp.StatusCode()
		}
		return "", &ai.TransportError{StatusCode: status, Message: apiErr.Get("message").String()}
	}

	text := gjson.GetBytes(payload, textPath)
	if !text.Exists() || text.Type != gjson.String {
		return "", &ai.MalformedResponseError{Message: "envelope lacks " + textPath}
	}

	return text.String(), nil
}

func (g *RESTGenerator) Model() string {
	if g == nil {
		return ""
	}
	return g.opts.Model
}

func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
