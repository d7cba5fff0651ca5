// Package submission delivers an eligible application to the hiring backend.
package submission

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/spigell/resume-gate/internal/applicant"
	"github.com/spigell/resume-gate/internal/extract"
	"github.com/spigell/resume-gate/internal/logger"
)

type Mode string

const (
	// BestEffort logs delivery failures and reports them in the receipt only.
	BestEffort Mode = "best-effort"
	// Strict returns delivery failures as errors.
	Strict Mode = "strict"

	DefaultTimeout = 30 * time.Second
)

var ErrNoEndpoint = errors.New("submission endpoint is not configured")

// Application is what the hiring backend receives.
type Application struct {
	Profile  applicant.Profile
	Document *extract.Document
}

// Receipt describes a delivery attempt.
type Receipt struct {
	Delivered  bool   `json:"delivered"`
	StatusCode int    `json:"statusCode,omitempty"`
	Error      string `json:"error,omitempty"`
}

// SubmissionError describes a failed delivery. Only Strict mode returns it.
type SubmissionError struct {
	StatusCode int
	Body       string
	Cause      error
}

func (e *SubmissionError) Error() string {
	switch {
	case e.Cause != nil && e.StatusCode != 0:
		return fmt.Sprintf("submit application: status %d: %v", e.StatusCode, e.Cause)
	case e.Cause != nil:
		return fmt.Sprintf("submit application: %v", e.Cause)
	default:
		return fmt.Sprintf("submit application: status %d", e.StatusCode)
	}
}

func (e *SubmissionError) Unwrap() error {
	return e.Cause
}

// Options configure the client. Zero values fall back to the defaults.
type Options struct {
	Endpoint     string
	Mode         Mode
	Timeout      time.Duration
	MaxLogLength int
}

// Client posts applications to the hiring backend.
type Client struct {
	http         *resty.Client
	endpoint     string
	mode         Mode
	maxLogLength int
	logger       *zap.Logger
}

// New validates the mode and builds a resty backed client.
func New(opts Options, log *zap.Logger) (*Client, error) {
	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return nil, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxLogLength <= 0 {
		opts.MaxLogLength = 200
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		http:         resty.New().SetTimeout(opts.Timeout),
		endpoint:     strings.TrimSpace(opts.Endpoint),
		mode:         mode,
		maxLogLength: opts.MaxLogLength,
		logger:       log,
	}, nil
}

// ParseMode accepts the configured mode; empty means BestEffort.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case "", BestEffort:
		return BestEffort, nil
	case Strict:
		return Strict, nil
	default:
		return "", fmt.Errorf("unknown submission mode %q (use %q or %q)", value, BestEffort, Strict)
	}
}

func (c *Client) Mode() Mode {
	return c.mode
}

// Submit posts the application as multipart form data. The caller must have
// checked eligibility first. In BestEffort mode delivery failures only show up
// in the receipt.
func (c *Client) Submit(ctx context.Context, app Application) (*Receipt, error) {
	receipt, err := c.deliver(ctx, app)
	if err == nil {
		c.logger.Info("application submitted",
			zap.Int("status", receipt.StatusCode),
			zap.String(logger.FieldDocument, documentName(app.Document)),
		)
		return receipt, nil
	}

	receipt.Error = err.Error()
	c.logger.Warn("submitting application",
		zap.String("mode", string(c.mode)),
		zap.Int("status", receipt.StatusCode),
		zap.Error(err),
	)

	if c.mode == Strict {
		return receipt, err
	}
	return receipt, nil
}

func (c *Client) deliver(ctx context.Context, app Application) (*Receipt, error) {
	receipt := &Receipt{}

	if c.endpoint == "" {
		return receipt, &SubmissionError{Cause: ErrNoEndpoint}
	}

	p := app.Profile
	req := c.http.R().
		SetContext(ctx).
		SetMultipartFormData(map[string]string{
			"name":         p.Name,
			"address":      p.Address,
			"skills":       p.SkillsLine(),
			"github_link":  p.GitHub,
			"age":          p.Age,
			"email":        p.Email,
			"phone_number": p.Phone,
			"college_name": p.College,
			"passing_year": p.PassingYear,
		})

	if app.Document != nil {
		rc, err := app.Document.Open()
		if err != nil {
			return receipt, &SubmissionError{Cause: fmt.Errorf("open resume: %w", err)}
		}
		defer rc.Close()

		req.SetMultipartField("resume", app.Document.Name, app.Document.MediaType, rc)
	}

	resp, err := req.Post(c.endpoint)
	if err != nil {
		return receipt, &SubmissionError{Cause: err}
	}

	receipt.StatusCode = resp.StatusCode()
	if !resp.IsSuccess() {
		body := logger.Truncate(strings.TrimSpace(resp.String()), c.maxLogLength)
		return receipt, &SubmissionError{
			StatusCode: resp.StatusCode(),
			Body:       body,
			Cause:      fmt.Errorf("hiring backend answered %s", http.StatusText(resp.StatusCode())),
		}
	}

	receipt.Delivered = true
	return receipt, nil
}

func documentName(doc *extract.Document) string {
	if doc == nil {
		return ""
	}
	return doc.Name
}
