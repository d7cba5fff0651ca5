package gemini

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/resume-gate/internal/ai"
	"github.com/spigell/resume-gate/internal/logger"
)

const (
	defaultMaxLogLength = 200
	defaultRetryDelay   = time.Second
	defaultMaxDelay     = 30 * time.Second
)

// wait blocks for d or until ctx is done. Tests replace it.
var wait = func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryPolicy bounds retries of temporary transport failures. MaxRetries is
// the number of attempts after the first one.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

type ClientOptions struct {
	Retry RetryPolicy
	// Timeout applies to every single attempt.
	Timeout      time.Duration
	MaxLogLength int
}

// Client implements ai.Analyzer on top of a Generator.
type Client struct {
	generator Generator
	logger    *zap.Logger
	retry     RetryPolicy
	timeout   time.Duration
	maxLogLen int
}

var _ ai.Analyzer = (*Client)(nil)

func NewClient(generator Generator, log *zap.Logger, opts ClientOptions) *Client {
	if opts.MaxLogLength <= 0 {
		opts.MaxLogLength = defaultMaxLogLength
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Retry.MaxRetries < 0 {
		opts.Retry.MaxRetries = 0
	}
	if opts.Retry.BaseDelay <= 0 {
		opts.Retry.BaseDelay = defaultRetryDelay
	}
	if opts.Retry.MaxDelay <= 0 {
		opts.Retry.MaxDelay = defaultMaxDelay
	}

	return &Client{
		generator: generator,
		logger:    logger.WithCommonFields(log, "gemini", generator.Model()),
		retry:     opts.Retry,
		timeout:   opts.Timeout,
		maxLogLen: opts.MaxLogLength,
	}
}

// RequestAnalysis sends the prompt and decodes the answer.
func (c *Client) RequestAnalysis(ctx context.Context, prompt string) (*ai.RawAnalysis, error) {
	if prompt == "" {
		return nil, errors.New("prompt must not be empty")
	}

	c.logger.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.Truncate(prompt, c.maxLogLen)),
	)

	text, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(text)),
		zap.String("response_preview", logger.Truncate(text, c.maxLogLen)),
	)

	analysis, err := ParseAnalysis(text)
	if err != nil {
		c.logger.Warn("gemini response rejected",
			zap.Error(err),
			zap.String("response_preview", logger.Truncate(text, c.maxLogLen)),
		)
		return nil, err
	}

	return analysis, nil
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff(attempt, lastErr)
			c.logger.Warn("retrying gemini request",
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", c.retry.MaxRetries+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			if err := wait(ctx, delay); err != nil {
				return "", lastErr
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		text, err := c.generator.GenerateContent(attemptCtx, prompt)
		cancel()

		if err == nil {
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil || !ai.IsRetryable(err) {
			return "", err
		}

		var transportErr *ai.TransportError
		if errors.As(err, &transportErr) && transportErr.RetryAfter > c.retry.MaxDelay {
			c.logger.Warn("gemini asked to wait longer than allowed, giving up",
				zap.Duration("retry_after", transportErr.RetryAfter),
				zap.Duration("max_delay", c.retry.MaxDelay),
			)
			return "", err
		}
	}

	return "", lastErr
}

// backoff doubles the base delay per attempt up to MaxDelay. A longer delay
// requested by the provider wins.
func (c *Client) backoff(attempt int, lastErr error) time.Duration {
	delay := c.retry.BaseDelay << (attempt - 1)
	if delay <= 0 || delay > c.retry.MaxDelay {
		delay = c.retry.MaxDelay
	}

	var transportErr *ai.TransportError
	if errors.As(lastErr, &transportErr) && transportErr.RetryAfter > delay {
		delay = transportErr.RetryAfter
	}
	return delay
}
