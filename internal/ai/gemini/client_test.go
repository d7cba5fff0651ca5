package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/resume-gate/internal/ai"
)

type stubResult struct {
	text string
	err  error
}

type stubGenerator struct {
	mu        sync.Mutex
	results   []stubResult
	prompts   []string
	deadlines []bool
}

func (s *stubGenerator) enqueue(text string, err error) *stubGenerator {
	s.results = append(s.results, stubResult{text: text, err: err})
	return s
}

func (s *stubGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prompts = append(s.prompts, prompt)
	_, hasDeadline := ctx.Deadline()
	s.deadlines = append(s.deadlines, hasDeadline)

	if len(s.results) == 0 {
		return "", errors.New("unexpected call")
	}
	res := s.results[0]
	s.results = s.results[1:]
	return res.text, res.err
}

func (s *stubGenerator) Model() string { return "stub-model" }

func (s *stubGenerator) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

func noWait(t *testing.T) *[]time.Duration {
	t.Helper()

	var delays []time.Duration
	original := wait
	wait = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	t.Cleanup(func() { wait = original })
	return &delays
}

const validAnswer = `{"resumeScore": 72, "shortlistingDecision": "RECOMMENDED", "keyInsights": {"strengths": ["Go"]}}`

func TestClientRetriesOnTemporaryError(t *testing.T) {
	delays := noWait(t)

	stub := (&stubGenerator{}).
		enqueue("", &ai.TransportError{StatusCode: http.StatusInternalServerError}).
		enqueue("", &ai.TransportError{Cause: errors.New("connection reset")}).
		enqueue(validAnswer, nil)

	client := NewClient(stub, zap.NewNop(), ClientOptions{
		Retry: RetryPolicy{MaxRetries: 2, BaseDelay: time.Second, MaxDelay: 10 * time.Second},
	})

	analysis, err := client.RequestAnalysis(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if analysis.ResumeScore == nil || *analysis.ResumeScore != 72 {
		t.Fatalf("unexpected score: %v", analysis.ResumeScore)
	}

	if stub.calls() != 3 {
		t.Fatalf("expected 3 calls, got %d", stub.calls())
	}

	if len(*delays) != 2 || (*delays)[0] != time.Second || (*delays)[1] != 2*time.Second {
		t.Fatalf("unexpected backoff delays: %v", *delays)
	}

	for i, hasDeadline := range stub.deadlines {
		if !hasDeadline {
			t.Fatalf("attempt %d ran without a timeout", i+1)
		}
	}
}

func TestClientStopsAfterRetriesExhausted(t *testing.T) {
	noWait(t)

	tempErr := &ai.TransportError{StatusCode: http.StatusServiceUnavailable}
	stub := (&stubGenerator{}).enqueue("", tempErr).enqueue("", tempErr)

	client := NewClient(stub, zap.NewNop(), ClientOptions{Retry: RetryPolicy{MaxRetries: 1}})

	_, err := client.RequestAnalysis(context.Background(), "prompt")
	if !errors.Is(err, tempErr) {
		t.Fatalf("expected last transport error, got %v", err)
	}

	if stub.calls() != 2 {
		t.Fatalf("expected 2 calls, got %d", stub.calls())
	}
}

func TestClientDoesNotRetryPermanentFailures(t *testing.T) {
	noWait(t)

	tests := []struct {
		name   string
		result stubResult
		check  func(error) bool
	}{
		{
			name:   "client error",
			result: stubResult{err: &ai.TransportError{StatusCode: http.StatusBadRequest}},
			check: func(err error) bool {
				var target *ai.TransportError
				return errors.As(err, &target)
			},
		},
		{
			name:   "malformed envelope",
			result: stubResult{err: &ai.MalformedResponseError{Message: "no candidates"}},
			check: func(err error) bool {
				var target *ai.MalformedResponseError
				return errors.As(err, &target)
			},
		},
		{
			name:   "schema error",
			result: stubResult{text: "I am not JSON"},
			check: func(err error) bool {
				var target *ai.SchemaError
				return errors.As(err, &target)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := (&stubGenerator{}).enqueue(tt.result.text, tt.result.err)
			client := NewClient(stub, zap.NewNop(), ClientOptions{Retry: RetryPolicy{MaxRetries: 3}})

			_, err := client.RequestAnalysis(context.Background(), "prompt")
			if !tt.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
			if stub.calls() != 1 {
				t.Fatalf("expected single call, got %d", stub.calls())
			}
		})
	}
}

func TestClientDoesNotRetryOnLongQuotaDelay(t *testing.T) {
	noWait(t)

	stub := (&stubGenerator{}).enqueue("", &ai.TransportError{
		StatusCode: http.StatusTooManyRequests,
		Message:    "quota exhausted",
		RetryAfter: time.Minute,
	})

	client := NewClient(stub, zap.NewNop(), ClientOptions{
		Retry: RetryPolicy{MaxRetries: 3, MaxDelay: 10 * time.Second},
	})

	if _, err := client.RequestAnalysis(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error when quota delay too long")
	}

	if stub.calls() != 1 {
		t.Fatalf("expected single call, got %d", stub.calls())
	}
}

func TestClientHonoursShortRetryAfter(t *testing.T) {
	delays := noWait(t)

	stub := (&stubGenerator{}).
		enqueue("", &ai.TransportError{StatusCode: http.StatusTooManyRequests, RetryAfter: 5 * time.Second}).
		enqueue(validAnswer, nil)

	client := NewClient(stub, zap.NewNop(), ClientOptions{
		Retry: RetryPolicy{MaxRetries: 1, BaseDelay: time.Second, MaxDelay: 10 * time.Second},
	})

	if _, err := client.RequestAnalysis(context.Background(), "prompt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(*delays) != 1 || (*delays)[0] != 5*time.Second {
		t.Fatalf("expected provider delay to be used, got %v", *delays)
	}
}

func TestClientStopsWhenContextCancelledDuringWait(t *testing.T) {
	original := wait
	wait = func(context.Context, time.Duration) error { return context.Canceled }
	t.Cleanup(func() { wait = original })

	tempErr := &ai.TransportError{StatusCode: http.StatusBadGateway}
	stub := (&stubGenerator{}).enqueue("", tempErr)

	client := NewClient(stub, zap.NewNop(), ClientOptions{Retry: RetryPolicy{MaxRetries: 5}})

	_, err := client.RequestAnalysis(context.Background(), "prompt")
	if !errors.Is(err, tempErr) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if stub.calls() != 1 {
		t.Fatalf("expected single call, got %d", stub.calls())
	}
}

func TestClientRejectsEmptyPrompt(t *testing.T) {
	client := NewClient(&stubGenerator{}, zap.NewNop(), ClientOptions{})

	if _, err := client.RequestAnalysis(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty prompt")
	}
}

func TestWaitRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := wait(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}

	if err := wait(context.Background(), 0); err != nil {
		t.Fatalf("expected immediate return, got %v", err)
	}
}
