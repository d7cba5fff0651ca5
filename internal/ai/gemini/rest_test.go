package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/resume-gate/internal/ai"
)

type capturedRequest struct {
	path  string
	key   string
	body  map[string]any
	ctype string
}

func newGeminiServer(t *testing.T, status int, headers map[string]string, body string) (*httptest.Server, *capturedRequest) {
	t.Helper()

	captured := &capturedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.key = r.URL.Query().Get("key")
		captured.ctype = r.Header.Get("Content-Type")

		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &captured.body)

		for k, v := range headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)

	return server, captured
}

func TestRESTGeneratorSendsDocumentedRequest(t *testing.T) {
	server, captured := newGeminiServer(t, http.StatusOK, nil,
		`{"candidates":[{"content":{"parts":[{"text":"`+"```json\\n{\\\"resumeScore\\\": 80}\\n```"+`"}]}}]}`)

	gen, err := NewRESTGenerator(" secret-key ", Options{Endpoint: server.URL + "/v1/"})
	require.NoError(t, err)

	text, err := gen.GenerateContent(context.Background(), "analyze this")
	require.NoError(t, err)

	assert.Equal(t, "```json\n{\"resumeScore\": 80}\n```", text)
	assert.Equal(t, "/v1/models/gemini-2.0-flash:generateContent", captured.path)
	assert.Equal(t, "secret-key", captured.key)
	assert.Equal(t, "application/json", captured.ctype)

	contents := captured.body["contents"].([]any)
	parts := contents[0].(map[string]any)["parts"].([]any)
	assert.Equal(t, "analyze this", parts[0].(map[string]any)["text"])

	genConfig := captured.body["generationConfig"].(map[string]any)
	assert.Equal(t, 0.3, genConfig["temperature"])
	assert.Equal(t, float64(2000), genConfig["maxOutputTokens"])
	assert.Equal(t, DefaultModel, gen.Model())
}

func TestRESTGeneratorErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		headers map[string]string
		body    string
		check   func(t *testing.T, err error)
	}{
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   `{"error":{"code":500,"message":"internal"}}`,
			check: func(t *testing.T, err error) {
				var target *ai.TransportError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, http.StatusInternalServerError, target.StatusCode)
				assert.Equal(t, "internal", target.Message)
				assert.True(t, target.Temporary())
			},
		},
		{
			name:    "quota with retry after",
			status:  http.StatusTooManyRequests,
			headers: map[string]string{"Retry-After": "42"},
			body:    `quota`,
			check: func(t *testing.T, err error) {
				var target *ai.TransportError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, 42*time.Second, target.RetryAfter)
				assert.Equal(t, "quota", target.Message)
			},
		},
		{
			name:   "bad api key",
			status: http.StatusBadRequest,
			body:   `{"error":{"code":400,"message":"API key not valid"}}`,
			check: func(t *testing.T, err error) {
				var target *ai.TransportError
				require.ErrorAs(t, err, &target)
				assert.False(t, target.Temporary())
			},
		},
		{
			name:   "error envelope with ok status",
			status: http.StatusOK,
			body:   `{"error":{"message":"blocked"}}`,
			check: func(t *testing.T, err error) {
				var target *ai.TransportError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, http.StatusOK, target.StatusCode)
				assert.Equal(t, "blocked", target.Message)
			},
		},
		{
			name:   "body is not json",
			status: http.StatusOK,
			body:   `<html>proxy</html>`,
			check: func(t *testing.T, err error) {
				var target *ai.MalformedResponseError
				require.ErrorAs(t, err, &target)
			},
		},
		{
			name:   "no candidates",
			status: http.StatusOK,
			body:   `{"candidates":[]}`,
			check: func(t *testing.T, err error) {
				var target *ai.MalformedResponseError
				require.ErrorAs(t, err, &target)
			},
		},
		{
			name:   "text is not a string",
			status: http.StatusOK,
			body:   `{"candidates":[{"content":{"parts":[{"text":{"nested":true}}]}}]}`,
			check: func(t *testing.T, err error) {
				var target *ai.MalformedResponseError
				require.ErrorAs(t, err, &target)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newGeminiServer(t, tt.status, tt.headers, tt.body)

			gen, err := NewRESTGenerator("key", Options{Endpoint: server.URL})
			require.NoError(t, err)

			_, err = gen.GenerateContent(context.Background(), "prompt")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestRESTGeneratorNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	gen, err := NewRESTGenerator("key", Options{Endpoint: endpoint, Timeout: time.Second})
	require.NoError(t, err)

	_, err = gen.GenerateContent(context.Background(), "prompt")

	var target *ai.TransportError
	require.ErrorAs(t, err, &target)
	assert.Zero(t, target.StatusCode)
	assert.True(t, target.Temporary())
}

func TestRESTGeneratorRequiresKey(t *testing.T) {
	_, err := NewRESTGenerator("  ", Options{})
	assert.Error(t, err)
}

func TestRESTGeneratorThroughClient(t *testing.T) {
	server, _ := newGeminiServer(t, http.StatusOK, nil,
		`{"candidates":[{"content":{"parts":[{"text":"{\"resumeScore\": \"64\", \"recommendations\": [\"Add tests\"]}"}]}}]}`)

	gen, err := NewRESTGenerator("key", Options{Endpoint: server.URL})
	require.NoError(t, err)

	analysis, err := NewClient(gen, nil, ClientOptions{}).RequestAnalysis(context.Background(), "prompt")
	require.NoError(t, err)

	require.NotNil(t, analysis.ResumeScore)
	assert.Equal(t, 64.0, *analysis.ResumeScore)
	assert.Equal(t, []string{"Add tests"}, analysis.Recommendations)
}
