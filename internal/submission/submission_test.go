package submission

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/resume-gate/internal/applicant"
	"github.com/spigell/resume-gate/internal/extract"
)

type received struct {
	fields   map[string]string
	fileName string
	fileType string
	file     string
}

func newBackend(t *testing.T, status int) (*httptest.Server, *received) {
	t.Helper()

	got := &received{fields: map[string]string{}}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for key, values := range r.MultipartForm.Value {
			got.fields[key] = values[0]
		}
		if files := r.MultipartForm.File["resume"]; len(files) == 1 {
			got.fileName = files[0].Filename
			got.fileType = files[0].Header.Get("Content-Type")
			f, err := files[0].Open()
			if err == nil {
				data, _ := io.ReadAll(f)
				got.file = string(data)
				f.Close()
			}
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, `{"detail":"stored"}`)
	}))
	t.Cleanup(server.Close)

	return server, got
}

func application() Application {
	return Application{
		Profile: applicant.Profile{
			Name:        "Asha Rao",
			Email:       "asha@example.com",
			GitHub:      "https://github.com/asha",
			College:     "IIT Madras",
			PassingYear: "2023",
			Address:     "Chennai",
			Age:         "24",
			Skills:      []string{"Go", "SQL"},
		},
		Document: extract.FromBytes("asha_cv.pdf", extract.MediaPDF, []byte("%PDF-1.4 resume")),
	}
}

func TestSubmitSendsMultipartContract(t *testing.T) {
	server, got := newBackend(t, http.StatusCreated)

	client, err := New(Options{Endpoint: server.URL + "/api/candidates/"}, nil)
	require.NoError(t, err)

	receipt, err := client.Submit(context.Background(), application())
	require.NoError(t, err)

	assert.True(t, receipt.Delivered)
	assert.Equal(t, http.StatusCreated, receipt.StatusCode)
	assert.Empty(t, receipt.Error)

	assert.Equal(t, map[string]string{
		"name":         "Asha Rao",
		"address":      "Chennai",
		"skills":       "Go, SQL",
		"github_link":  "https://github.com/asha",
		"age":          "24",
		"email":        "asha@example.com",
		"phone_number": "",
		"college_name": "IIT Madras",
		"passing_year": "2023",
	}, got.fields)
	assert.Equal(t, "asha_cv.pdf", got.fileName)
	assert.Equal(t, extract.MediaPDF, got.fileType)
	assert.Equal(t, "%PDF-1.4 resume", got.file)
}

func TestSubmitBestEffortSwallowsFailures(t *testing.T) {
	server, _ := newBackend(t, http.StatusInternalServerError)
	core, logs := observer.New(zapcore.WarnLevel)

	client, err := New(Options{Endpoint: server.URL}, zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, BestEffort, client.Mode())

	receipt, err := client.Submit(context.Background(), application())
	require.NoError(t, err)

	assert.False(t, receipt.Delivered)
	assert.Equal(t, http.StatusInternalServerError, receipt.StatusCode)
	assert.Contains(t, receipt.Error, "status 500")
	assert.Equal(t, 1, logs.FilterMessage("submitting application").Len())
}

func TestSubmitStrictReturnsError(t *testing.T) {
	server, _ := newBackend(t, http.StatusBadRequest)

	client, err := New(Options{Endpoint: server.URL, Mode: Strict}, nil)
	require.NoError(t, err)

	receipt, err := client.Submit(context.Background(), application())

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, http.StatusBadRequest, subErr.StatusCode)
	assert.Equal(t, `{"detail":"stored"}`, subErr.Body)
	assert.False(t, receipt.Delivered)
}

func TestSubmitWithoutEndpoint(t *testing.T) {
	client, err := New(Options{Mode: Strict}, nil)
	require.NoError(t, err)

	_, err = client.Submit(context.Background(), application())
	assert.ErrorIs(t, err, ErrNoEndpoint)
}

func TestSubmitNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	client, err := New(Options{Endpoint: endpoint}, nil)
	require.NoError(t, err)

	receipt, err := client.Submit(context.Background(), application())
	require.NoError(t, err)
	assert.False(t, receipt.Delivered)
	assert.NotEmpty(t, receipt.Error)
}

func TestParseMode(t *testing.T) {
	tests := map[string]Mode{"": BestEffort, "best-effort": BestEffort, " STRICT ": Strict}
	for input, want := range tests {
		got, err := ParseMode(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got)
	}

	_, err := ParseMode("fire-and-forget")
	assert.Error(t, err)

	_, err = New(Options{Mode: "sometimes"}, nil)
	assert.Error(t, err)
}
