package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	keyFile := filepath.Join(dir, "key")
	if err := os.WriteFile(keyFile, []byte("  from-file \n"), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}

	emptyFile := filepath.Join(dir, "empty")
	if err := os.WriteFile(emptyFile, []byte("\n"), 0o600); err != nil {
		t.Fatalf("write empty file: %v", err)
	}

	t.Setenv("RESUME_GATE_TEST_KEY", " from-env ")

	tests := []struct {
		name      string
		src       Source
		expect    string
		expectErr string
	}{
		{
			name:   "file wins over value and env",
			src:    Source{Name: "api key", File: keyFile, Value: "inline", Env: []string{"RESUME_GATE_TEST_KEY"}},
			expect: "from-file",
		},
		{
			name:   "value wins over env",
			src:    Source{Name: "api key", Value: " inline ", Env: []string{"RESUME_GATE_TEST_KEY"}},
			expect: "inline",
		},
		{
			name:   "env used as fallback",
			src:    Source{Name: "api key", Env: []string{"RESUME_GATE_UNSET_KEY", "RESUME_GATE_TEST_KEY"}},
			expect: "from-env",
		},
		{
			name:      "empty file is an error",
			src:       Source{Name: "api key", File: emptyFile},
			expectErr: "is empty",
		},
		{
			name:      "missing file is an error",
			src:       Source{Name: "api key", File: filepath.Join(dir, "absent")},
			expectErr: "reading api key",
		},
		{
			name:      "nothing configured",
			src:       Source{Env: []string{"RESUME_GATE_UNSET_KEY"}},
			expectErr: "secret is not configured (checked RESUME_GATE_UNSET_KEY)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if tt.expectErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.expectErr) {
					t.Fatalf("expected error containing %q, got %v", tt.expectErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}
