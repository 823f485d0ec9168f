package secret

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExpandEnvStrict(t *testing.T) {
	t.Setenv("AUTHGATE_TEST_VALUE", "resolved")

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain value", input: "plain", want: "plain"},
		{name: "braced expansion", input: "${AUTHGATE_TEST_VALUE}", want: "resolved"},
		{name: "embedded expansion", input: "pre-${AUTHGATE_TEST_VALUE}-post", want: "pre-resolved-post"},
		{name: "dollar escape", input: "pa$$word", want: "pa$word"},
		{name: "missing variable", input: "${AUTHGATE_TEST_MISSING}", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandEnvStrict(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ExpandEnvStrict(%q) = nil error", tt.input)
				}
				if !strings.Contains(err.Error(), "AUTHGATE_TEST_MISSING") {
					t.Errorf("error %q does not name the missing variable", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExpandEnvStrict(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ExpandEnvStrict(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestResolver_ResolveValue(t *testing.T) {
	t.Setenv("AUTHGATE_TEST_SECRET", "from-env")

	secretFile := filepath.Join(t.TempDir(), "secret")
	if err := os.WriteFile(secretFile, []byte("from-file\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	r := NewResolver()
	ctx := context.Background()

	tests := []struct {
		name    string
		value   string
		want    string
		wantErr bool
	}{
		{name: "plain value", value: "plain-secret", want: "plain-secret"},
		{name: "env reference", value: "secretref:env:AUTHGATE_TEST_SECRET", want: "from-env"},
		{name: "file reference trims newline", value: "secretref:file:" + secretFile, want: "from-file"},
		{name: "unknown provider", value: "secretref:vault:some/path", wantErr: true},
		{name: "malformed reference", value: "secretref:env", wantErr: true},
		{name: "missing env variable", value: "secretref:env:AUTHGATE_TEST_ABSENT", wantErr: true},
		{name: "missing file", value: "secretref:file:/nonexistent/secret", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ResolveValue(ctx, tt.value)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ResolveValue(%q) = nil error", tt.value)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveValue(%q) error = %v", tt.value, err)
			}
			if got != tt.want {
				t.Errorf("ResolveValue(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}
