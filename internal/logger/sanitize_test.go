package logger

import (
	"strings"
	"testing"
)

func TestSanitizeString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		maxLength int
		want      string
	}{
		{"plain", "timeline rebuilt", 100, "timeline rebuilt"},
		{"strips escape sequences", "evil\x1b[31minjection", 100, "evil[31minjection"},
		{"keeps newline and tab", "a\n\tb", 100, "a\n\tb"},
		{"truncates", strings.Repeat("x", 50), 10, strings.Repeat("x", 10) + "..."},
		{"zero max falls back to general cap", "court", 0, "court"},
		{"empty", "", 100, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeString(tt.input, tt.maxLength); got != tt.want {
				t.Errorf("SanitizeString(%q, %d) = %q, want %q", tt.input, tt.maxLength, got, tt.want)
			}
		})
	}
}

func TestSanitizeString_InvalidUTF8(t *testing.T) {
	t.Parallel()

	got := SanitizeString("caf\xffé", 100)
	if strings.ContainsRune(got, '\xff') {
		t.Errorf("Invalid byte survived sanitization: %q", got)
	}
}

func TestSanitizePath(t *testing.T) {
	t.Parallel()

	long := "/api/v1/plannings/" + strings.Repeat("a", 600)
	got := SanitizePath(long)
	if len(got) != MaxPathLength+3 {
		t.Errorf("Path length = %d, want %d plus ellipsis", len(got), MaxPathLength)
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("Truncated path should end with an ellipsis")
	}
}
