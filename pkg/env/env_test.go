package env

import "testing"

func TestGetFallsBackOnBlank(t *testing.T) {
	t.Setenv("PAWCIRCLE_LOG_FORMAT", "   ")
	if got := Get("PAWCIRCLE_LOG_FORMAT", "json"); got != "json" {
		t.Fatalf("expected fallback, got %q", got)
	}
	t.Setenv("PAWCIRCLE_LOG_FORMAT", " console ")
	if got := Get("PAWCIRCLE_LOG_FORMAT", "json"); got != "console" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
}
