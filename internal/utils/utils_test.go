package utils

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("Failed to get home dir: %v", err)
	}

	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/abs/path", "/abs/path"},
		{"~", home},
		{"~/data/cache.db", filepath.Join(home, "data/cache.db")},
	}
	for _, tc := range cases {
		got, err := ExpandPath(tc.in)
		if err != nil {
			t.Fatalf("ExpandPath(%q) failed: %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	t.Setenv("TRACKSYNC_TEST_DIR", "/var/data")
	got, err := ExpandPath("$TRACKSYNC_TEST_DIR/cache.db")
	if err != nil {
		t.Fatalf("ExpandPath failed: %v", err)
	}
	if got != "/var/data/cache.db" {
		t.Errorf("Expected env expansion, got %q", got)
	}
}

func TestValidatePriority(t *testing.T) {
	for _, p := range []int{0, 1, 5, 9} {
		if err := ValidatePriority(p); err != nil {
			t.Errorf("Priority %d should be valid: %v", p, err)
		}
	}
	for _, p := range []int{-1, 10} {
		if err := ValidatePriority(p); err == nil {
			t.Errorf("Priority %d should be rejected", p)
		}
	}
}

func TestParseDateFlag(t *testing.T) {
	got, err := ParseDateFlag("")
	if err != nil || got != nil {
		t.Errorf("Empty date should parse to nil, got %v, %v", got, err)
	}

	got, err = ParseDateFlag("2026-03-01")
	if err != nil {
		t.Fatalf("ParseDateFlag failed: %v", err)
	}
	if got == nil || got.Year() != 2026 || got.Month() != 3 || got.Day() != 1 {
		t.Errorf("Unexpected parsed date: %v", got)
	}

	if _, err := ParseDateFlag("03/01/2026"); err == nil {
		t.Error("Expected error for non-ISO date")
	}
}

func TestErrorWithSuggestion(t *testing.T) {
	base := errors.New("underlying failure")
	err := &ErrorWithSuggestion{Err: base, Suggestion: "try again"}

	if !errors.Is(err, base) {
		t.Error("Expected Unwrap to expose the underlying error")
	}
	if !strings.Contains(err.Error(), "Suggestion: try again") {
		t.Errorf("Expected suggestion in message, got %q", err.Error())
	}

	bare := &ErrorWithSuggestion{Err: base}
	if bare.Error() != base.Error() {
		t.Errorf("Expected bare message without suggestion, got %q", bare.Error())
	}
}
