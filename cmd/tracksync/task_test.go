package main

import (
	"strings"
	"testing"

	"tracksync/store"
)

func TestShortKey(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"abc", "abc"},
		{"12345678", "12345678"},
		{"123456789abcdef", "12345678"},
	}
	for _, tc := range cases {
		if got := shortKey(tc.in); got != tc.want {
			t.Errorf("shortKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRenderTaskLineHandlesShortKeys(t *testing.T) {
	rec := store.Record{
		Type:     store.TypeTask,
		LocalKey: "k1",
		Payload:  []byte(`{"title":"tiny key","status":"todo"}`),
		State:    store.StatePending,
	}

	line := renderTaskLine(rec)
	if !strings.Contains(line, "k1") || !strings.Contains(line, "tiny key") {
		t.Errorf("Unexpected rendering: %q", line)
	}
}

func TestRenderTaskLineUnreadablePayload(t *testing.T) {
	rec := store.Record{
		Type:     store.TypeTask,
		LocalKey: "0123456789",
		Payload:  []byte("not json"),
		State:    store.StateSynced,
	}

	line := renderTaskLine(rec)
	if !strings.Contains(line, "(unreadable payload)") {
		t.Errorf("Expected placeholder title, got %q", line)
	}
}
