package ui

import (
	"testing"
	"time"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 4, "hel…"},
		{"hello", 1, "…"},
		{"hello", 0, ""},
		{"héllo", 4, "hél…"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestPad(t *testing.T) {
	if got := pad("ab", 5); got != "ab   " {
		t.Fatalf("pad = %q", got)
	}
	if got := pad("abcdef", 4); got != "abc…" {
		t.Fatalf("pad over width = %q", got)
	}
}

func TestRelTime(t *testing.T) {
	now := time.Now()
	tests := []struct {
		t    time.Time
		want string
	}{
		{time.Time{}, "never"},
		{now.Add(-30 * time.Second), "30s"},
		{now.Add(-5 * time.Minute), "5m"},
		{now.Add(-3 * time.Hour), "3h"},
		{now.Add(-49 * time.Hour), "2d"},
	}
	for _, tt := range tests {
		if got := relTime(tt.t); got != tt.want {
			t.Errorf("relTime(%v) = %q, want %q", tt.t, got, tt.want)
		}
	}
}

func TestKeepAliveAge(t *testing.T) {
	if got := keepAliveAge(""); got != "never" {
		t.Fatalf("empty = %q", got)
	}
	if got := keepAliveAge("9999-12-31T23:59:59+00:00"); got != "never" {
		t.Fatalf("sentinel = %q", got)
	}
	stamp := time.Now().Add(-2 * time.Minute).Format(time.RFC3339)
	if got := keepAliveAge(stamp); got != "2m" {
		t.Fatalf("recent = %q", got)
	}
	if got := keepAliveAge("not a time"); got != "not a time" {
		t.Fatalf("garbage = %q", got)
	}
}

func TestFormatWindow(t *testing.T) {
	tests := []struct {
		min  int
		want string
	}{
		{15, "15m"},
		{90, "90m"},
		{120, "2h"},
		{1440, "1d"},
		{2880, "2d"},
	}
	for _, tt := range tests {
		if got := formatWindow(tt.min); got != tt.want {
			t.Errorf("formatWindow(%d) = %q, want %q", tt.min, got, tt.want)
		}
	}
}

func TestPrettyJSON(t *testing.T) {
	got := prettyJSON([]byte(`{"a":1}`))
	if got != "{\n  \"a\": 1\n}" {
		t.Fatalf("prettyJSON = %q", got)
	}
	if got := prettyJSON([]byte("not json")); got != "not json" {
		t.Fatalf("invalid input should pass through, got %q", got)
	}
}
