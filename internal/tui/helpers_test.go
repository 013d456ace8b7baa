package tui

import (
	"testing"
	"time"
)

func TestFormatTime(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"zero", time.Time{}, ""},
		{"just now", now.Add(-10 * time.Second), "just now"},
		{"minutes", now.Add(-5 * time.Minute), "5m ago"},
		{"hours", now.Add(-3 * time.Hour), "3h ago"},
		{"days", now.Add(-50 * time.Hour), "2d ago"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := formatTime(tc.t); got != tc.want {
				t.Errorf("formatTime = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"two\nlines", "two lines"},
		{"  spaced \r\n  out  ", "spaced out"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := cleanTitle(tc.in); got != tc.want {
			t.Errorf("cleanTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestInitial(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"surfer", "S"},
		{"éa", "É"},
		{"", "?"},
	}
	for _, tc := range tests {
		if got := initial(tc.in); got != tc.want {
			t.Errorf("initial(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
