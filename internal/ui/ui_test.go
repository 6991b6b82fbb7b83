package ui

import (
	"strings"
	"testing"
	"time"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly ten!", 12, "exactly ten!"},
		{"this one is too long", 10, "this on..."},
		{"tiny", 3, "tiny"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestStatusLine(t *testing.T) {
	if got := StatusLine(true, nil, ""); !strings.Contains(got, "syncing") {
		t.Errorf("got %q", got)
	}
	if got := StatusLine(false, nil, "remote down"); !strings.Contains(got, "remote down") {
		t.Errorf("got %q", got)
	}
	at := time.Date(2026, 8, 29, 9, 30, 0, 0, time.UTC)
	if got := StatusLine(false, &at, ""); !strings.Contains(got, "09:30:00") {
		t.Errorf("got %q", got)
	}
	if got := StatusLine(false, nil, ""); !strings.Contains(got, "never") {
		t.Errorf("got %q", got)
	}
}

func TestTable(t *testing.T) {
	out := Table([]string{"ID", "NAME"}, [][]string{
		{"ws1", "Personal"},
		{"ws2", "Work"},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), out)
	}
	if !strings.Contains(lines[1], "Personal") || !strings.Contains(lines[2], "Work") {
		t.Errorf("rows missing: %q", out)
	}
}
