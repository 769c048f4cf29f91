package ui

import (
	"strings"
	"testing"
)

func TestTruncateSimple(t *testing.T) {
	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly-10", 10, "exactly-10"},
		{"this is far too long", 10, "this is..."},
		{"héllo wörld", 8, "héllo..."},
		{"anything", 3, "..."},
	}
	for _, tt := range tests {
		if got := TruncateSimple(tt.input, tt.maxLen); got != tt.want {
			t.Errorf("TruncateSimple(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
		}
	}
}

func TestTruncateLinesUnderLimit(t *testing.T) {
	text := "one\ntwo\nthree"
	if got := TruncateLines(text, 15, 5); got != text {
		t.Errorf("short text should be unchanged, got %q", got)
	}
}

func TestTruncateLinesKeepsContext(t *testing.T) {
	var lines []string
	for i := 1; i <= 30; i++ {
		lines = append(lines, "line")
	}
	lines[0] = "first"
	lines[29] = "last"

	got := TruncateLines(strings.Join(lines, "\n"), 15, 5)

	if !strings.Contains(got, "first") {
		t.Error("beginning context lost")
	}
	if !strings.Contains(got, "last") {
		t.Error("ending context lost")
	}
	if !strings.Contains(got, "20 lines hidden") {
		t.Errorf("hidden count missing: %q", got)
	}
}

func TestTruncateLinesTightLimit(t *testing.T) {
	text := strings.Repeat("x\n", 20) + "x"
	got := TruncateLines(text, 4, 5)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("tight limit should end with ellipsis: %q", got)
	}
	if n := strings.Count(got, "\n"); n != 4 {
		t.Errorf("got %d newlines, want 4", n)
	}
}

func TestWrapText(t *testing.T) {
	got := WrapText("aaa bbb ccc ddd", 7)
	want := "aaa bbb\nccc ddd"
	if got != want {
		t.Errorf("WrapText = %q, want %q", got, want)
	}
}

func TestWrapTextPreservesBreaks(t *testing.T) {
	got := WrapText("one\ntwo", 80)
	if got != "one\ntwo" {
		t.Errorf("existing breaks should be preserved: %q", got)
	}
}

func TestWrapTextLongWord(t *testing.T) {
	// A word longer than the width stays on its own line unbroken.
	got := WrapText("short supercalifragilistic short", 10)
	if !strings.Contains(got, "supercalifragilistic") {
		t.Errorf("long word mangled: %q", got)
	}
}
