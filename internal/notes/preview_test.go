package notes

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestContentPreview_Examples(t *testing.T) {
	t.Parallel()
	cases := []struct {
		content  string
		maxLines int
		want     string
	}{
		{"", 3, ""},
		{"one", 3, "one"},
		{"a\nb\nc", 3, "a\nb\nc"},
		{"a\nb\nc\nd", 3, "a\nb\nc\n..."},
		{"a\n\n\nd", 1, "a\n..."},
		{"a\nb", 0, "a\nb"},
		{"trailing\n", 1, "trailing\n..."},
	}
	for _, tc := range cases {
		if got := ContentPreview(tc.content, tc.maxLines); got != tc.want {
			t.Errorf("ContentPreview(%q, %d) = %q, want %q", tc.content, tc.maxLines, got, tc.want)
		}
	}
}

// =============================================================================
// Property: a preview is the original or a line-aligned prefix plus "..."
// =============================================================================

func testContentPreview_LinePrefix(t *rapid.T) {
	lines := rapid.SliceOfN(rapid.StringMatching(`[A-Za-z0-9 .,😀]{0,30}`), 1, 12).Draw(t, "lines")
	content := strings.Join(lines, "\n")
	maxLines := rapid.IntRange(1, 15).Draw(t, "maxLines")

	got := ContentPreview(content, maxLines)
	if CountLines(content) <= maxLines || len(lines) <= maxLines {
		if got != content {
			t.Fatalf("short content changed: %q -> %q", content, got)
		}
		return
	}
	want := strings.Join(lines[:maxLines], "\n") + "\n..."
	if got != want {
		t.Fatalf("ContentPreview(%q, %d) = %q, want %q", content, maxLines, got, want)
	}
	if CountLines(got) != maxLines+1 {
		t.Fatalf("preview has %d lines, want %d", CountLines(got), maxLines+1)
	}
}

func TestContentPreview_LinePrefix(t *testing.T) {
	rapid.Check(t, testContentPreview_LinePrefix)
}

func FuzzContentPreview_LinePrefix(f *testing.F) {
	f.Fuzz(rapid.MakeFuzz(testContentPreview_LinePrefix))
}

func TestCountLines(t *testing.T) {
	t.Parallel()
	for content, want := range map[string]int{"": 0, "x": 1, "\n": 2, "a\nb\n": 3} {
		if got := CountLines(content); got != want {
			t.Errorf("CountLines(%q) = %d, want %d", content, got, want)
		}
	}
}

// =============================================================================
// summaryPreview marks heads that were cut short
// =============================================================================

func TestSummaryPreview(t *testing.T) {
	t.Parallel()

	cases := []struct {
		head    string
		bodyLen int64
		want    string
	}{
		{"short", 5, "short"},
		{"cut mid", 100, "cut mid..."},
		{"a\nb\nc\nd", 7, "a\nb\nc\n..."},
		{"a\nb\nc\nd", 900, "a\nb\nc\n..."},
		{"😀", 2, "😀"},
		{"", 0, ""},
	}
	for _, tc := range cases {
		if got := summaryPreview(tc.head, tc.bodyLen); got != tc.want {
			t.Fatalf("summaryPreview(%q, %d) = %q, want %q", tc.head, tc.bodyLen, got, tc.want)
		}
	}
}
