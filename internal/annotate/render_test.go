package annotate

import (
	"slices"
	"testing"

	"pgregory.net/rapid"
)

func TestProject_SplitsAtEveryBoundary(t *testing.T) {
	t.Parallel()

	spans := []Span{{0, 2, red}, {3, 7, green}}
	got := Project("ABCDEFGH", spans)
	want := []Segment{
		{Text: "AB", Color: red},
		{Text: "C"},
		{Text: "DEFG", Color: green},
		{Text: "H"},
	}
	if !slices.Equal(got, want) {
		t.Fatalf("Project = %v, want %v", got, want)
	}
}

func TestProject_ClampsStaleSpans(t *testing.T) {
	t.Parallel()

	got := Project("abc", []Span{{1, 10, red}, {12, 14, blue}})
	want := []Segment{{Text: "a"}, {Text: "bc", Color: red}}
	if !slices.Equal(got, want) {
		t.Fatalf("Project = %v, want %v", got, want)
	}
}

func TestProject_EmptyText(t *testing.T) {
	t.Parallel()

	if got := Project("", []Span{{0, 3, red}}); len(got) != 0 {
		t.Fatalf("Project(\"\") = %v, want no segments", got)
	}
}

func TestProject_SurrogatePairs(t *testing.T) {
	t.Parallel()

	// 😀 is two code units, so "b" starts at offset 3.
	got := Project("a😀b", []Span{{1, 3, blue}})
	want := []Segment{{Text: "a"}, {Text: "😀", Color: blue}, {Text: "b"}}
	if !slices.Equal(got, want) {
		t.Fatalf("Project = %v, want %v", got, want)
	}
}

func TestProject_DoesNotModifySpans(t *testing.T) {
	t.Parallel()

	spans := []Span{{3, 5, blue}, {0, 2, red}}
	_ = Project("abcdef", spans)
	if want := []Span{{3, 5, blue}, {0, 2, red}}; !slices.Equal(spans, want) {
		t.Fatalf("Project reordered its input: %v", spans)
	}
}

// =============================================================================
// Property: segments reassemble the text and carry the covering color
// =============================================================================

func testProject_CoversText(t *rapid.T) {
	text := rapid.StringMatching(`[a-z é]{0,20}`).Draw(t, "text")
	n := Len(text)
	spans := spansGenerator(n).Draw(t, "spans")

	segs := Project(text, spans)
	if got := Join(segs); got != text {
		t.Fatalf("Join(Project) = %q, want %q", got, text)
	}

	want := coverage(spans, n)
	pos := 0
	for _, seg := range segs {
		if seg.Text == "" {
			t.Fatalf("empty segment in %v", segs)
		}
		for i := 0; i < Len(seg.Text); i++ {
			if want[pos+i] != seg.Color {
				t.Fatalf("unit %d drawn as %v, want %v", pos+i, seg.Color, want[pos+i])
			}
		}
		pos += Len(seg.Text)
	}
}

func TestProject_CoversText(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testProject_CoversText)
}

func FuzzProject_CoversText(f *testing.F) {
	f.Add([]byte{0x00})
	f.Fuzz(rapid.MakeFuzz(testProject_CoversText))
}
