package annotate

import (
	"slices"
	"testing"

	"pgregory.net/rapid"
)

func TestOnTextChanged_TypingWithPenPaintsInsertion(t *testing.T) {
	t.Parallel()

	e := Edit{Old: "hello", New: "helloX", Selection: Caret(5), Pen: red}
	if d := Diff(e.Old, e.New); d != (DiffRange{Start: 5, OldEnd: 5, NewEnd: 6}) {
		t.Fatalf("Diff = %+v", d)
	}
	got := OnTextChanged(e, nil)
	if want := []Span{{Start: 5, End: 6, Color: red}}; !slices.Equal(got, want) {
		t.Fatalf("OnTextChanged = %v, want %v", got, want)
	}
}

func TestOnTextChanged_DeletionInsideSpan(t *testing.T) {
	t.Parallel()

	e := Edit{Old: "abcdefghij", New: "abcdghij", Selection: Caret(6), Pen: DefaultColor}
	if d := Diff(e.Old, e.New); d != (DiffRange{Start: 4, OldEnd: 6, NewEnd: 4}) || d.Delta() != -2 {
		t.Fatalf("Diff = %+v", d)
	}
	got := OnTextChanged(e, []Span{{Start: 2, End: 8, Color: blue}})
	if want := []Span{{Start: 2, End: 6, Color: blue}}; !slices.Equal(got, want) {
		t.Fatalf("OnTextChanged = %v, want %v", got, want)
	}
}

func TestOnTextChanged_NoopEditReturnsSpans(t *testing.T) {
	t.Parallel()

	spans := []Span{{Start: 0, End: 3, Color: red}}
	got := OnTextChanged(Edit{Old: "abc", New: "abc", Pen: blue}, spans)
	if !slices.Equal(got, spans) {
		t.Fatalf("OnTextChanged = %v, want %v", got, spans)
	}
}

func TestOnTextChanged_DefaultPenDoesNotPaint(t *testing.T) {
	t.Parallel()

	got := OnTextChanged(Edit{Old: "ab", New: "abc", Selection: Caret(2), Pen: DefaultColor}, nil)
	if len(got) != 0 {
		t.Fatalf("OnTextChanged = %v, want no spans", got)
	}
}

func TestOnTextChanged_SamePenExtendsSpan(t *testing.T) {
	t.Parallel()

	got := OnTextChanged(
		Edit{Old: "abc", New: "abcd", Selection: Caret(3), Pen: red},
		[]Span{{Start: 0, End: 3, Color: red}},
	)
	if want := []Span{{Start: 0, End: 4, Color: red}}; !slices.Equal(got, want) {
		t.Fatalf("OnTextChanged = %v, want %v", got, want)
	}
}

func TestOnTextChanged_OtherPenSplitsContainingSpan(t *testing.T) {
	t.Parallel()

	got := OnTextChanged(
		Edit{Old: "abcdef", New: "abcXdef", Selection: Caret(3), Pen: blue},
		[]Span{{Start: 0, End: 6, Color: red}},
	)
	want := []Span{{0, 3, red}, {3, 4, blue}, {4, 7, red}}
	if !slices.Equal(got, want) {
		t.Fatalf("OnTextChanged = %v, want %v", got, want)
	}
}

func TestOnTextChanged_DeletingGapJoinsSameColor(t *testing.T) {
	t.Parallel()

	got := OnTextChanged(
		Edit{Old: "aaXbb", New: "aabb", Selection: Caret(3), Pen: DefaultColor},
		[]Span{{0, 2, red}, {3, 5, red}},
	)
	if want := []Span{{Start: 0, End: 4, Color: red}}; !slices.Equal(got, want) {
		t.Fatalf("OnTextChanged = %v, want %v", got, want)
	}
}

func TestOnTextChanged_CaretDisambiguatesRepeatedRun(t *testing.T) {
	t.Parallel()

	got := OnTextChanged(Edit{Old: "aa", New: "aaa", Selection: Caret(1), Pen: green}, nil)
	if want := []Span{{Start: 1, End: 2, Color: green}}; !slices.Equal(got, want) {
		t.Fatalf("OnTextChanged = %v, want %v", got, want)
	}
}

func TestOnExplicitColor_PaintsSelection(t *testing.T) {
	t.Parallel()

	spans := []Span{{Start: 0, End: 2, Color: red}}
	got := OnExplicitColor("ABCDEFGH", Selection{Start: 3, End: 7}, green, spans)
	want := []Span{{0, 2, red}, {3, 7, green}}
	if !slices.Equal(got, want) {
		t.Fatalf("OnExplicitColor = %v, want %v", got, want)
	}
}

func TestOnExplicitColor_BackwardSelection(t *testing.T) {
	t.Parallel()

	got := OnExplicitColor("ABCDEFGH", Selection{Start: 7, End: 3}, green, nil)
	if want := []Span{{Start: 3, End: 7, Color: green}}; !slices.Equal(got, want) {
		t.Fatalf("OnExplicitColor = %v, want %v", got, want)
	}
}

func TestOnExplicitColor_EmptySelectionIsNoop(t *testing.T) {
	t.Parallel()

	spans := []Span{{Start: 0, End: 2, Color: red}}
	got := OnExplicitColor("ABCDEFGH", Caret(4), green, spans)
	if !slices.Equal(got, spans) {
		t.Fatalf("OnExplicitColor = %v, want %v", got, spans)
	}
}

func TestOnExplicitColor_ClampsStaleSelection(t *testing.T) {
	t.Parallel()

	got := OnExplicitColor("abc", Selection{Start: 1, End: 99}, red, nil)
	if want := []Span{{Start: 1, End: 3, Color: red}}; !slices.Equal(got, want) {
		t.Fatalf("OnExplicitColor = %v, want %v", got, want)
	}
	if got := OnExplicitColor("abc", Selection{Start: 7, End: 99}, red, nil); len(got) != 0 {
		t.Fatalf("selection entirely past the end painted %v", got)
	}
}

func TestSelectionSnap_WholeCharacters(t *testing.T) {
	t.Parallel()

	// "a😀b": the emoji occupies [1,3).
	cases := []struct {
		in, want Selection
	}{
		{Selection{Start: 2, End: 4}, Selection{Start: 1, End: 4}},
		{Selection{Start: 0, End: 2}, Selection{Start: 0, End: 3}},
		{Selection{Start: 2, End: 0}, Selection{Start: 3, End: 0}},
		{Caret(2), Caret(1)},
		{Selection{Start: -3, End: 99}, Selection{Start: 0, End: 4}},
	}
	for _, tc := range cases {
		if got := tc.in.Snap("a😀b"); got != tc.want {
			t.Errorf("Snap(%+v) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestOnTextChanged_EmojiBeforeEmojiKeepsCharactersWhole(t *testing.T) {
	t.Parallel()

	// The caret was already past the old emoji, so the hint cannot place
	// the insertion.
	got := OnTextChanged(Edit{Old: "😀", New: "😁😀", Selection: Caret(2), Pen: red}, nil)
	if want := []Span{{Start: 0, End: 2, Color: red}}; !slices.Equal(got, want) {
		t.Fatalf("spans = %v, want %v", got, want)
	}
	if joined := Join(Project("😁😀", got)); joined != "😁😀" {
		t.Fatalf("projection garbled the text: %q", joined)
	}
}

func TestOnExplicitColor_WidensSelectionInsideSurrogatePair(t *testing.T) {
	t.Parallel()

	got := OnExplicitColor("a😀b", Selection{Start: 2, End: 4}, green, nil)
	if want := []Span{{Start: 1, End: 4, Color: green}}; !slices.Equal(got, want) {
		t.Fatalf("OnExplicitColor = %v, want %v", got, want)
	}
	if got := OnExplicitColor("a😀b", Caret(2), green, nil); len(got) != 0 {
		t.Fatalf("caret inside a pair painted %v", got)
	}
}

func TestOnExplicitColor_DefaultColorErases(t *testing.T) {
	t.Parallel()

	got := OnExplicitColor("abcdef", Selection{Start: 2, End: 4}, DefaultColor, []Span{{0, 6, red}})
	want := []Span{{0, 2, red}, {4, 6, red}}
	if !slices.Equal(got, want) {
		t.Fatalf("OnExplicitColor = %v, want %v", got, want)
	}
}

// =============================================================================
// Property: the span invariant survives any sequence of edits and paints
// =============================================================================

// drawEdit replaces a few runes of text, reporting the selection a text
// field would have had. Sometimes the selection is stale.
func drawEdit(t *rapid.T, text string) Edit {
	runes := []rune(text)
	from := rapid.IntRange(0, len(runes)).Draw(t, "from")
	to := rapid.IntRange(from, min(len(runes), from+4)).Draw(t, "to")
	insert := rapid.StringMatching(`[ab😀😁🈀]{0,3}`).Draw(t, "insert")

	sel := Selection{Start: Len(string(runes[:from])), End: Len(string(runes[:to]))}
	if rapid.Bool().Draw(t, "stale") {
		sel = Caret(rapid.IntRange(-2, Len(text)+2).Draw(t, "staleOffset"))
	}
	return Edit{
		Old:       text,
		New:       string(runes[:from]) + insert + string(runes[to:]),
		Selection: sel,
		Pen:       rapid.SampledFrom(Palette).Draw(t, "pen"),
	}
}

func testAnnotator_InvariantHolds(t *rapid.T) {
	text := rapid.StringMatching(`[ab 😀😁🈀]{0,16}`).Draw(t, "text")
	var spans []Span

	steps := rapid.IntRange(1, 30).Draw(t, "steps")
	for i := 0; i < steps; i++ {
		if rapid.Bool().Draw(t, "paint") {
			n := Len(text)
			sel := Selection{
				Start: rapid.IntRange(-1, n+1).Draw(t, "selStart"),
				End:   rapid.IntRange(-1, n+1).Draw(t, "selEnd"),
			}
			color := rapid.SampledFrom(Palette).Draw(t, "color")
			spans = OnExplicitColor(text, sel, color, spans)
		} else {
			e := drawEdit(t, text)
			spans = OnTextChanged(e, spans)
			text = e.New
		}
		if err := Validate(spans, Len(text)); err != nil {
			t.Fatalf("step %d: %v (text %q, spans %v)", i, err, text, spans)
		}
		if err := CheckBoundaries(text, spans); err != nil {
			t.Fatalf("step %d: %v (text %q, spans %v)", i, err, text, spans)
		}
		if joined := Join(Project(text, spans)); joined != text {
			t.Fatalf("step %d: projection %q differs from text %q (spans %v)", i, joined, text, spans)
		}
	}
}

func TestAnnotator_InvariantHolds(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testAnnotator_InvariantHolds)
}

func FuzzAnnotator_InvariantHolds(f *testing.F) {
	f.Add([]byte{0x00})
	f.Fuzz(rapid.MakeFuzz(testAnnotator_InvariantHolds))
}

// =============================================================================
// Property: inserted text carries the pen color
// =============================================================================

func testOnTextChanged_InsertionTakesPen(t *rapid.T) {
	text := rapid.StringMatching(`[abc]{0,12}`).Draw(t, "text")
	spans := spansGenerator(Len(text)).Draw(t, "spans")
	e := drawEdit(t, text)
	if e.Pen == DefaultColor {
		e.Pen = red
	}

	d := DiffHint(e.Old, e.New, e.Selection.Snap(e.Old).Min())
	got := coverage(OnTextChanged(e, spans), Len(e.New))
	for i := d.Start; i < d.NewEnd; i++ {
		if got[i] != e.Pen {
			t.Fatalf("inserted unit %d has color %v, want pen %v", i, got[i], e.Pen)
		}
	}
}

func TestOnTextChanged_InsertionTakesPen(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testOnTextChanged_InsertionTakesPen)
}
