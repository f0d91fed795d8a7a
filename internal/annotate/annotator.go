package annotate

// Selection is a caret (Start == End) or a selected range, in either
// direction, over the current text.
type Selection struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Caret returns an empty selection at offset.
func Caret(offset int) Selection {
	return Selection{Start: offset, End: offset}
}

// Min returns the lower bound.
func (s Selection) Min() int {
	return min(s.Start, s.End)
}

// Max returns the upper bound.
func (s Selection) Max() int {
	return max(s.Start, s.End)
}

// Empty reports whether nothing is selected.
func (s Selection) Empty() bool {
	return s.Start == s.End
}

// Clamp bounds both ends to [0, n]. UI selection state can lag the text by a
// frame, so offsets are clamped rather than rejected.
func (s Selection) Clamp(n int) Selection {
	return Selection{Start: clampInt(s.Start, 0, n), End: clampInt(s.End, 0, n)}
}

// Snap clamps the selection to text and widens any end that falls inside a
// surrogate pair to take in the whole character. A caret inside a pair
// moves to the start of the character and stays a caret.
func (s Selection) Snap(text string) Selection {
	u := units(text)
	s = s.Clamp(len(u))
	lo, hi := s.Min(), s.Max()
	if splitsPair(u, lo) {
		lo--
	}
	if s.Empty() {
		return Caret(lo)
	}
	if splitsPair(u, hi) {
		hi++
	}
	if s.Start > s.End {
		return Selection{Start: hi, End: lo}
	}
	return Selection{Start: lo, End: hi}
}

// Edit is one change notification from a text field.
type Edit struct {
	Old string
	New string
	// Selection is the caret or selection in Old before the edit.
	Selection Selection
	// Pen colors inserted text unless it is DefaultColor.
	Pen Color
}

// OnTextChanged returns spans repaired for the edit. Inserted text is
// painted with the pen color, replacing any other color it landed in.
func OnTextChanged(e Edit, spans []Span) []Span {
	if e.Old == e.New {
		return spans
	}
	d := DiffHint(e.Old, e.New, e.Selection.Snap(e.Old).Min())
	next := Coalesce(Shift(spans, d))
	if d.Inserted() > 0 && e.Pen != DefaultColor && e.Pen != NoColor {
		painted := Span{Start: d.Start, End: d.NewEnd, Color: e.Pen}
		next = Merge(Clip(next, painted.Start, painted.End, painted.Color), painted)
	}
	return next
}

// OnExplicitColor paints the selection over text. Painting with
// DefaultColor erases coloring in the selection instead of adding a span.
func OnExplicitColor(text string, sel Selection, color Color, spans []Span) []Span {
	sel = sel.Snap(text)
	if sel.Empty() {
		return spans
	}
	start, end := sel.Min(), sel.Max()
	if color == DefaultColor || color == NoColor {
		return Erase(spans, start, end)
	}
	return Merge(Clip(spans, start, end, color), Span{Start: start, End: end, Color: color})
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
