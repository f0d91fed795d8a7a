package annotate

import "strings"

// Segment is a run of text drawn in one color. Color is NoColor for text
// no span covers.
type Segment struct {
	Text  string `json:"text"`
	Color Color  `json:"color,omitzero"`
}

// Project splits text into display segments at every span boundary. Span
// bounds are clamped to the text, so spans one frame older than a freshly
// shortened text still project safely. Where malformed spans overlap the
// earlier one wins. Project never modifies spans.
func Project(text string, spans []Span) []Segment {
	u := units(text)
	n := len(u)
	if n == 0 {
		return nil
	}

	var out []Segment
	emit := func(from, to int, c Color) {
		if to > from {
			out = append(out, Segment{Text: decode(u[from:to]), Color: c})
		}
	}

	pos := 0
	for _, s := range sortedCopy(spans) {
		start := max(clampInt(s.Start, 0, n), pos)
		end := clampInt(s.End, 0, n)
		if end <= start {
			continue
		}
		emit(pos, start, NoColor)
		emit(start, end, s.Color)
		pos = end
	}
	emit(pos, n, NoColor)
	return out
}

// Join concatenates segment texts.
func Join(segments []Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		b.WriteString(seg.Text)
	}
	return b.String()
}
