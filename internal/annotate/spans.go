package annotate

import (
	"cmp"
	"fmt"
	"slices"
)

// Span colors code units [Start, End) of a text.
type Span struct {
	Start int   `json:"start"`
	End   int   `json:"end"`
	Color Color `json:"color"`
}

// Len returns the number of code units the span covers.
func (s Span) Len() int {
	return s.End - s.Start
}

// Overlaps reports whether s and o share at least one code unit.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

func compareSpans(a, b Span) int {
	if c := cmp.Compare(a.Start, b.Start); c != 0 {
		return c
	}
	return cmp.Compare(a.End, b.End)
}

func sortedCopy(spans []Span) []Span {
	out := slices.Clone(spans)
	slices.SortStableFunc(out, compareSpans)
	return out
}

// Shift repairs spans for a replacement described by d. A span that
// contains the replaced region absorbs it; portions inside the region are
// dropped; spans after it are translated by d.Delta(). Empty results are
// discarded. The input must satisfy the snapshot invariant for the old text.
func Shift(spans []Span, d DiffRange) []Span {
	delta := d.Delta()
	out := make([]Span, 0, len(spans))
	for _, s := range spans {
		switch {
		case s.End <= d.Start:
		case s.Start >= d.OldEnd:
			s.Start += delta
			s.End += delta
		case s.Start < d.Start && s.End > d.OldEnd:
			s.End += delta
		case s.Start < d.Start:
			s.End = d.Start
		case s.End > d.OldEnd:
			// Leading edge was replaced; the tail resumes after the new text.
			s.Start = d.NewEnd
			s.End += delta
		default:
			continue
		}
		if s.Start < s.End {
			out = append(out, s)
		}
	}
	return out
}

// Merge inserts incoming, absorbing every span of the same color that
// overlaps or touches it. Spans of other colors pass through untouched, so
// callers that need disjointness across colors clip first (see Clip).
// The result is sorted by Start.
func Merge(spans []Span, incoming Span) []Span {
	out := make([]Span, 0, len(spans)+1)
	for _, s := range sortedCopy(spans) {
		if s.Color == incoming.Color && s.End >= incoming.Start && s.Start <= incoming.End {
			incoming.Start = min(incoming.Start, s.Start)
			incoming.End = max(incoming.End, s.End)
			continue
		}
		out = append(out, s)
	}
	out = append(out, incoming)
	slices.SortStableFunc(out, compareSpans)
	return out
}

// Clip removes the coverage of [start, end) from every span whose color is
// not keep. A span straddling the range is split in two.
func Clip(spans []Span, start, end int, keep Color) []Span {
	return clip(spans, start, end, func(c Color) bool { return c == keep })
}

// Erase removes all coloring from [start, end).
func Erase(spans []Span, start, end int) []Span {
	return clip(spans, start, end, func(Color) bool { return false })
}

func clip(spans []Span, start, end int, keep func(Color) bool) []Span {
	out := make([]Span, 0, len(spans)+1)
	for _, s := range spans {
		if start >= end || keep(s.Color) || s.End <= start || s.Start >= end {
			out = append(out, s)
			continue
		}
		if s.Start < start {
			out = append(out, Span{Start: s.Start, End: start, Color: s.Color})
		}
		if s.End > end {
			out = append(out, Span{Start: end, End: s.End, Color: s.Color})
		}
	}
	return out
}

// Coalesce sorts spans and joins neighbors of the same color that touch or
// overlap. Shift can bring two same-colored spans together when the text
// between them is deleted.
func Coalesce(spans []Span) []Span {
	sorted := sortedCopy(spans)
	out := make([]Span, 0, len(sorted))
	for _, s := range sorted {
		if n := len(out); n > 0 && out[n-1].Color == s.Color && out[n-1].End >= s.Start {
			out[n-1].End = max(out[n-1].End, s.End)
			continue
		}
		out = append(out, s)
	}
	return out
}

// Validate checks the snapshot invariant against a text of textLen code
// units: spans are sorted, non-empty, in bounds and pairwise disjoint, and
// no two spans of one color touch. It is meant for tests and debugging;
// production paths never repair a malformed list.
func Validate(spans []Span, textLen int) error {
	for i, s := range spans {
		if s.Start < 0 || s.Start >= s.End || s.End > textLen {
			return fmt.Errorf("span %d [%d,%d) out of bounds for length %d", i, s.Start, s.End, textLen)
		}
		if i == 0 {
			continue
		}
		prev := spans[i-1]
		if prev.Start > s.Start {
			return fmt.Errorf("span %d [%d,%d) sorted after [%d,%d)", i, s.Start, s.End, prev.Start, prev.End)
		}
		if prev.End > s.Start {
			return fmt.Errorf("span %d [%d,%d) overlaps [%d,%d)", i, s.Start, s.End, prev.Start, prev.End)
		}
		if prev.End == s.Start && prev.Color == s.Color {
			return fmt.Errorf("span %d [%d,%d) touches same-colored [%d,%d)", i, s.Start, s.End, prev.Start, prev.End)
		}
	}
	return nil
}

// CheckBoundaries returns an error when a span starts or ends between the
// two halves of a surrogate pair in text.
func CheckBoundaries(text string, spans []Span) error {
	u := units(text)
	for i, s := range spans {
		if splitsPair(u, s.Start) || splitsPair(u, s.End) {
			return fmt.Errorf("span %d [%d,%d) splits a character", i, s.Start, s.End)
		}
	}
	return nil
}
