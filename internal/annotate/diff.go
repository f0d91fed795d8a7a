// Package annotate maintains colored intervals over an editable text buffer.
//
// Offsets are UTF-16 code units, matching the indexing model of the text
// fields that feed it. Every function is pure: span slices passed in are never
// modified, and results are fresh slices the caller may keep as snapshots.
package annotate

import (
	"unicode/utf16"
)

// DiffRange describes a single contiguous replacement: code units
// [Start, OldEnd) of the old text became [Start, NewEnd) of the new text.
type DiffRange struct {
	Start  int `json:"start"`
	OldEnd int `json:"old_end"`
	NewEnd int `json:"new_end"`
}

// Delta is the net length change applied to everything after OldEnd.
func (d DiffRange) Delta() int {
	return d.NewEnd - d.OldEnd
}

// Inserted is the number of code units the new text has in the replaced region.
func (d DiffRange) Inserted() int {
	return d.NewEnd - d.Start
}

// Removed is the number of code units of the old text that were replaced.
func (d DiffRange) Removed() int {
	return d.OldEnd - d.Start
}

// IsNoop reports whether the range replaces nothing with nothing.
func (d DiffRange) IsNoop() bool {
	return d.Start == d.OldEnd && d.Start == d.NewEnd
}

// Len returns the length of text in UTF-16 code units.
func Len(text string) int {
	n := 0
	for _, r := range text {
		n += utf16.RuneLen(r)
	}
	return n
}

func units(text string) []uint16 {
	return utf16.Encode([]rune(text))
}

func decode(u []uint16) string {
	return string(utf16.Decode(u))
}

// Diff computes the minimal single replacement turning old into new.
// Callers are expected to skip span maintenance when old == new.
func Diff(old, new string) DiffRange {
	return diffUnits(units(old), units(new), -1)
}

// DiffHint is Diff with the replacement start pinned to hint, the caret or
// selection start before the edit, when that describes a replacement of the
// same size. It disambiguates runs of repeated characters: typing "a" at
// offset 1 of "aa" is reported at 1 rather than at 2. A stale or unrelated
// hint is ignored.
func DiffHint(old, new string, hint int) DiffRange {
	return diffUnits(units(old), units(new), hint)
}

func diffUnits(a, b []uint16, hint int) DiffRange {
	prefix := 0
	for prefix < len(a) && prefix < len(b) && a[prefix] == b[prefix] {
		prefix++
	}
	// Never end the common prefix between the halves of a surrogate pair.
	if prefix > 0 && isHighSurrogate(a[prefix-1]) {
		prefix--
	}
	d := suffixFrom(a, b, prefix)
	if hint < 0 || hint >= prefix || splitsPair(a, hint) {
		return d
	}
	pinned := suffixFrom(a, b, hint)
	if pinned.Removed() != d.Removed() || pinned.Inserted() != d.Inserted() {
		return d
	}
	return pinned
}

// suffixFrom walks the common suffix inward without crossing start. A walk
// that stops between the halves of a surrogate pair gives the low half
// back to the replaced region.
func suffixFrom(a, b []uint16, start int) DiffRange {
	oldTail, newTail := len(a), len(b)
	for oldTail > start && newTail > start && a[oldTail-1] == b[newTail-1] {
		oldTail--
		newTail--
	}
	if oldTail < len(a) && newTail < len(b) && isLowSurrogate(a[oldTail]) && oldTail > 0 && isHighSurrogate(a[oldTail-1]) {
		oldTail++
		newTail++
	}
	return DiffRange{Start: start, OldEnd: oldTail, NewEnd: newTail}
}

func isHighSurrogate(u uint16) bool {
	return u >= 0xD800 && u < 0xDC00
}

func isLowSurrogate(u uint16) bool {
	return u >= 0xDC00 && u < 0xE000
}

// splitsPair reports whether offset off falls between the two halves of a
// surrogate pair in u.
func splitsPair(u []uint16, off int) bool {
	return off > 0 && off < len(u) && isHighSurrogate(u[off-1]) && isLowSurrogate(u[off])
}
