// Package testutil provides shared generators for property-based tests of
// the storage and notes layers. String generators are aggressive on purpose:
// note text is arbitrary user input and span offsets are UTF-16 based, so
// astral-plane characters and control bytes must round-trip.
package testutil

import (
	"strings"

	"pgregory.net/rapid"
)

// ArbitraryString generates strings including:
// - Empty strings
// - Null bytes
// - Unicode (CJK, RTL, emoji and ZWJ sequences)
// - Control characters
// - SQL injection attempts
// - FTS5 special syntax
func ArbitraryString() *rapid.Generator[string] {
	return rapid.OneOf(
		rapid.String(),
		rapid.Just(""),
		rapid.Just("\x00"),
		rapid.Just("test\x00test"),
		rapid.StringMatching(`[a-zA-Z0-9 ]{0,100}`),
		rapid.StringMatching(`[\x01-\x1F]{1,10}`),
		arbitrarySQLInjection(),
		arbitraryFTS5Syntax(),
		arbitraryUnicode(),
		arbitraryWhitespace(),
		arbitraryLongString(),
	)
}

// ArbitrarySearchQuery generates strings suitable for FTS5 search testing.
func ArbitrarySearchQuery() *rapid.Generator[string] {
	return rapid.OneOf(
		rapid.String(),
		rapid.Just(""),
		rapid.Just("test\x00test"),
		arbitrarySQLInjection(),
		arbitraryFTS5Syntax(),
		arbitraryUnicode(),
		arbitraryWhitespace(),
	)
}

// ArbitraryNoteTitle generates titles. Titles may be blank.
func ArbitraryNoteTitle() *rapid.Generator[string] {
	return rapid.OneOf(
		rapid.StringMatching(`[A-Za-z ]{0,30}`),
		arbitraryUnicode(),
		arbitrarySQLInjection(),
	)
}

// ArbitraryNoteBody generates note bodies.
func ArbitraryNoteBody() *rapid.Generator[string] {
	return ArbitraryString()
}

// arbitrarySQLInjection generates common SQL injection patterns
func arbitrarySQLInjection() *rapid.Generator[string] {
	return rapid.SampledFrom([]string{
		`' OR 1=1 --`,
		`'; DROP TABLE notes; --`,
		`" OR "1"="1`,
		`'; DELETE FROM fts_notes; --`,
		`' UNION SELECT spans_json FROM notes --`,
		`<script>alert('xss')</script>`,
		`<span style="color:red" onclick="x()">hi</span>`,
	})
}

// arbitraryFTS5Syntax generates FTS5 special syntax that could cause parsing errors
func arbitraryFTS5Syntax() *rapid.Generator[string] {
	return rapid.SampledFrom([]string{
		`"`,
		`""`,
		`test"`,
		`"test`,
		`AND`,
		`OR`,
		`NOT`,
		`NEAR/5`,
		`*`,
		`^test`,
		`col:value`,
		`(test`,
		`-test`,
		`test AND OR`,
		`"unterminated phrase`,
	})
}

// arbitraryUnicode generates Unicode edge cases, weighted toward characters
// outside the BMP that occupy two UTF-16 code units.
func arbitraryUnicode() *rapid.Generator[string] {
	return rapid.SampledFrom([]string{
		"日本語",
		"中文测试",
		"العربية",
		"🔥🎉💻🚀",
		"emoji🔥in🎉middle",
		"Zürich",
		"\u200B",
		"\uFEFF",
		"a\u0300",
		"\u202E" + "reversed" + "\u202C",
		"🧑‍💻",
		"👨‍👩‍👧‍👦",
		"\U0001F1FA\U0001F1F8",
		"line\u2028separator",
		"𝄞 music",
	})
}

// arbitraryWhitespace generates various whitespace patterns
func arbitraryWhitespace() *rapid.Generator[string] {
	return rapid.SampledFrom([]string{
		" ",
		"\t",
		"\n",
		"\r\n",
		" \t \n ",
		"line1\nline2",
		"\u00A0",
		"\u3000",
	})
}

// arbitraryLongString generates long strings to exercise size handling.
func arbitraryLongString() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		length := rapid.SampledFrom([]int{1000, 10000, 100000}).Draw(t, "length")
		return string([]rune(strings.Repeat("abcdefghi😀", length/10+1))[:length])
	})
}
