package notes

import (
	"strings"

	"github.com/kuitang/colornote/internal/annotate"
)

// PreviewLines is how many body lines a list entry shows.
const PreviewLines = 3

// ContentPreview returns the first maxLines lines of content. A cut is
// marked by a final "..." line.
func ContentPreview(content string, maxLines int) string {
	if maxLines <= 0 {
		return content
	}
	rest := content
	end := 0
	for i := 0; i < maxLines; i++ {
		nl := strings.IndexByte(rest, '\n')
		if nl < 0 {
			return content
		}
		end += nl + 1
		rest = rest[nl+1:]
	}
	return content[:end-1] + "\n..."
}

// CountLines returns the number of lines in content.
// An empty string has 0 lines.
func CountLines(content string) int {
	if content == "" {
		return 0
	}
	return strings.Count(content, "\n") + 1
}

// summaryPreview previews a body from its stored head. bodyLen is the full
// body length in UTF-16 code units and tells whether the head was cut.
func summaryPreview(head string, bodyLen int64) string {
	preview := ContentPreview(head, PreviewLines)
	if int64(annotate.Len(head)) < bodyLen && !strings.HasSuffix(preview, "\n...") {
		preview += "..."
	}
	return preview
}
