package notes

import (
	"errors"
	"strings"
	"time"

	"github.com/kuitang/colornote/internal/annotate"
	"github.com/kuitang/colornote/internal/notetable"
)

var (
	// ErrNoteNotFound is returned when no note has the requested ID.
	ErrNoteNotFound = errors.New("note not found")

	// ErrTableNotFound is returned when a note has no table with the requested ID.
	ErrTableNotFound = errors.New("table not found")

	// ErrImageNotFound is returned when a note does not reference the image key.
	ErrImageNotFound = errors.New("image not found")

	// ErrEditConflict is returned when concurrent writers kept winning the
	// revision race until retries ran out.
	ErrEditConflict = errors.New("note was changed concurrently")
)

// Note is a titled body of text with its color spans, image attachment keys
// and tables. Spans are sorted, disjoint, non-empty and lie within the body.
type Note struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Spans     []annotate.Span   `json:"spans"`
	Images    []string          `json:"images"`
	Tables    []notetable.Table `json:"tables"`
	Revision  int64             `json:"revision"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// IsEmpty reports whether the note has nothing worth keeping: a blank
// title and body, no images and no tables.
func (n *Note) IsEmpty() bool {
	return strings.TrimSpace(n.Title) == "" &&
		strings.TrimSpace(n.Body) == "" &&
		len(n.Images) == 0 &&
		len(n.Tables) == 0
}

// Table returns the note's table with the given ID.
func (n *Note) Table(tableID string) (notetable.Table, int, bool) {
	for i, t := range n.Tables {
		if t.ID == tableID {
			return t, i, true
		}
	}
	return notetable.Table{}, -1, false
}

// NoteSummary is a list entry. Length is in UTF-16 code units.
type NoteSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Preview   string    `json:"preview"`
	Length    int64     `json:"length"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NoteListResult is one page of notes, newest first.
type NoteListResult struct {
	Notes      []NoteSummary `json:"notes"`
	TotalCount int64         `json:"total_count"`
	Limit      int           `json:"limit"`
	Offset     int           `json:"offset"`
}

// SearchHit is one full-text match. Snippet marks matches with **.
type SearchHit struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Snippet   string    `json:"snippet"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SearchResults holds the hits of a search, or title suggestions when
// there were none.
type SearchResults struct {
	Query       string      `json:"query"`
	Hits        []SearchHit `json:"hits"`
	Suggestions []string    `json:"suggestions,omitempty"`
}

// EditParams describes one text change from an editor: the full new body,
// the caret or selection in the stored body before the change, and the
// active pen.
type EditParams struct {
	Text      string             `json:"text"`
	Selection annotate.Selection `json:"selection"`
	Pen       annotate.Color     `json:"pen"`
}
