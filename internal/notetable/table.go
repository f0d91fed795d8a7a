// Package notetable implements the small grid a note can embed. A table has
// between one and MaxColumns columns and any number of rows; every row holds
// exactly Columns cells.
//
// Table has value semantics: mutating methods return an updated copy and
// never touch the receiver's row storage, so a stored note can hand out its
// tables without defensive copying.
package notetable

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

const (
	MaxColumns     = 5
	InitialColumns = 2
	InitialRows    = 2
)

// Table is a grid of plain-text cells.
type Table struct {
	ID      string     `json:"id"`
	Columns int        `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// New returns an empty 2x2 table with a fresh ID.
func New() Table {
	rows := make([][]string, InitialRows)
	for i := range rows {
		rows[i] = make([]string, InitialColumns)
	}
	return Table{ID: uuid.New().String(), Columns: InitialColumns, Rows: rows}
}

// Clone returns a deep copy.
func (t Table) Clone() Table {
	rows := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = append([]string(nil), r...)
	}
	t.Rows = rows
	return t
}

// SetCell sets one cell. Out-of-range coordinates leave the table unchanged.
func (t Table) SetCell(row, col int, value string) Table {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= t.Columns {
		return t
	}
	out := t.Clone()
	r := out.Rows[row]
	for len(r) < out.Columns {
		r = append(r, "")
	}
	r[col] = value
	out.Rows[row] = r
	return out
}

// AddRow appends a row of empty cells.
func (t Table) AddRow() Table {
	out := t.Clone()
	out.Rows = append(out.Rows, make([]string, out.Columns))
	return out
}

// AddColumn appends an empty cell to every row. At MaxColumns it is a no-op.
func (t Table) AddColumn() Table {
	if t.Columns >= MaxColumns {
		return t
	}
	out := t.Clone()
	out.Columns++
	for i, r := range out.Rows {
		for len(r) < out.Columns {
			r = append(r, "")
		}
		out.Rows[i] = r
	}
	return out
}

// Normalize repairs a table read back from storage: Columns is clamped to
// [1, MaxColumns] and rows are padded or truncated to Columns cells.
func (t Table) Normalize() Table {
	out := t.Clone()
	out.Columns = min(max(out.Columns, 1), MaxColumns)
	for i, r := range out.Rows {
		if len(r) > out.Columns {
			r = r[:out.Columns]
		}
		for len(r) < out.Columns {
			r = append(r, "")
		}
		out.Rows[i] = r
	}
	return out
}

// Equal reports whether t and o have the same ID, shape and cells.
func (t Table) Equal(o Table) bool {
	return t.ID == o.ID && t.Columns == o.Columns &&
		slices.EqualFunc(t.Rows, o.Rows, func(a, b []string) bool { return slices.Equal(a, b) })
}

// IsEmpty reports whether every cell is blank.
func (t Table) IsEmpty() bool {
	for _, r := range t.Rows {
		for _, c := range r {
			if strings.TrimSpace(c) != "" {
				return false
			}
		}
	}
	return true
}

// Markdown renders the table as a GitHub-flavored markdown table. The first
// row is the header. Pipes and newlines inside cells are escaped.
func (t Table) Markdown() string {
	t = t.Normalize()
	if len(t.Rows) == 0 {
		return ""
	}
	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteString("|")
		for _, c := range cells {
			fmt.Fprintf(&b, " %s |", escapeCell(c))
		}
		b.WriteString("\n")
	}
	writeRow(t.Rows[0])
	b.WriteString("|")
	for range t.Columns {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, r := range t.Rows[1:] {
		writeRow(r)
	}
	return b.String()
}

var cellEscaper = strings.NewReplacer(`\`, `\\`, "|", `\|`, "\r\n", " ", "\n", " ")

func escapeCell(s string) string {
	return cellEscaper.Replace(strings.TrimSpace(s))
}
