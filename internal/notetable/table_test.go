package notetable

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestNew_IsTwoByTwo(t *testing.T) {
	t.Parallel()

	tbl := New()
	if tbl.ID == "" {
		t.Fatal("New returned an empty ID")
	}
	if tbl.Columns != 2 || len(tbl.Rows) != 2 {
		t.Fatalf("New = %d columns, %d rows; want 2x2", tbl.Columns, len(tbl.Rows))
	}
	for _, r := range tbl.Rows {
		if len(r) != 2 {
			t.Fatalf("row has %d cells, want 2", len(r))
		}
	}
	if New().ID == tbl.ID {
		t.Fatal("two tables share an ID")
	}
}

func TestAddColumn_StopsAtFive(t *testing.T) {
	t.Parallel()

	tbl := New()
	for range 4 {
		tbl = tbl.AddColumn()
	}
	if tbl.Columns != MaxColumns {
		t.Fatalf("Columns = %d, want %d", tbl.Columns, MaxColumns)
	}
	for _, r := range tbl.Rows {
		if len(r) != MaxColumns {
			t.Fatalf("row has %d cells, want %d", len(r), MaxColumns)
		}
	}
}

func TestSetCell_OutOfRangeIsNoop(t *testing.T) {
	t.Parallel()

	tbl := New().SetCell(0, 1, "x")
	for _, rc := range [][2]int{{-1, 0}, {2, 0}, {0, 2}, {0, -1}} {
		got := tbl.SetCell(rc[0], rc[1], "oops")
		if !got.Equal(tbl) {
			t.Fatalf("SetCell(%d,%d) changed the table: %v", rc[0], rc[1], got.Rows)
		}
	}
	if tbl.Rows[0][1] != "x" {
		t.Fatalf("cell = %q, want x", tbl.Rows[0][1])
	}
}

func TestSetCell_DoesNotAliasReceiver(t *testing.T) {
	t.Parallel()

	before := New()
	after := before.SetCell(1, 1, "changed")
	if before.Rows[1][1] != "" {
		t.Fatalf("receiver modified: %v", before.Rows)
	}
	if after.Rows[1][1] != "changed" {
		t.Fatalf("result = %v", after.Rows)
	}
}

func TestNormalize_RepairsRaggedRows(t *testing.T) {
	t.Parallel()

	tbl := Table{ID: "t", Columns: 9, Rows: [][]string{{"a"}, {"a", "b", "c", "d", "e", "f"}, nil}}
	got := tbl.Normalize()
	if got.Columns != MaxColumns {
		t.Fatalf("Columns = %d", got.Columns)
	}
	for i, r := range got.Rows {
		if len(r) != MaxColumns {
			t.Fatalf("row %d has %d cells", i, len(r))
		}
	}
	if got.Rows[0][0] != "a" || got.Rows[1][4] != "e" {
		t.Fatalf("Normalize lost cells: %v", got.Rows)
	}
	if (Table{Columns: 0, Rows: [][]string{{}}}).Normalize().Columns != 1 {
		t.Fatal("zero columns not clamped to 1")
	}
}

func TestMarkdown(t *testing.T) {
	t.Parallel()

	tbl := New().SetCell(0, 0, "Item").SetCell(0, 1, "Cost").SetCell(1, 0, "a|b").SetCell(1, 1, "3\n4")
	want := "| Item | Cost |\n| --- | --- |\n| a\\|b | 3 4 |\n"
	if got := tbl.Markdown(); got != want {
		t.Fatalf("Markdown =\n%s\nwant\n%s", got, want)
	}
	if got := (Table{Columns: 2}).Markdown(); got != "" {
		t.Fatalf("Markdown of a table with no rows = %q", got)
	}
}

func TestIsEmpty(t *testing.T) {
	t.Parallel()

	if !New().IsEmpty() {
		t.Fatal("new table not empty")
	}
	if New().SetCell(1, 0, " x ").IsEmpty() {
		t.Fatal("table with content reported empty")
	}
}

// =============================================================================
// Property: any sequence of operations keeps the grid rectangular and capped
// =============================================================================

func testTable_ShapeInvariant(t *rapid.T) {
	tbl := New()
	ops := rapid.SliceOfN(rapid.IntRange(0, 2), 0, 40).Draw(t, "ops")
	for i, op := range ops {
		before := tbl
		switch op {
		case 0:
			tbl = tbl.AddRow()
			if len(tbl.Rows) != len(before.Rows)+1 {
				t.Fatalf("op %d: AddRow did not add a row", i)
			}
		case 1:
			tbl = tbl.AddColumn()
			want := min(before.Columns+1, MaxColumns)
			if tbl.Columns != want {
				t.Fatalf("op %d: Columns = %d, want %d", i, tbl.Columns, want)
			}
		case 2:
			row := rapid.IntRange(-1, len(tbl.Rows)).Draw(t, "row")
			col := rapid.IntRange(-1, tbl.Columns).Draw(t, "col")
			tbl = tbl.SetCell(row, col, rapid.StringMatching(`[a-z|]{0,4}`).Draw(t, "value"))
		}

		if tbl.Columns < 1 || tbl.Columns > MaxColumns {
			t.Fatalf("op %d: Columns = %d", i, tbl.Columns)
		}
		for j, r := range tbl.Rows {
			if len(r) != tbl.Columns {
				t.Fatalf("op %d: row %d has %d cells, want %d", i, j, len(r), tbl.Columns)
			}
		}
		if !tbl.Normalize().Equal(tbl) {
			t.Fatalf("op %d: a well-formed table changed under Normalize", i)
		}
		if lines := strings.Count(tbl.Markdown(), "\n"); lines != len(tbl.Rows)+1 {
			t.Fatalf("op %d: markdown has %d lines for %d rows", i, lines, len(tbl.Rows))
		}
	}
}

func TestTable_ShapeInvariant(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testTable_ShapeInvariant)
}

func FuzzTable_ShapeInvariant(f *testing.F) {
	f.Add([]byte{0x00})
	f.Fuzz(rapid.MakeFuzz(testTable_ShapeInvariant))
}

