package export

import (
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/kuitang/colornote/internal/annotate"
	"github.com/kuitang/colornote/internal/notes"
	"github.com/kuitang/colornote/internal/notetable"
)

func sampleNote() *notes.Note {
	t := notetable.New().SetCell(0, 0, "Item").SetCell(0, 1, "Qty").SetCell(1, 0, "Eggs").SetCell(1, 1, "12")
	return &notes.Note{
		ID:    "n1",
		Title: "Groceries",
		Body:  "buy milk\nand eggs",
		Spans: []annotate.Span{
			{Start: 4, End: 8, Color: 0xFFD32F2F},
		},
		Images:    []string{"notes/n1/a.png"},
		Tables:    []notetable.Table{t},
		UpdatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestDocument_RendersColorsImagesAndTables(t *testing.T) {
	out, err := Document(sampleNote(), func(key string) string {
		return "https://img.example.com/" + key
	})
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	page := string(out)

	for _, want := range []string{
		"<title>Groceries</title>",
		`buy <span style="color:#d32f2f">milk</span>`,
		"https://img.example.com/notes/n1/a.png",
		"<table>",
		"Eggs",
		`content="buy milk"`,
	} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestDocument_NilImageURLSkipsImages(t *testing.T) {
	out, err := Document(sampleNote(), nil)
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if strings.Contains(string(out), "<img") {
		t.Fatal("images rendered without an image URL func")
	}
}

func TestDocument_UntitledNote(t *testing.T) {
	out, err := Document(&notes.Note{ID: "n2", Body: "x"}, nil)
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if !strings.Contains(string(out), "<title>Untitled note</title>") {
		t.Fatal("blank title not replaced")
	}
}

func TestDocument_EscapesTitleAndBody(t *testing.T) {
	n := &notes.Note{
		ID:    "n3",
		Title: `<script>alert("t")</script>`,
		Body:  `<script>alert("b")</script><img src=x onerror=alert(1)>`,
	}
	out, err := Document(n, nil)
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	page := string(out)
	if strings.Contains(page, "<script>") || strings.Contains(page, "<img") {
		t.Fatalf("unescaped markup in page:\n%s", page)
	}
	if !strings.Contains(page, "&lt;script&gt;") {
		t.Fatal("body text was dropped instead of escaped")
	}
}

func TestImage_DropsScriptURLs(t *testing.T) {
	if got := string(Image("javascript:alert(1)")); strings.Contains(got, "javascript") {
		t.Fatalf("Image kept script URL: %s", got)
	}
	if got := string(Image("https://img.example.com/a.png")); !strings.Contains(got, `src="https://img.example.com/a.png"`) {
		t.Fatalf("Image = %s", got)
	}
}

func TestTable_EscapesCellMarkup(t *testing.T) {
	tbl := notetable.New().SetCell(0, 0, "<b onclick=x>hi</b>").SetCell(1, 1, "total")
	got := string(Table(tbl.Markdown()))
	if strings.Contains(got, "onclick") {
		t.Fatalf("event handler survived: %s", got)
	}
	if !strings.Contains(got, "<table>") || !strings.Contains(got, "total") {
		t.Fatalf("Table = %s", got)
	}
	if Table("") != "" {
		t.Fatal("empty markdown rendered a table")
	}
}

// =============================================================================
// Property: Every colored run is exported with exactly its color
// =============================================================================

func testSegments_OneSpanPerColoredRun(t *rapid.T) {
	runs := rapid.SliceOfN(rapid.StringMatching(`[a-z ]{1,8}`), 1, 10).Draw(t, "runs")
	var segs []annotate.Segment
	colored := 0
	for i, text := range runs {
		c := annotate.NoColor
		if rapid.Bool().Draw(t, "colored") {
			c = annotate.Palette[1+i%(len(annotate.Palette)-1)]
			colored++
		}
		segs = append(segs, annotate.Segment{Text: text, Color: c})
	}

	got := string(Segments(segs))
	if n := strings.Count(got, "<span "); n != colored {
		t.Fatalf("got %d spans, want %d: %s", n, colored, got)
	}
	for _, seg := range segs {
		if seg.Color == annotate.NoColor {
			continue
		}
		want := `<span style="color:` + seg.Color.Hex() + `">` + seg.Text + "</span>"
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in %s", want, got)
		}
	}
}

func TestSegments_OneSpanPerColoredRun(t *testing.T) {
	rapid.Check(t, testSegments_OneSpanPerColoredRun)
}

func FuzzSegments_OneSpanPerColoredRun(f *testing.F) {
	f.Fuzz(rapid.MakeFuzz(testSegments_OneSpanPerColoredRun))
}
