package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/kuitang/colornote/internal/annotate"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e0def4"))
	helperStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6")).Padding(0, 1)
	cursorStyle   = lipgloss.NewStyle().Reverse(true)
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("#3a3a5a"))
)

var penNames = map[annotate.Color]string{
	annotate.Palette[0]: "default",
	annotate.Palette[1]: "red",
	annotate.Palette[2]: "blue",
	annotate.Palette[3]: "green",
	annotate.Palette[4]: "orange",
	annotate.Palette[5]: "purple",
}

func penName(c annotate.Color) string {
	if name, ok := penNames[c]; ok {
		return name
	}
	return c.String()
}

func (m *model) View() string {
	if m.closed {
		return ""
	}
	parts := []string{m.headerView()}
	if m.note != nil {
		parts = append(parts, wordwrap.String(m.bodyView(), m.width))
	}
	if m.errorMessage != "" {
		parts = append(parts, errorStyle.Render(m.errorMessage))
	}
	if m.infoMessage != "" {
		parts = append(parts, helperStyle.Render(m.infoMessage))
	}
	parts = append(parts, m.statusView(), m.help.View(m.keys))
	return joinNonEmpty(parts)
}

func (m *model) headerView() string {
	if m.note == nil {
		return titleStyle.Render("colornote")
	}
	title := strings.TrimSpace(m.note.Title)
	if title == "" {
		title = "Untitled note"
	}
	return titleStyle.Render(title)
}

func (m *model) statusView() string {
	if m.note == nil {
		return ""
	}
	pen := m.pen()
	swatch := "●"
	if pen != annotate.DefaultColor {
		swatch = lipgloss.NewStyle().Foreground(lipgloss.Color(pen.Hex())).Render(swatch)
	}
	state := "saved"
	if m.dirty {
		state = "modified"
	}
	status := fmt.Sprintf("pen %s %s  %d chars  %d spans  %s",
		swatch, penName(pen), len(m.runes), len(m.spans), state)
	if n := len(m.note.Tables); n > 0 {
		status += fmt.Sprintf("  %d tables", n)
	}
	if n := len(m.note.Images); n > 0 {
		status += fmt.Sprintf("  %d images", n)
	}
	return statusStyle.Render(status)
}

// cell is one rune of the body with how it is drawn.
type cell struct {
	r        rune
	color    annotate.Color
	selected bool
	cursor   bool
}

// bodyView renders the buffer with span colors, the marked range and the
// cursor.
func (m *model) bodyView() string {
	colors := runeColors(m.runes, annotate.Project(string(m.runes), m.spans))
	from, to, marked := m.selection()

	cells := make([]cell, 0, len(m.runes)+1)
	for i, r := range m.runes {
		cells = append(cells, cell{
			r:        r,
			color:    colors[i],
			selected: marked && i >= from && i < to,
			cursor:   i == m.cursor,
		})
	}
	if m.cursor == len(m.runes) {
		cells = append(cells, cell{r: ' ', cursor: true})
	}

	var b strings.Builder
	for start := 0; start < len(cells); {
		end := start + 1
		for end < len(cells) && sameLook(cells[start], cells[end]) && cells[end].r != '\n' && cells[start].r != '\n' {
			end++
		}
		b.WriteString(renderRun(cells[start:end]))
		start = end
	}
	return b.String()
}

func sameLook(a, b cell) bool {
	return a.color == b.color && a.selected == b.selected && a.cursor == b.cursor
}

func renderRun(run []cell) string {
	first := run[0]
	if first.r == '\n' {
		if first.cursor {
			return cursorStyle.Render(" ") + "\n"
		}
		return "\n"
	}
	var text strings.Builder
	for _, c := range run {
		text.WriteRune(c.r)
	}
	style := lipgloss.NewStyle()
	if first.color != annotate.NoColor {
		style = style.Foreground(lipgloss.Color(first.color.Hex()))
	}
	if first.selected {
		style = style.Inherit(selectedStyle)
	}
	if first.cursor {
		style = style.Inherit(cursorStyle)
	}
	return style.Render(text.String())
}

// runeColors assigns each rune the color of the projected segment that
// covers its UTF-16 offset.
func runeColors(runes []rune, segments []annotate.Segment) []annotate.Color {
	colors := make([]annotate.Color, len(runes))
	off, seg, segEnd := 0, 0, 0
	if len(segments) > 0 {
		segEnd = annotate.Len(segments[0].Text)
	}
	for i, r := range runes {
		for seg < len(segments)-1 && off >= segEnd {
			seg++
			segEnd += annotate.Len(segments[seg].Text)
		}
		if seg < len(segments) {
			colors[i] = segments[seg].Color
		}
		off += annotate.Len(string(r))
	}
	return colors
}

func joinNonEmpty(parts []string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}
