// Package tui is a terminal editor for one note. It repairs color spans
// locally on every keystroke and saves body and spans together.
package tui

import (
	"errors"
	"fmt"
	"slices"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kuitang/colornote/internal/annotate"
	"github.com/kuitang/colornote/internal/errs"
	"github.com/kuitang/colornote/internal/notes"
	"github.com/kuitang/colornote/internal/obs"
)

const (
	defaultWidth = 80
	minWidth     = 20
)

// Config wires runtime options into the TUI program.
type Config struct {
	Notes *notes.Service
	// NoteID selects the note to edit. Empty starts a new note.
	NoteID string
	// Title names a new note.
	Title string
}

// New returns a tea.Model ready to be mounted into a Program.
func New(config Config) tea.Model {
	return newModel(config)
}

func newModel(config Config) *model {
	return &model{
		config:      config,
		keys:        defaultKeyMap(),
		help:        help.New(),
		width:       defaultWidth,
		infoMessage: "Loading note…",
	}
}

type model struct {
	config Config
	keys   keyMap
	help   help.Model

	note   *notes.Note
	runes  []rune
	spans  []annotate.Span
	cursor int // rune index
	anchor int // rune index where marking started
	penIdx int

	marking    bool
	dirty      bool
	saving     bool
	saveQueued bool
	quitting   bool
	closed     bool

	width        int
	height       int
	infoMessage  string
	errorMessage string
	helpVisible  bool
}

func (m *model) Init() tea.Cmd {
	return loadNoteCmd(m.config.Notes, m.config.NoteID, m.config.Title)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = max(msg.Width, minWidth)
		m.height = msg.Height
		m.help.Width = m.width
		return m, nil
	case noteLoadedMsg:
		if msg.err != nil {
			m.errorMessage = errs.MessageOf(msg.err)
			m.infoMessage = "Press esc to quit."
			return m, nil
		}
		m.load(msg.note)
		m.infoMessage = "Type to write. ctrl+b marks, ctrl+k paints with the pen."
		return m, nil
	case savedMsg:
		return m.handleSaved(msg)
	case closedMsg:
		m.closed = true
		if msg.err != nil {
			obs.Pkg("tui").Error("note_close_failed", "error", msg.err.Error())
		}
		return m, tea.Quit
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *model) load(n *notes.Note) {
	m.note = n
	m.runes = []rune(n.Body)
	m.spans = slices.Clone(n.Spans)
	m.cursor = len(m.runes)
	m.marking = false
	m.dirty = false
	m.errorMessage = ""
}

func (m *model) handleSaved(msg savedMsg) (tea.Model, tea.Cmd) {
	m.saving = false
	if msg.err != nil {
		m.errorMessage = errs.MessageOf(msg.err)
		if errors.Is(msg.err, notes.ErrEditConflict) {
			m.infoMessage = "The note changed elsewhere; your text is kept here but was not saved."
		}
		m.saveQueued = false
		if m.quitting {
			return m, tea.Quit
		}
		return m, nil
	}

	m.note = msg.note
	if string(m.runes) == msg.body && slices.Equal(m.spans, msg.spans) {
		m.dirty = false
	}
	m.errorMessage = ""
	m.infoMessage = fmt.Sprintf("Saved (revision %d).", msg.note.Revision)

	if m.quitting {
		return m, m.closeCmd()
	}
	if m.saveQueued && m.dirty {
		m.saveQueued = false
		return m, m.save()
	}
	m.saveQueued = false
	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		if m.note == nil || m.quitting {
			return m, tea.Quit
		}
		m.quitting = true
		m.infoMessage = "Saving…"
		if m.saving {
			return m, nil
		}
		return m, m.closeCmd()
	}
	if m.note == nil || m.quitting {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Save):
		if !m.dirty {
			m.infoMessage = "Nothing to save."
			return m, nil
		}
		return m, m.save()
	case key.Matches(msg, m.keys.NextPen):
		m.penIdx = (m.penIdx + 1) % len(annotate.Palette)
		m.infoMessage = "Pen: " + penName(m.pen())
		return m, nil
	case key.Matches(msg, m.keys.PrevPen):
		m.penIdx = (m.penIdx + len(annotate.Palette) - 1) % len(annotate.Palette)
		m.infoMessage = "Pen: " + penName(m.pen())
		return m, nil
	case key.Matches(msg, m.keys.Mark):
		m.marking = !m.marking
		m.anchor = m.cursor
		if m.marking {
			m.infoMessage = "Marking. Move the cursor, then ctrl+k to paint."
		} else {
			m.infoMessage = "Mark cleared."
		}
		return m, nil
	case key.Matches(msg, m.keys.Paint):
		m.paint(m.pen())
		return m, nil
	case key.Matches(msg, m.keys.Erase):
		m.paint(annotate.DefaultColor)
		return m, nil
	case key.Matches(msg, m.keys.Help):
		m.helpVisible = !m.helpVisible
		m.help.ShowAll = m.helpVisible
		return m, nil
	}

	switch msg.Type {
	case tea.KeyRunes:
		m.insert(msg.Runes)
	case tea.KeySpace:
		m.insert([]rune{' '})
	case tea.KeyEnter:
		m.insert([]rune{'\n'})
	case tea.KeyTab:
		m.insert([]rune{'\t'})
	case tea.KeyBackspace:
		if from, to, ok := m.selection(); ok {
			m.replace(from, to, nil)
		} else if m.cursor > 0 {
			m.replace(m.cursor-1, m.cursor, nil)
		}
	case tea.KeyDelete:
		if from, to, ok := m.selection(); ok {
			m.replace(from, to, nil)
		} else if m.cursor < len(m.runes) {
			m.replace(m.cursor, m.cursor+1, nil)
		}
	case tea.KeyLeft:
		m.cursor = max(m.cursor-1, 0)
	case tea.KeyRight:
		m.cursor = min(m.cursor+1, len(m.runes))
	case tea.KeyHome:
		m.cursor = m.lineStart(m.cursor)
	case tea.KeyEnd:
		m.cursor = m.lineEnd(m.cursor)
	case tea.KeyUp:
		m.moveLine(-1)
	case tea.KeyDown:
		m.moveLine(1)
	}
	return m, nil
}

func (m *model) pen() annotate.Color {
	return annotate.Palette[m.penIdx]
}

// selection returns the marked rune range when it is non-empty.
func (m *model) selection() (from, to int, ok bool) {
	if !m.marking || m.anchor == m.cursor {
		return 0, 0, false
	}
	return min(m.anchor, m.cursor), max(m.anchor, m.cursor), true
}

// offset converts a rune index into a UTF-16 offset.
func (m *model) offset(i int) int {
	return annotate.Len(string(m.runes[:i]))
}

func (m *model) insert(text []rune) {
	if from, to, ok := m.selection(); ok {
		m.replace(from, to, text)
		return
	}
	m.replace(m.cursor, m.cursor, text)
}

// replace swaps runes [from, to) for text and repairs the spans. The
// replaced range is reported as the selection so the diff lands exactly
// where the edit happened.
func (m *model) replace(from, to int, text []rune) {
	old := string(m.runes)
	sel := annotate.Selection{Start: m.offset(from), End: m.offset(to)}

	next := make([]rune, 0, len(m.runes)-(to-from)+len(text))
	next = append(next, m.runes[:from]...)
	next = append(next, text...)
	next = append(next, m.runes[to:]...)

	m.spans = annotate.OnTextChanged(annotate.Edit{
		Old:       old,
		New:       string(next),
		Selection: sel,
		Pen:       m.pen(),
	}, m.spans)
	m.runes = next
	m.cursor = from + len(text)
	m.marking = false
	m.dirty = true
}

func (m *model) paint(color annotate.Color) {
	from, to, ok := m.selection()
	if !ok {
		m.infoMessage = "Mark a range first (ctrl+b)."
		return
	}
	sel := annotate.Selection{Start: m.offset(from), End: m.offset(to)}
	next := annotate.OnExplicitColor(string(m.runes), sel, color, m.spans)
	m.marking = false
	if slices.Equal(next, m.spans) {
		m.infoMessage = "Nothing to change."
		return
	}
	m.spans = next
	m.dirty = true
	if color == annotate.DefaultColor {
		m.infoMessage = "Color erased."
	} else {
		m.infoMessage = "Painted " + penName(color) + "."
	}
}

func (m *model) save() tea.Cmd {
	if m.saving {
		m.saveQueued = true
		return nil
	}
	m.saving = true
	m.infoMessage = "Saving…"
	return saveCmd(m.config.Notes, m.note.ID, string(m.runes), m.spans, m.note.Revision)
}

func (m *model) closeCmd() tea.Cmd {
	return closeCmd(m.config.Notes, m.note.ID, string(m.runes), m.spans, m.note.Revision, m.dirty)
}

func (m *model) lineStart(i int) int {
	for i > 0 && m.runes[i-1] != '\n' {
		i--
	}
	return i
}

func (m *model) lineEnd(i int) int {
	for i < len(m.runes) && m.runes[i] != '\n' {
		i++
	}
	return i
}

// moveLine moves the cursor dir lines up or down, keeping the column where
// the target line is long enough.
func (m *model) moveLine(dir int) {
	start := m.lineStart(m.cursor)
	col := m.cursor - start
	switch {
	case dir < 0 && start > 0:
		prev := m.lineStart(start - 1)
		m.cursor = min(prev+col, start-1)
	case dir > 0:
		end := m.lineEnd(m.cursor)
		if end == len(m.runes) {
			return
		}
		next := end + 1
		m.cursor = min(next+col, m.lineEnd(next))
	}
}
