package tui

import (
	"context"
	"slices"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kuitang/colornote/internal/annotate"
	"github.com/kuitang/colornote/internal/notes"
	"github.com/kuitang/colornote/internal/obs"
)

const storeTimeout = 10 * time.Second

type noteLoadedMsg struct {
	note *notes.Note
	err  error
}

type savedMsg struct {
	note  *notes.Note
	body  string
	spans []annotate.Span
	err   error
}

type closedMsg struct {
	discarded bool
	err       error
}

// loadNoteCmd reads the note with id, or creates one titled title when id
// is empty.
func loadNoteCmd(svc *notes.Service, id, title string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if id == "" {
			n, err := svc.Create(ctx, notes.CreateNoteParams{Title: title})
			return noteLoadedMsg{note: n, err: err}
		}
		n, err := svc.Read(obs.WithNoteID(ctx, id), id)
		return noteLoadedMsg{note: n, err: err}
	}
}

// saveCmd stores a snapshot of the buffer. The snapshot is copied so later
// keystrokes cannot race the write.
func saveCmd(svc *notes.Service, id string, body string, spans []annotate.Span, baseRevision int64) tea.Cmd {
	spans = slices.Clone(spans)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(obs.WithNoteID(context.Background(), id), storeTimeout)
		defer cancel()
		n, err := svc.SaveContent(ctx, id, notes.ContentParams{
			Body:         body,
			Spans:        spans,
			BaseRevision: baseRevision,
		})
		return savedMsg{note: n, body: body, spans: spans, err: err}
	}
}

// closeCmd saves pending changes, then drops the note if it ended up empty.
func closeCmd(svc *notes.Service, id string, body string, spans []annotate.Span, baseRevision int64, dirty bool) tea.Cmd {
	spans = slices.Clone(spans)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(obs.WithNoteID(context.Background(), id), storeTimeout)
		defer cancel()
		if dirty {
			_, err := svc.SaveContent(ctx, id, notes.ContentParams{
				Body:         body,
				Spans:        spans,
				BaseRevision: baseRevision,
			})
			if err != nil {
				return closedMsg{err: err}
			}
		}
		discarded, err := svc.DeleteIfEmpty(ctx, id)
		return closedMsg{discarded: discarded, err: err}
	}
}
