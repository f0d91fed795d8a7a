// Package notes is the note service: it keeps each note's color spans
// consistent with its text across edits and stores notes in the encrypted
// database, with image attachments in object storage.
package notes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/kuitang/colornote/internal/annotate"
	"github.com/kuitang/colornote/internal/attachments"
	"github.com/kuitang/colornote/internal/db"
	"github.com/kuitang/colornote/internal/errs"
	"github.com/kuitang/colornote/internal/logutil"
	"github.com/kuitang/colornote/internal/notetable"
	"github.com/kuitang/colornote/internal/obs"
)

const (
	// DefaultLimit is the default number of notes to return in a list
	DefaultLimit = 50

	// MaxLimit is the maximum number of notes to return in a list
	MaxLimit = 1000

	// maxWriteAttempts bounds read-modify-write retries on a revision conflict.
	maxWriteAttempts = 5

	logPreviewChars = 60
)

// errUnchanged tells mutate that fn left the note as it was.
var errUnchanged = errors.New("unchanged")

// ImageStore holds image bytes for notes. *attachments.Store implements it.
type ImageStore interface {
	Put(ctx context.Context, noteID string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) (attachments.Object, error)
	Delete(ctx context.Context, key string) error
	DeleteNote(ctx context.Context, noteID string) (int, error)
	URL(key string) string
}

// Service handles note operations on top of the db layer. It is safe for
// concurrent use: every mutation is a read-modify-write checked against the
// note's revision.
type Service struct {
	store  *db.Store
	images ImageStore
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a notes service. images may be nil, in which case
// image operations fail with errs.Unavailable.
func NewService(store *db.Store, images ImageStore, opts ...Option) *Service {
	s := &Service{store: store, images: images, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateNoteParams are the initial contents of a note. Both may be empty.
type CreateNoteParams struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Create creates a note. The body starts uncolored.
func (s *Service) Create(ctx context.Context, params CreateNoteParams) (*Note, error) {
	if err := checkTitle(params.Title); err != nil {
		return nil, err
	}
	if err := checkBody(params.Body); err != nil {
		return nil, err
	}

	now := s.timestamp()
	n := &Note{
		ID:        uuid.NewString(),
		Title:     params.Title,
		Body:      params.Body,
		Spans:     []annotate.Span{},
		Images:    []string{},
		Tables:    []notetable.Table{},
		Revision:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	row, err := encodeNote(n)
	if err != nil {
		return nil, err
	}
	if err := s.store.InsertNote(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	obs.From(ctx).With("pkg", "notes").Debug("note_created",
		"note_id", n.ID,
		"title", logutil.TruncateForLog(n.Title, logPreviewChars),
	)
	return n, nil
}

// Read retrieves a note by ID
func (s *Service) Read(ctx context.Context, id string) (*Note, error) {
	if id == "" {
		return nil, errs.New(errs.InvalidArgument, "note ID is required")
	}
	row, err := s.store.GetNote(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read note: %w", err)
	}
	return decodeNote(row)
}

// List returns notes newest first. A limit of 0 means DefaultLimit.
func (s *Service) List(ctx context.Context, limit, offset int) (*NoteListResult, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}

	total, err := s.store.CountNotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count notes: %w", err)
	}
	rows, err := s.store.ListNotes(ctx, int64(limit), int64(offset))
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	out := make([]NoteSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, NoteSummary{
			ID:        r.ID,
			Title:     r.Title,
			Preview:   summaryPreview(r.Head, r.BodyLen),
			Length:    r.BodyLen,
			CreatedAt: fromMillis(r.CreatedAt),
			UpdatedAt: fromMillis(r.UpdatedAt),
		})
	}
	return &NoteListResult{Notes: out, TotalCount: total, Limit: limit, Offset: offset}, nil
}

// Delete removes a note and its images. A failure to remove images is
// logged; the note is gone either way.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errs.New(errs.InvalidArgument, "note ID is required")
	}
	err := s.store.DeleteNote(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return notFound(id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	s.purgeImages(ctx, id)
	return nil
}

// DeleteIfEmpty deletes the note when it has a blank title and body, no
// images and no tables. It reports whether the note was deleted. A note
// that gains content while this runs is kept.
func (s *Service) DeleteIfEmpty(ctx context.Context, id string) (bool, error) {
	n, err := s.Read(ctx, id)
	if err != nil {
		return false, err
	}
	if !n.IsEmpty() {
		return false, nil
	}
	err = s.store.DeleteNoteAtRevision(ctx, id, n.Revision)
	switch {
	case errors.Is(err, db.ErrConflict):
		return false, nil
	case errors.Is(err, db.ErrNotFound):
		return false, notFound(id)
	case err != nil:
		return false, fmt.Errorf("failed to delete empty note: %w", err)
	}
	obs.From(ctx).With("pkg", "notes").Debug("empty_note_deleted", "note_id", id)
	return true, nil
}

// SetTitle replaces the note's title. Spans index the body only and are
// unaffected.
func (s *Service) SetTitle(ctx context.Context, id, title string) (*Note, error) {
	if err := checkTitle(title); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(n *Note) error {
		if n.Title == title {
			return errUnchanged
		}
		n.Title = title
		return nil
	})
}

// ApplyEdit replaces the body with p.Text and repairs the spans: the
// changed region is found by diffing against the stored body, existing
// spans are shifted, and inserted text takes the pen color.
func (s *Service) ApplyEdit(ctx context.Context, id string, p EditParams) (*Note, error) {
	if err := checkBody(p.Text); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(n *Note) error {
		if n.Body == p.Text {
			return errUnchanged
		}
		n.Spans = annotate.OnTextChanged(annotate.Edit{
			Old:       n.Body,
			New:       p.Text,
			Selection: p.Selection,
			Pen:       p.Pen,
		}, n.Spans)
		n.Body = p.Text
		obs.From(ctx).With("pkg", "notes").Debug("note_edited",
			"note_id", n.ID,
			"pen", p.Pen.String(),
			"body", logutil.TruncateForLog(n.Body, logPreviewChars),
			"spans", len(n.Spans),
		)
		return nil
	})
}

// Paint colors the selected range of the body. DefaultColor erases color.
// An empty selection changes nothing.
func (s *Service) Paint(ctx context.Context, id string, sel annotate.Selection, color annotate.Color) (*Note, error) {
	return s.mutate(ctx, id, func(n *Note) error {
		next := annotate.OnExplicitColor(n.Body, sel, color, n.Spans)
		if slices.Equal(next, n.Spans) {
			return errUnchanged
		}
		n.Spans = next
		return nil
	})
}

// ContentParams replace a note's body and spans together. Editors that
// repair spans locally save through it. A non-zero BaseRevision must match
// the stored revision.
type ContentParams struct {
	Body         string          `json:"body"`
	Spans        []annotate.Span `json:"spans"`
	BaseRevision int64           `json:"base_revision,omitempty"`
}

// SaveContent stores a body and spans computed by the caller. The spans
// must be valid for the body.
func (s *Service) SaveContent(ctx context.Context, id string, p ContentParams) (*Note, error) {
	if err := checkBody(p.Body); err != nil {
		return nil, err
	}
	if err := annotate.Validate(p.Spans, annotate.Len(p.Body)); err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, "invalid spans: "+err.Error(), err)
	}
	if err := annotate.CheckBoundaries(p.Body, p.Spans); err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, "invalid spans: "+err.Error(), err)
	}
	for _, sp := range p.Spans {
		if sp.Color == annotate.NoColor || sp.Color == annotate.DefaultColor {
			return nil, errs.Newf(errs.InvalidArgument, "span [%d,%d) has no annotation color", sp.Start, sp.End)
		}
	}
	return s.mutate(ctx, id, func(n *Note) error {
		if p.BaseRevision != 0 && n.Revision != p.BaseRevision {
			return errs.Wrap(errs.Aborted,
				fmt.Sprintf("note %s is at revision %d, not %d", id, n.Revision, p.BaseRevision),
				ErrEditConflict)
		}
		if n.Body == p.Body && slices.Equal(n.Spans, p.Spans) {
			return errUnchanged
		}
		n.Body = p.Body
		n.Spans = nonNil(slices.Clone(p.Spans))
		return nil
	})
}

// Segments returns the note body split into colored runs for rendering.
func (s *Service) Segments(ctx context.Context, id string) ([]annotate.Segment, error) {
	n, err := s.Read(ctx, id)
	if err != nil {
		return nil, err
	}
	return annotate.Project(n.Body, n.Spans), nil
}

// mutate loads the note, applies fn and writes the result back if nobody
// else wrote in between, retrying from a fresh read otherwise. fn may
// return errUnchanged to skip the write.
func (s *Service) mutate(ctx context.Context, id string, fn func(n *Note) error) (*Note, error) {
	log := obs.From(ctx).With("pkg", "notes")
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		n, err := s.Read(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := fn(n); err != nil {
			if errors.Is(err, errUnchanged) {
				return n, nil
			}
			return nil, err
		}
		n.UpdatedAt = s.timestamp()

		row, err := encodeNote(n)
		if err != nil {
			return nil, err
		}
		rev, err := s.store.UpdateNote(ctx, row)
		switch {
		case errors.Is(err, db.ErrConflict):
			log.Debug("note_write_conflict", "note_id", id, "attempt", attempt)
			continue
		case errors.Is(err, db.ErrNotFound):
			return nil, notFound(id)
		case err != nil:
			return nil, fmt.Errorf("failed to update note: %w", err)
		}
		n.Revision = rev
		return n, nil
	}
	log.Warn("note_write_gave_up", "note_id", id, "attempts", maxWriteAttempts)
	return nil, errs.Wrap(errs.Aborted, fmt.Sprintf("note %s was changed concurrently, retry", id), ErrEditConflict)
}

// timestamp returns now at the millisecond precision the database keeps.
func (s *Service) timestamp() time.Time {
	return fromMillis(s.now().UnixMilli())
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func notFound(id string) error {
	return errs.Wrap(errs.NotFound, fmt.Sprintf("note not found: %s", id), ErrNoteNotFound)
}

func encodeNote(n *Note) (db.NoteRow, error) {
	spans, err := json.Marshal(nonNil(n.Spans))
	if err != nil {
		return db.NoteRow{}, fmt.Errorf("failed to encode spans: %w", err)
	}
	images, err := json.Marshal(nonNil(n.Images))
	if err != nil {
		return db.NoteRow{}, fmt.Errorf("failed to encode images: %w", err)
	}
	tables, err := json.Marshal(nonNil(n.Tables))
	if err != nil {
		return db.NoteRow{}, fmt.Errorf("failed to encode tables: %w", err)
	}
	return db.NoteRow{
		ID:         n.ID,
		Title:      n.Title,
		Body:       n.Body,
		SpansJSON:  string(spans),
		ImagesJSON: string(images),
		TablesJSON: string(tables),
		Revision:   n.Revision,
		CreatedAt:  n.CreatedAt.UnixMilli(),
		UpdatedAt:  n.UpdatedAt.UnixMilli(),
	}, nil
}

func decodeNote(row db.NoteRow) (*Note, error) {
	n := &Note{
		ID:        row.ID,
		Title:     row.Title,
		Body:      row.Body,
		Revision:  row.Revision,
		CreatedAt: fromMillis(row.CreatedAt),
		UpdatedAt: fromMillis(row.UpdatedAt),
	}
	if err := decodeColumn(row.SpansJSON, &n.Spans); err != nil {
		return nil, fmt.Errorf("note %s has unreadable spans: %w", row.ID, err)
	}
	if err := annotate.Validate(n.Spans, annotate.Len(n.Body)); err != nil {
		return nil, fmt.Errorf("note %s has corrupt spans: %w", row.ID, err)
	}
	if err := decodeColumn(row.ImagesJSON, &n.Images); err != nil {
		return nil, fmt.Errorf("note %s has unreadable images: %w", row.ID, err)
	}
	if err := decodeColumn(row.TablesJSON, &n.Tables); err != nil {
		return nil, fmt.Errorf("note %s has unreadable tables: %w", row.ID, err)
	}
	for i, t := range n.Tables {
		n.Tables[i] = t.Normalize()
	}
	n.Spans = nonNil(n.Spans)
	n.Images = nonNil(n.Images)
	n.Tables = nonNil(n.Tables)
	return n, nil
}

func decodeColumn[T any](raw string, dst *[]T) error {
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), dst)
}

// nonNil keeps JSON output as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
