// Package api serves the note service as a JSON HTTP API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/kuitang/colornote/internal/annotate"
	"github.com/kuitang/colornote/internal/attachments"
	"github.com/kuitang/colornote/internal/errs"
	"github.com/kuitang/colornote/internal/export"
	"github.com/kuitang/colornote/internal/logutil"
	"github.com/kuitang/colornote/internal/notes"
	"github.com/kuitang/colornote/internal/obs"
	"github.com/kuitang/colornote/internal/urlutil"
)

const (
	// maxJSONBody bounds request bodies other than image uploads. It leaves
	// room for a full note body plus JSON framing and escapes.
	maxJSONBody = 2*notes.MaxBodyBytes + 64<<10

	// logBodyBytes bounds how much of a rejected body is logged.
	logBodyBytes = 512
)

// Handler wraps the notes service and provides HTTP handlers
type Handler struct {
	notes *notes.Service
}

// NewHandler creates a new API handler with the given notes service
func NewHandler(svc *notes.Service) *Handler {
	return &Handler{notes: svc}
}

// RegisterRoutes registers all notes API routes on the given mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Health)

	mux.HandleFunc("GET /notes", h.ListNotes)
	mux.HandleFunc("POST /notes", h.CreateNote)
	mux.HandleFunc("POST /notes/search", h.SearchNotes)
	mux.HandleFunc("GET /notes/{id}", h.GetNote)
	mux.HandleFunc("DELETE /notes/{id}", h.DeleteNote)
	mux.HandleFunc("POST /notes/{id}/discard", h.DiscardIfEmpty)
	mux.HandleFunc("PUT /notes/{id}/title", h.SetTitle)

	mux.HandleFunc("POST /notes/{id}/edits", h.ApplyEdit)
	mux.HandleFunc("POST /notes/{id}/paint", h.Paint)
	mux.HandleFunc("PUT /notes/{id}/content", h.SaveContent)
	mux.HandleFunc("GET /notes/{id}/segments", h.Segments)
	mux.HandleFunc("GET /notes/{id}/export.html", h.Export)

	mux.HandleFunc("POST /notes/{id}/tables", h.AddTable)
	mux.HandleFunc("PUT /notes/{id}/tables/{tableID}/cells", h.UpdateTableCell)
	mux.HandleFunc("POST /notes/{id}/tables/{tableID}/rows", h.AddTableRow)
	mux.HandleFunc("POST /notes/{id}/tables/{tableID}/columns", h.AddTableColumn)
	mux.HandleFunc("DELETE /notes/{id}/tables/{tableID}", h.DeleteTable)

	mux.HandleFunc("POST /notes/{id}/images", h.AttachImage)
	mux.HandleFunc("GET /notes/{id}/images/{key...}", h.GetImage)
	mux.HandleFunc("DELETE /notes/{id}/images/{key...}", h.RemoveImage)
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListNotes handles GET /notes - returns a page of notes, newest first
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", notes.DefaultLimit)
	offset := queryInt(r, "offset", 0)

	result, err := h.notes.List(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CreateNote handles POST /notes. Title and body may both be empty.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var params notes.CreateNoteParams
	if !decodeJSON(w, r, &params) {
		return
	}
	note, err := h.notes.Create(r.Context(), params)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	w.Header().Set("Location", urlutil.Resource(urlutil.Origin(r), "notes", note.ID))
	writeJSON(w, http.StatusCreated, note)
}

// SearchRequest is the body of POST /notes/search.
type SearchRequest struct {
	Query  string `json:"query"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// SearchNotes handles POST /notes/search - searches notes using FTS5
func (h *Handler) SearchNotes(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	results, err := h.notes.Search(r.Context(), req.Query, req.Limit, req.Offset)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// GetNote handles GET /notes/{id}
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	ctx, id := noteContext(r)
	note, err := h.notes.Read(ctx, id)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /notes/{id}
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	ctx, id := noteContext(r)
	if err := h.notes.Delete(ctx, id); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DiscardResponse reports whether POST /notes/{id}/discard removed the note.
type DiscardResponse struct {
	Deleted bool `json:"deleted"`
}

// DiscardIfEmpty handles POST /notes/{id}/discard. Editors call it when
// leaving a note so blank notes do not pile up.
func (h *Handler) DiscardIfEmpty(w http.ResponseWriter, r *http.Request) {
	ctx, id := noteContext(r)
	deleted, err := h.notes.DeleteIfEmpty(ctx, id)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, DiscardResponse{Deleted: deleted})
}

// TitleRequest is the body of PUT /notes/{id}/title.
type TitleRequest struct {
	Title string `json:"title"`
}

// SetTitle handles PUT /notes/{id}/title
func (h *Handler) SetTitle(w http.ResponseWriter, r *http.Request) {
	ctx, id := noteContext(r)
	var req TitleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := h.notes.SetTitle(ctx, id, req.Title)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// ApplyEdit handles POST /notes/{id}/edits: the client sends the whole new
// body with the selection it had before the change and its active pen.
func (h *Handler) ApplyEdit(w http.ResponseWriter, r *http.Request) {
	ctx, id := noteContext(r)
	var params notes.EditParams
	if !decodeJSON(w, r, &params) {
		return
	}
	note, err := h.notes.ApplyEdit(ctx, id, params)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// PaintRequest is the body of POST /notes/{id}/paint.
type PaintRequest struct {
	Selection annotate.Selection `json:"selection"`
	Color     annotate.Color     `json:"color"`
}

// Paint handles POST /notes/{id}/paint. Painting with the default color
// removes coloring from the selection.
func (h *Handler) Paint(w http.ResponseWriter, r *http.Request) {
	ctx, id := noteContext(r)
	var req PaintRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Color == annotate.NoColor {
		writeError(w, errs.New(errs.InvalidArgument, "color is required"))
		return
	}
	note, err := h.notes.Paint(ctx, id, req.Selection, req.Color)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// SaveContent handles PUT /notes/{id}/content for clients that repair spans
// themselves and save body and spans together.
func (h *Handler) SaveContent(w http.ResponseWriter, r *http.Request) {
	ctx, id := noteContext(r)
	var params notes.ContentParams
	if !decodeJSON(w, r, &params) {
		return
	}
	note, err := h.notes.SaveContent(ctx, id, params)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// SegmentsResponse is the display projection of a note body.
type SegmentsResponse struct {
	ID       string             `json:"id"`
	Segments []annotate.Segment `json:"segments"`
}

// Segments handles GET /notes/{id}/segments
func (h *Handler) Segments(w http.ResponseWriter, r *http.Request) {
	ctx, id := noteContext(r)
	segs, err := h.notes.Segments(ctx, id)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	if segs == nil {
		segs = []annotate.Segment{}
	}
	writeJSON(w, http.StatusOK, SegmentsResponse{ID: id, Segments: segs})
}

// Export handles GET /notes/{id}/export.html
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	ctx, id := noteContext(r)
	note, err := h.notes.Read(ctx, id)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	page, err := export.Document(note, h.notes.ImageURL)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; img-src https: http:; style-src 'unsafe-inline'")
	w.WriteHeader(http.StatusOK)
	w.Write(page)
}

// TableResponse carries the updated note and the table just added.
type TableResponse struct {
	Note    *notes.Note `json:"note"`
	TableID string      `json:"table_id"`
}

// AddTable handles POST /notes/{id}/tables - appends a 2x2 table
func (h *Handler) AddTable(w http.ResponseWriter, r *http.Request) {
	ctx, id := noteContext(r)
	note, table, err := h.notes.AddTable(ctx, id)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, TableResponse{Note: note, TableID: table.ID})
}

// CellRequest is the body of PUT /notes/{id}/tables/{tableID}/cells.
type CellRequest struct {
	Row   int    `json:"row"`
	Col   int    `json:"col"`
	Value string `json:"value"`
}

// UpdateTableCell handles PUT /notes/{id}/tables/{tableID}/cells
func (h *Handler) UpdateTableCell(w http.ResponseWriter, r *http.Request) {
	ctx, id := noteContext(r)
	var req CellRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := h.notes.UpdateTableCell(ctx, id, r.PathValue("tableID"), req.Row, req.Col, req.Value)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// AddTableRow handles POST /notes/{id}/tables/{tableID}/rows
func (h *Handler) AddTableRow(w http.ResponseWriter, r *http.Request) {
	ctx, id := noteContext(r)
	note, err := h.notes.AddTableRow(ctx, id, r.PathValue("tableID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// AddTableColumn handles POST /notes/{id}/tables/{tableID}/columns. A table
// already at the column cap comes back unchanged.
func (h *Handler) AddTableColumn(w http.ResponseWriter, r *http.Request) {
	ctx, id := noteContext(r)
	note, err := h.notes.AddTableColumn(ctx, id, r.PathValue("tableID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteTable handles DELETE /notes/{id}/tables/{tableID}
func (h *Handler) DeleteTable(w http.ResponseWriter, r *http.Request) {
	ctx, id := noteContext(r)
	note, err := h.notes.DeleteTable(ctx, id, r.PathValue("tableID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// ImageResponse carries the updated note and the stored image.
type ImageResponse struct {
	Note *notes.Note `json:"note"`
	Key  string      `json:"key"`
	URL  string      `json:"url"`
}

// AttachImage handles POST /notes/{id}/images. The request body is the raw
// image; Content-Type is optional and checked against the sniffed type.
func (h *Handler) AttachImage(w http.ResponseWriter, r *http.Request) {
	ctx, id := noteContext(r)
	body := http.MaxBytesReader(w, r.Body, attachments.MaxImageSize)
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, errs.Newf(errs.TooLarge, "image exceeds %d bytes", attachments.MaxImageSize))
			return
		}
		writeError(w, errs.New(errs.InvalidArgument, "failed to read upload"))
		return
	}
	if len(data) == 0 {
		writeError(w, errs.New(errs.InvalidArgument, "image body is empty"))
		return
	}

	note, key, err := h.notes.AttachImage(ctx, id, data, r.Header.Get("Content-Type"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ImageResponse{Note: note, Key: key, URL: h.notes.ImageURL(key)})
}

// GetImage handles GET /notes/{id}/images/{key...} and streams the stored
// bytes, so images are reachable without a public bucket.
func (h *Handler) GetImage(w http.ResponseWriter, r *http.Request) {
	ctx, id := noteContext(r)
	obj, err := h.notes.Image(ctx, id, r.PathValue("key"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	contentType := obj.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(obj.Data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.Data)))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	w.Write(obj.Data)
}

// RemoveImage handles DELETE /notes/{id}/images/{key...}
func (h *Handler) RemoveImage(w http.ResponseWriter, r *http.Request) {
	ctx, id := noteContext(r)
	note, err := h.notes.RemoveImage(ctx, id, r.PathValue("key"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// noteContext returns the request context tagged with the path's note ID.
func noteContext(r *http.Request) (context.Context, string) {
	id := r.PathValue("id")
	return obs.WithNoteID(r.Context(), id), id
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}

// decodeJSON reads a bounded JSON body into dst. On failure it writes the
// error response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, errs.Newf(errs.TooLarge, "request body exceeds %d bytes", maxJSONBody))
			return false
		}
		writeError(w, errs.New(errs.InvalidArgument, "failed to read request body"))
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		obs.From(r.Context()).With("pkg", "api").Debug("invalid_json",
			"path", r.URL.Path,
			"error", err.Error(),
			"body", logutil.FormatBodyForLog(r.Header.Get("Content-Type"), raw, logBodyBytes),
		)
		writeError(w, errs.Wrap(errs.InvalidArgument, "invalid JSON: "+err.Error(), err))
		return false
	}
	return true
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string    `json:"error"`
	Code  errs.Code `json:"code"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes err as a JSON error response with the status for its code.
func writeError(w http.ResponseWriter, err error) {
	code := errs.CodeOf(err)
	writeJSON(w, errs.HTTPStatus(code), ErrorResponse{Error: errs.MessageOf(err), Code: code})
}

// writeServiceError is writeError for errors from the note service; internal
// failures are logged since their text never reaches the client.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if errs.CodeOf(err) == errs.Internal {
		obs.From(ctx).With("pkg", "api").Error("request_failed", "error", err.Error())
	}
	writeError(w, err)
}
