// Package db stores notes in a single SQLCipher-encrypted SQLite database.
package db

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// KeySize is the SQLCipher raw key size in bytes.
	KeySize = 32

	// MaxOpenConns is the maximum number of open connections.
	// SQLite is single-writer, so high connection counts are counterproductive.
	MaxOpenConns = 4

	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns = 2

	// ListHeadChars is how much body text ListNotes returns per note.
	ListHeadChars = 280
)

var (
	// ErrNotFound is returned when no note has the requested ID.
	ErrNotFound = errors.New("db: note not found")

	// ErrConflict is returned by UpdateNote when the stored revision moved on.
	ErrConflict = errors.New("db: revision conflict")
)

// NoteRow is the stored form of a note. The JSON columns are opaque here.
type NoteRow struct {
	ID         string
	Title      string
	Body       string
	SpansJSON  string
	ImagesJSON string
	TablesJSON string
	Revision   int64
	CreatedAt  int64 // unix milliseconds
	UpdatedAt  int64 // unix milliseconds
}

// NoteSummary is a list entry. BodyLen is in UTF-16 code units; Head is
// the first ListHeadChars characters of the body.
type NoteSummary struct {
	ID        string
	Title     string
	Head      string
	BodyLen   int64
	CreatedAt int64
	UpdatedAt int64
}

// SearchResult is a single FTS hit with a highlighted snippet.
type SearchResult struct {
	ID        string
	Title     string
	Snippet   string
	UpdatedAt int64
	Rank      float64
}

// Store wraps the sql.DB connection.
type Store struct {
	db *sql.DB
}

// NewStoreFromSQL wraps an existing sql.DB whose schema is already applied.
func NewStoreFromSQL(sqlDB *sql.DB) *Store {
	return &Store{db: sqlDB}
}

// Open opens (creating if needed) the encrypted database at path.
//
// Parameters:
//   - path: database file; its directory is created if missing
//   - key: the 32-byte SQLCipher key (see crypto.DeriveDatabaseKey)
func Open(path string, key []byte) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("database key must be exactly %d bytes, got %d", KeySize, len(key))
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	// Format: file.db?_pragma_key=x'HEX_KEY'&_pragma_cipher_page_size=4096
	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", path, hex.EncodeToString(key))
	dsn = appendSQLiteParams(dsn, sqliteCommonParams())

	sqlDB, err := sql.Open(SQLiteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	sqlDB.SetMaxOpenConns(MaxOpenConns)
	sqlDB.SetMaxIdleConns(MaxIdleConns)

	// A wrong key only surfaces on the first read.
	var sqliteVersion string
	if err := sqlDB.QueryRow("SELECT sqlite_version()").Scan(&sqliteVersion); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to verify database %s: %w", path, err)
	}
	if _, err := sqlDB.Exec(Schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return NewStoreFromSQL(sqlDB), nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InsertNote stores a new note. Revision is forced to 1.
func (s *Store) InsertNote(ctx context.Context, n NoteRow) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notes (id, title, body, spans_json, images_json, tables_json, revision, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
	`, n.ID, n.Title, n.Body, n.SpansJSON, n.ImagesJSON, n.TablesJSON, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert note %s: %w", n.ID, err)
	}
	return nil
}

// GetNote loads one note.
func (s *Store) GetNote(ctx context.Context, id string) (NoteRow, error) {
	var n NoteRow
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, body, spans_json, images_json, tables_json, revision, created_at, updated_at
		FROM notes WHERE id = ?
	`, id).Scan(&n.ID, &n.Title, &n.Body, &n.SpansJSON, &n.ImagesJSON, &n.TablesJSON, &n.Revision, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return NoteRow{}, ErrNotFound
	}
	if err != nil {
		return NoteRow{}, fmt.Errorf("failed to get note %s: %w", id, err)
	}
	return n, nil
}

// ListNotes returns summaries, most recently updated first.
func (s *Store) ListNotes(ctx context.Context, limit, offset int64) ([]NoteSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, substr(body, 1, ?), utf16_len(body), created_at, updated_at
		FROM notes
		ORDER BY updated_at DESC, created_at DESC, id
		LIMIT ? OFFSET ?
	`, ListHeadChars, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	var out []NoteSummary
	for rows.Next() {
		var n NoteSummary
		if err := rows.Scan(&n.ID, &n.Title, &n.Head, &n.BodyLen, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note summary: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notes: %w", err)
	}
	return out, nil
}

// CountNotes returns the number of stored notes.
func (s *Store) CountNotes(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count notes: %w", err)
	}
	return count, nil
}

// UpdateNote overwrites a note if its stored revision still equals
// n.Revision, and returns the new revision. A concurrent writer that got
// there first yields ErrConflict; a missing note yields ErrNotFound.
func (s *Store) UpdateNote(ctx context.Context, n NoteRow) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notes
		SET title = ?, body = ?, spans_json = ?, images_json = ?, tables_json = ?,
		    revision = revision + 1, updated_at = ?
		WHERE id = ? AND revision = ?
	`, n.Title, n.Body, n.SpansJSON, n.ImagesJSON, n.TablesJSON, n.UpdatedAt, n.ID, n.Revision)
	if err != nil {
		return 0, fmt.Errorf("failed to update note %s: %w", n.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read update result for note %s: %w", n.ID, err)
	}
	if affected == 1 {
		return n.Revision + 1, nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM notes WHERE id = ?`, n.ID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to check note %s: %w", n.ID, err)
	}
	return 0, ErrConflict
}

// DeleteNote removes a note permanently.
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete note %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result for note %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteNoteAtRevision removes a note only if its stored revision still
// equals revision. It returns ErrConflict if another writer got there first.
func (s *Store) DeleteNoteAtRevision(ctx context.Context, id string, revision int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ? AND revision = ?`, id, revision)
	if err != nil {
		return fmt.Errorf("failed to delete note %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result for note %s: %w", id, err)
	}
	if affected == 1 {
		return nil
	}
	if _, err := s.GetNote(ctx, id); err != nil {
		return err
	}
	return ErrConflict
}

// SearchNotes runs a full-text search over titles and bodies. The query is
// user input and is escaped with EscapeFTS5Query; an empty escaped query
// matches nothing. Title hits rank above body hits.
func (s *Store) SearchNotes(ctx context.Context, query string, limit, offset int64) ([]SearchResult, error) {
	escaped := EscapeFTS5Query(query)
	if escaped == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT n.id, n.title,
		       snippet(fts_notes, -1, '**', '**', '...', 24) AS snippet,
		       n.updated_at,
		       bm25(fts_notes, 5.0, 1.0) AS rank
		FROM notes n
		JOIN fts_notes f ON n.rowid = f.rowid
		WHERE fts_notes MATCH ?
		ORDER BY rank
		LIMIT ? OFFSET ?
	`, escaped, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("FTS search failed: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var snippet sql.NullString
		if err := rows.Scan(&r.ID, &r.Title, &snippet, &r.UpdatedAt, &r.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan FTS result: %w", err)
		}
		r.Snippet = snippet.String
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating FTS results: %w", err)
	}
	return results, nil
}

// EscapeFTS5Query converts search-box input into safe FTS5 MATCH syntax:
// bare words become prefix matches, "quoted phrases" stay phrases, and
// adjacent terms are ANDed. Everything else is stripped.
func EscapeFTS5Query(query string) string {
	query = strings.ReplaceAll(query, "\x00", "")

	var terms []string
	for i := 0; i < len(query); {
		switch c := query[i]; {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '"':
			end := strings.IndexByte(query[i+1:], '"')
			phrase := query[i+1:]
			if end >= 0 {
				phrase = query[i+1 : i+1+end]
				i += end + 2
			} else {
				i = len(query)
			}
			if sanitizeFTS5Word(phrase) != "" {
				terms = append(terms, `"`+phrase+`"`)
			}
		default:
			end := i + 1
			for end < len(query) && !strings.ContainsRune(" \t\n\r\"", rune(query[end])) {
				end++
			}
			if word := sanitizeFTS5Word(query[i:end]); word != "" {
				terms = append(terms, word+"*")
			}
			i = end
		}
	}
	return strings.Join(terms, " ")
}

// sanitizeFTS5Word strips characters that cause FTS5 syntax errors.
// Keeps letters, digits, and underscore (safe in FTS5 tokens).
func sanitizeFTS5Word(word string) string {
	clean := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r > 127 {
			return r
		}
		return -1
	}, word)
	return strings.ToLower(clean)
}

func sqliteCommonParams() string {
	// Production-safe defaults: WAL + NORMAL provides good throughput while preserving safety.
	return "_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
}

func appendSQLiteParams(dsn, params string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + params
	}
	return dsn + "?" + params
}
