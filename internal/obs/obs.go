// Package obs owns the process-wide JSON logger and the correlation fields
// (request, trace and note IDs) stamped onto log lines.
package obs

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type correlationKey struct{}

// Correlation identifies the request and note a log line belongs to.
type Correlation struct {
	RequestID string
	TraceID   string
	NoteID    string
}

var (
	mu     sync.RWMutex
	logger *slog.Logger
)

// Init installs the global logger on stderr at the level named by LOG_LEVEL
// (debug when unset). Later calls are no-ops.
func Init() {
	mu.Lock()
	defer mu.Unlock()
	if logger != nil {
		return
	}
	install(os.Stderr, ParseLevel(os.Getenv("LOG_LEVEL")))
}

// InitWriter replaces the global logger with one writing to w at level.
func InitWriter(w io.Writer, level slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	install(w, level)
}

// SetOutputForTests points the global logger at w and returns a func that
// restores the previous one.
func SetOutputForTests(w io.Writer) func() {
	mu.Lock()
	prev := logger
	install(w, slog.LevelDebug)
	mu.Unlock()

	return func() {
		mu.Lock()
		defer mu.Unlock()
		if prev == nil {
			install(os.Stderr, slog.LevelDebug)
			return
		}
		logger = prev
		slog.SetDefault(prev)
	}
}

// ParseLevel maps debug, info, warn and error to slog levels. Anything else
// is debug.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

// install must be called with mu held.
func install(w io.Writer, level slog.Level) {
	logger = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: utcTime,
	}))
	slog.SetDefault(logger)
}

func utcTime(_ []string, attr slog.Attr) slog.Attr {
	if attr.Key != slog.TimeKey {
		return attr
	}
	if t, ok := attr.Value.Any().(time.Time); ok {
		return slog.String(slog.TimeKey, t.UTC().Format(time.RFC3339Nano))
	}
	return attr
}

func current() *slog.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l == nil {
		Init()
		mu.RLock()
		l = logger
		mu.RUnlock()
	}
	return l
}

// Pkg returns the global logger tagged with pkg.
func Pkg(pkg string) *slog.Logger {
	return current().With("pkg", pkg)
}

// From returns the global logger carrying the correlation fields of ctx.
func From(ctx context.Context) *slog.Logger {
	l := current()
	if attrs := CorrelationFrom(ctx).attrs(); len(attrs) > 0 {
		return l.With(attrs...)
	}
	return l
}

// WithNoteID tags ctx with the note being worked on.
func WithNoteID(ctx context.Context, noteID string) context.Context {
	return WithCorrelation(ctx, Correlation{NoteID: strings.TrimSpace(noteID)})
}

// WithCorrelation merges corr into the fields already on ctx. Empty fields
// leave existing values alone.
func WithCorrelation(ctx context.Context, corr Correlation) context.Context {
	merged := CorrelationFrom(ctx)
	if corr.RequestID != "" {
		merged.RequestID = corr.RequestID
	}
	if corr.TraceID != "" {
		merged.TraceID = corr.TraceID
	}
	if corr.NoteID != "" {
		merged.NoteID = corr.NoteID
	}
	return context.WithValue(ctx, correlationKey{}, merged)
}

// CorrelationFrom returns the correlation fields stored on ctx.
func CorrelationFrom(ctx context.Context) Correlation {
	if ctx == nil {
		return Correlation{}
	}
	corr, _ := ctx.Value(correlationKey{}).(Correlation)
	return corr
}

func (c Correlation) attrs() []any {
	var attrs []any
	if c.RequestID != "" {
		attrs = append(attrs, "request_id", c.RequestID)
	}
	if c.TraceID != "" {
		attrs = append(attrs, "trace_id", c.TraceID)
	}
	if c.NoteID != "" {
		attrs = append(attrs, "note_id", c.NoteID)
	}
	return attrs
}

func newRequestID() string {
	return "req-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
