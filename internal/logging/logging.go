// Package logging is the structured logging surface shared by the
// simulator, batch runner and servers.
//
// Loggers built by New stamp every record with the request_id and run_id
// carried on the context passed to the log call, so code deep inside a run
// never has to thread those identifiers through its own fields.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Field is a structured logging attribute.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field                 { return Field{Key: key, Value: value} }
func Int(key string, value int) Field                { return Field{Key: key, Value: value} }
func Float(key string, value float64) Field          { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field              { return Field{Key: key, Value: value} }
func Duration(key string, value time.Duration) Field { return Field{Key: key, Value: value} }
func Any(key string, value any) Field                { return Field{Key: key, Value: value} }

// Err attaches an error under the "error" key. A nil error yields an
// empty string so call sites need no branch.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: ""}
	}
	return Field{Key: "error", Value: err.Error()}
}

func (f Field) attr() slog.Attr { return slog.Any(f.Key, f.Value) }

// Logger is the levelled, context-aware logging interface used across the
// module. Implementations must be safe for concurrent use.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	With(fields ...Field) Logger
}

// Config selects the handler a logger writes through.
type Config struct {
	Level     string    // debug, info, warn, error
	Format    string    // json or text
	AddSource bool      // include source locations
	Output    io.Writer // defaults to stdout
}

// New builds a slog-backed Logger.
func New(cfg Config) Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: levelFor(cfg.Level), AddSource: cfg.AddSource}

	var h slog.Handler = slog.NewTextHandler(out, opts)
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(out, opts)
	}
	return &slogLogger{l: slog.New(scopeHandler{next: h})}
}

// NewFromEnv reads LOG_LEVEL and LOG_FORMAT. Command-line tools keep stdout
// for results, so they pass stderr as out.
func NewFromEnv(out io.Writer) Logger {
	return New(Config{
		Level:     os.Getenv("LOG_LEVEL"),
		Format:    os.Getenv("LOG_FORMAT"),
		AddSource: true,
		Output:    out,
	})
}

// Noop returns a logger that drops every record.
func Noop() Logger { return discard{} }

func levelFor(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

type slogLogger struct {
	l *slog.Logger
}

func (s *slogLogger) emit(ctx context.Context, level slog.Level, msg string, fields []Field) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !s.l.Enabled(ctx, level) {
		return
	}
	attrs := make([]slog.Attr, len(fields))
	for i, f := range fields {
		attrs[i] = f.attr()
	}
	s.l.LogAttrs(ctx, level, msg, attrs...)
}

func (s *slogLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	s.emit(ctx, slog.LevelDebug, msg, fields)
}

func (s *slogLogger) Info(ctx context.Context, msg string, fields ...Field) {
	s.emit(ctx, slog.LevelInfo, msg, fields)
}

func (s *slogLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	s.emit(ctx, slog.LevelWarn, msg, fields)
}

func (s *slogLogger) Error(ctx context.Context, msg string, fields ...Field) {
	s.emit(ctx, slog.LevelError, msg, fields)
}

func (s *slogLogger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return s
	}
	args := make([]any, len(fields))
	for i, f := range fields {
		args[i] = f.attr()
	}
	return &slogLogger{l: s.l.With(args...)}
}

type discard struct{}

func (discard) Debug(context.Context, string, ...Field) {}
func (discard) Info(context.Context, string, ...Field)  {}
func (discard) Warn(context.Context, string, ...Field)  {}
func (discard) Error(context.Context, string, ...Field) {}
func (d discard) With(...Field) Logger                  { return d }

// scopeHandler appends the identifiers held in the record's context.
type scopeHandler struct {
	next slog.Handler
}

func (h scopeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h scopeHandler) Handle(ctx context.Context, r slog.Record) error {
	sc := scopeFrom(ctx)
	if sc.requestID != "" {
		r.AddAttrs(slog.String("request_id", sc.requestID))
	}
	if sc.runID != "" {
		r.AddAttrs(slog.String("run_id", sc.runID))
	}
	return h.next.Handle(ctx, r)
}

func (h scopeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return scopeHandler{next: h.next.WithAttrs(attrs)}
}

func (h scopeHandler) WithGroup(name string) slog.Handler {
	return scopeHandler{next: h.next.WithGroup(name)}
}

// scope is the per-request state kept on a context. It is copied on every
// update so parent contexts never observe a child's identifiers.
type scope struct {
	requestID string
	runID     string
	logger    Logger
}

type scopeKey struct{}

func scopeFrom(ctx context.Context) scope {
	if ctx == nil {
		return scope{}
	}
	sc, _ := ctx.Value(scopeKey{}).(scope)
	return sc
}

func withScope(ctx context.Context, update func(*scope)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	sc := scopeFrom(ctx)
	update(&sc)
	return context.WithValue(ctx, scopeKey{}, sc)
}

// ContextWithRequestID records id as the request_id for ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return withScope(ctx, func(sc *scope) { sc.requestID = id })
}

// RequestIDFromContext returns the request_id on ctx, or "".
func RequestIDFromContext(ctx context.Context) string { return scopeFrom(ctx).requestID }

// EnsureRequestID returns ctx unchanged when it already has a request_id and
// otherwise attaches a fresh one.
func EnsureRequestID(ctx context.Context) (context.Context, string) {
	if id := RequestIDFromContext(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return ContextWithRequestID(ctx, id), id
}

// WithRequestLogger ensures ctx carries a request_id. The returned logger is
// base (or a noop logger when base is nil); the id reaches its records
// through the context handed to each log call.
func WithRequestLogger(ctx context.Context, base Logger) (context.Context, Logger) {
	if base == nil {
		base = Noop()
	}
	ctx, _ = EnsureRequestID(ctx)
	return ctx, base
}

// ContextWithLogger stores l on ctx. A nil l is stored as a noop logger.
func ContextWithLogger(ctx context.Context, l Logger) context.Context {
	if l == nil {
		l = Noop()
	}
	return withScope(ctx, func(sc *scope) { sc.logger = l })
}

// LoggerFromContext returns the logger stored on ctx, or nil.
func LoggerFromContext(ctx context.Context) Logger { return scopeFrom(ctx).logger }

// NewRunID returns a fresh identifier for one engine run.
func NewRunID() string { return uuid.NewString() }

// ContextWithRunID records id as the run_id for ctx.
func ContextWithRunID(ctx context.Context, id string) context.Context {
	return withScope(ctx, func(sc *scope) { sc.runID = id })
}

// RunIDFromContext returns the run_id on ctx, or "".
func RunIDFromContext(ctx context.Context) string { return scopeFrom(ctx).runID }
