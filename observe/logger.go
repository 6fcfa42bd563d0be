package observe

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
)

// LogLevel represents a logging level.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLogLevel parses a string log level.
func ParseLogLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// structuredLogger is a slog-backed Logger.
type structuredLogger struct {
	logger *slog.Logger
}

// NewLogger creates a JSON logger on stderr with the given level.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter creates a JSON logger writing to w.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	return newLogger(level, "json", w)
}

func newLogger(level, format string, w io.Writer) *structuredLogger {
	opts := &slog.HandlerOptions{
		Level:       ParseLogLevel(level).slogLevel(),
		ReplaceAttr: redactAttr,
	}
	var h slog.Handler
	if format == "text" {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return &structuredLogger{logger: slog.New(contextHandler{h})}
}

// With returns a logger that adds fields to every record.
func (l *structuredLogger) With(fields ...Field) Logger {
	return &structuredLogger{logger: l.logger.With(toArgs(fields)...)}
}

func (l *structuredLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelInfo, msg, fields)
}

func (l *structuredLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelWarn, msg, fields)
}

func (l *structuredLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelError, msg, fields)
}

func (l *structuredLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelDebug, msg, fields)
}

func (l *structuredLogger) log(ctx context.Context, level slog.Level, msg string, fields []Field) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.logger.Enabled(ctx, level) {
		return
	}
	attrs := make([]slog.Attr, 0, len(fields))
	for _, f := range fields {
		attrs = append(attrs, slog.Any(f.Key, f.Value))
	}
	l.logger.LogAttrs(ctx, level, msg, attrs...)
}

func toArgs(fields []Field) []any {
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		args = append(args, slog.Any(f.Key, f.Value))
	}
	return args
}

// redactAttr hides values of sensitive keys.
func redactAttr(_ []string, a slog.Attr) slog.Attr {
	if isRedactedField(a.Key) {
		return slog.String(a.Key, "[REDACTED]")
	}
	return a
}

// isRedactedField returns true if the field should be redacted.
func isRedactedField(key string) bool {
	key = strings.ToLower(key)
	for _, k := range RedactedFields {
		if key == strings.ToLower(k) {
			return true
		}
	}
	return false
}

// NewStdLogger adapts l for APIs that want a *log.Logger, such as
// http.Server.ErrorLog. Records are written at error level.
func NewStdLogger(l Logger) *log.Logger {
	if sl, ok := l.(*structuredLogger); ok {
		return slog.NewLogLogger(sl.logger.Handler(), slog.LevelError)
	}
	return log.New(io.Discard, "", 0)
}

// Ensure structuredLogger implements Logger
var _ Logger = (*structuredLogger)(nil)
