package utils

import (
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger so every package logs with the same field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler, a text handler on stderr if nil.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger writing human readable lines to w.
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewJSONLogger creates a Logger writing JSON lines to w.
func NewJSONLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// NoopLogger discards all output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000),
	}))
}

// OrNoop returns l, or a discarding logger when l is nil.
func (l *Logger) OrNoop() *Logger {
	if l == nil {
		return NoopLogger()
	}
	return l
}

// WithTopology tags records with the topology being processed.
func (l *Logger) WithTopology(name string) *Logger {
	return &Logger{Logger: l.Logger.With("topology", name)}
}

// WithGenerator tags records with the generator name.
func (l *Logger) WithGenerator(name string) *Logger {
	return &Logger{Logger: l.Logger.With("generator", name)}
}
