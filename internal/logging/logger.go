// Package logging provides a common logging interface used across the engine.
// file: internal/logging/logger.go
package logging

import (
	"context"
	"log/slog"
	"os"
)

// Logger defines the interface for logging within the application.
// This abstraction allows the engine to depend on a small interface rather
// than a concrete logging library, while the default implementation is
// backed by log/slog.
type Logger interface {
	// Debug logs a debug-level message.
	Debug(msg string, args ...any)

	// Info logs an info-level message.
	Info(msg string, args ...any)

	// Warn logs a warning-level message.
	Warn(msg string, args ...any)

	// Error logs an error-level message.
	Error(msg string, args ...any)

	// WithContext returns a logger that attaches values carried on ctx.
	WithContext(ctx context.Context) Logger

	// WithField returns a logger with an additional structured field.
	WithField(key string, value any) Logger
}

// slogLogger implements Logger on top of log/slog.
type slogLogger struct {
	l *slog.Logger
}

// NewSlogLogger wraps an *slog.Logger as a Logger.
func NewSlogLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return &slogLogger{l: l}
}

// NewDefaultLogger returns a Logger writing text-formatted records to stderr
// at info level, suitable as the demo CLI's default.
func NewDefaultLogger() Logger {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	return NewSlogLogger(slog.New(h))
}

func (s *slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

func (s *slogLogger) WithContext(ctx context.Context) Logger {
	return &slogLogger{l: s.l} // slog handlers that care about ctx read it per-call; kept for interface symmetry.
}

func (s *slogLogger) WithField(key string, value any) Logger {
	return &slogLogger{l: s.l.With(key, value)}
}

// NoopLogger implements Logger but performs no action. Used as the fallback
// when no logger is supplied.
type NoopLogger struct{}

func (NoopLogger) Debug(string, ...any)             {}
func (NoopLogger) Info(string, ...any)              {}
func (NoopLogger) Warn(string, ...any)              {}
func (NoopLogger) Error(string, ...any)             {}
func (n NoopLogger) WithContext(context.Context) Logger { return n }
func (n NoopLogger) WithField(string, any) Logger       { return n }

var noop Logger = NoopLogger{}

// GetNoopLogger returns the shared no-op logger instance.
func GetNoopLogger() Logger { return noop }

var defaultLogger = GetNoopLogger()

// SetDefaultLogger sets the package-level default logger.
func SetDefaultLogger(l Logger) {
	if l != nil {
		defaultLogger = l
	}
}

// GetLogger returns the default logger tagged with a component name.
func GetLogger(name string) Logger {
	return defaultLogger.WithField("component", name)
}
