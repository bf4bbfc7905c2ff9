package celltrack

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with celltrack-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
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

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithComponent tags records with the emitting subsystem.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("component", name),
	}
}

// WithTimepoint adds a timepoint field to the logger.
func (l *Logger) WithTimepoint(t int) *Logger {
	return &Logger{
		Logger: l.Logger.With("timepoint", t),
	}
}

// LogRebuild logs a spatial index rebuild pass.
func (l *Logger) LogRebuild(ctx context.Context, rebuilt int, took time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "index rebuild failed",
			"rebuilt", rebuilt,
			"error", err,
		)
	} else if rebuilt > 0 {
		l.DebugContext(ctx, "index rebuild completed",
			"rebuilt", rebuilt,
			"took", took,
		)
	}
}

// LogSave logs a save operation.
func (l *Logger) LogSave(ctx context.Context, name string, vertices, edges int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "save failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "model saved",
			"name", name,
			"vertices", vertices,
			"edges", edges,
		)
	}
}

// LogLoad logs a load operation.
func (l *Logger) LogLoad(ctx context.Context, name string, vertices, edges int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "model loaded",
			"name", name,
			"vertices", vertices,
			"edges", edges,
		)
	}
}
