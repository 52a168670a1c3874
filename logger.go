package slotmatch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/slotmatch/partition"
)

// Logger wraps slog.Logger with slotmatch-specific context.
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
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithRun tags every record with the run id.
func (l *Logger) WithRun(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("run", id),
	}
}

// WithStrategy adds the distribution strategy name.
func (l *Logger) WithStrategy(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("strategy", name),
	}
}

// WithEvaluator adds the evaluator name.
func (l *Logger) WithEvaluator(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("evaluator", name),
	}
}

// LogSnapshotLoad logs a user snapshot load.
func (l *Logger) LogSnapshotLoad(ctx context.Context, users, bytes int, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot load failed",
			"duration", d,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot loaded",
			"users", users,
			"bytes", bytes,
			"duration", d,
		)
	}
}

// LogPartition logs the evaluation of one partition.
func (l *Logger) LogPartition(ctx context.Context, p partition.Partition, events int, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "partition failed",
			"partition", p.String(),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "partition evaluated",
			"partition", p.String(),
			"events", events,
			"duration", d,
		)
	}
}

// LogRelease logs the release of a shared snapshot.
func (l *Logger) LogRelease(ctx context.Context, err error) {
	if err != nil {
		l.WarnContext(ctx, "share release failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "share released")
	}
}

// LogRun logs a completed or failed match run.
func (l *Logger) LogRun(ctx context.Context, events, partitions int, d time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "match run failed",
			"events", events,
			"partitions", partitions,
			"duration", d,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "matches computed",
			"events", events,
			"partitions", partitions,
			"duration", d,
		)
	}
}
