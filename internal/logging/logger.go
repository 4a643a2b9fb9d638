// Package logging provides structured logging configuration using log/slog.
//
// Loggers are enriched from context with chi's request id and with the id of
// the pipeline run being executed, so every line of a run can be correlated.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// Options controls where and how log lines are written.
type Options struct {
	Level  string // debug, info, warn, error (default: info)
	Format string // text or json (default: text)

	// Dir, when set, additionally appends log lines to Dir/pipeline_YYYY-MM-DD.log.
	// Ignored when RunningInGCP is true, where stdout is collected by the platform.
	Dir          string
	RunningInGCP bool
}

// Setup configures the global slog logger and returns a function that closes
// any log file it opened.
func Setup(opts Options) (func() error, error) {
	var out io.Writer = os.Stdout
	closeFn := func() error { return nil }

	if opts.Dir != "" && !opts.RunningInGCP {
		f, err := openDailyFile(opts.Dir, time.Now())
		if err != nil {
			return closeFn, err
		}
		out = io.MultiWriter(os.Stdout, f)
		closeFn = f.Close
	}

	slog.SetDefault(slog.New(NewHandler(out, opts.Level, opts.Format)))
	return closeFn, nil
}

// NewHandler builds a text or JSON handler at the given level.
func NewHandler(w io.Writer, level, format string) slog.Handler {
	handlerOpts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	if strings.ToLower(format) == "json" {
		return slog.NewJSONHandler(w, handlerOpts)
	}
	return slog.NewTextHandler(w, handlerOpts)
}

// DailyFileName returns the log file name used for day t.
func DailyFileName(t time.Time) string {
	return fmt.Sprintf("pipeline_%s.log", t.Format("2006-01-02"))
}

func openDailyFile(dir string, now time.Time) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(dir, DailyFileName(now))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type runIDKey struct{}

// WithRunID returns a context carrying the pipeline run id.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunID returns the pipeline run id stored in ctx, if any.
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// FromContext returns the default logger enriched with the request id and run
// id found in ctx.
//
// Usage:
//
//	logger := logging.FromContext(ctx)
//	logger.Info("object processed", "object", name)
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	if runID := RunID(ctx); runID != "" {
		logger = logger.With("run_id", runID)
	}

	return logger
}

// WithFields returns a context logger with additional structured fields.
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
