package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"membench/internal/config"
)

type Logger struct {
	*slog.Logger
	config *config.LoggingConfig
}

type ContextKey string

const (
	RunIDKey    ContextKey = "run_id"
	ScenarioKey ContextKey = "scenario"
	TierKey     ContextKey = "tier"
)

// NewLogger creates a new structured logger using slog
func NewLogger(cfg *config.LoggingConfig) *Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var writer io.Writer
	switch cfg.Output {
	case "stdout":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		if cfg.Output != "" {
			file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err == nil {
				writer = file
			} else {
				writer = os.Stdout
				slog.Warn("Failed to open log file, using stdout", "error", err, "file", cfg.Output)
			}
		} else {
			writer = os.Stdout
		}
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Customize timestamp format
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(writer, opts)
	case "text", "console":
		handler = slog.NewTextHandler(writer, opts)
	default:
		// Default to JSON for production
		handler = slog.NewJSONHandler(writer, opts)
	}

	logger := slog.New(handler)

	return &Logger{
		Logger: logger,
		config: cfg,
	}
}

// WithContext creates a new logger with run-scoped context values
func (l *Logger) WithContext(ctx context.Context) *Logger {
	logger := l.Logger

	if runID := ctx.Value(RunIDKey); runID != nil {
		logger = logger.With("run_id", runID)
	}
	if scenario := ctx.Value(ScenarioKey); scenario != nil {
		logger = logger.With("scenario", scenario)
	}
	if tier := ctx.Value(TierKey); tier != nil {
		logger = logger.With("tier", tier)
	}

	return &Logger{
		Logger: logger,
		config: l.config,
	}
}

// WithFields creates a new logger with additional fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	var args []interface{}
	for key, value := range fields {
		args = append(args, key, value)
	}

	return &Logger{
		Logger: l.Logger.With(args...),
		config: l.config,
	}
}

// WithField creates a new logger with a single additional field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{
		Logger: l.Logger.With(key, value),
		config: l.config,
	}
}

// WithError creates a new logger with an error field
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		Logger: l.Logger.With("error", err.Error()),
		config: l.config,
	}
}

// RunStart logs the start of a harness run
func (l *Logger) RunStart(ctx context.Context, kind, name string, concurrency int) {
	l.WithContext(ctx).Info("Run started",
		"kind", kind,
		"name", name,
		"concurrency", concurrency,
	)
}

// RunEnd logs the completion of a harness run
func (l *Logger) RunEnd(ctx context.Context, kind, name, status string, duration time.Duration, attempts int64) {
	level := slog.LevelInfo
	if status == "fail" {
		level = slog.LevelWarn
	}

	l.WithContext(ctx).Log(ctx, level, "Run completed",
		"kind", kind,
		"name", name,
		"status", status,
		"duration_ms", duration.Milliseconds(),
		"attempts", attempts,
	)
}

// Performance logs a performance metric when performance logging is enabled
func (l *Logger) Performance(ctx context.Context, metric string, value float64, unit string, tags map[string]string) {
	if !l.config.EnablePerformanceLog {
		return
	}

	args := []interface{}{
		"metric", metric,
		"value", value,
		"unit", unit,
	}
	for key, value := range tags {
		args = append(args, "tag_"+key, value)
	}

	l.WithContext(ctx).Info("Performance metric", args...)
}
