// Package logging provides structured logging with context propagation for
// the workflow engine. It wraps the standard library's slog package.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

type contextKey string

const ctxKeyLogger contextKey = "logging.logger"

// Logger wraps slog.Logger with engine-specific field helpers.
type Logger struct {
	logger *slog.Logger
}

// Config holds logging configuration.
type Config struct {
	Level         string    // debug, info, warn, error
	Output        io.Writer // default os.Stdout
	Pretty        bool      // text handler instead of JSON
	IncludeCaller bool
}

// DefaultConfig returns default logging configuration: JSON to stdout at info level.
func DefaultConfig() Config {
	return Config{Level: "info", Output: os.Stdout, Pretty: false, IncludeCaller: false}
}

// New creates a Logger from the given Config.
func New(cfg Config) *Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level), AddSource: cfg.IncludeCaller}

	var handler slog.Handler
	if cfg.Pretty {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}
	return &Logger{logger: slog.New(handler)}
}

func parseLevel(level string) slog.Level {
	switch level {
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

// WithContext stashes the logger on a derived context.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKeyLogger, l)
}

// FromContext retrieves the logger stashed by WithContext, or a default one.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKeyLogger).(*Logger); ok {
		return l
	}
	return New(DefaultConfig())
}

// WithWorkflowID returns a derived logger tagging every line with workflow_id.
func (l *Logger) WithWorkflowID(id string) *Logger {
	return &Logger{logger: l.logger.With(slog.String("workflow_id", id))}
}

// WithExecutionID returns a derived logger tagging every line with execution_id.
func (l *Logger) WithExecutionID(id string) *Logger {
	return &Logger{logger: l.logger.With(slog.String("execution_id", id))}
}

// WithNodeID returns a derived logger tagging every line with node_id.
func (l *Logger) WithNodeID(id string) *Logger {
	return &Logger{logger: l.logger.With(slog.String("node_id", id))}
}

// WithNodeType returns a derived logger tagging every line with node_type.
func (l *Logger) WithNodeType(nodeType string) *Logger {
	return &Logger{logger: l.logger.With(slog.String("node_type", nodeType))}
}

// WithField returns a derived logger carrying one extra field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With(slog.Any(key, value))}
}

// WithError returns a derived logger carrying the given error.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{logger: l.logger.With(slog.Any("error", err))}
}

func (l *Logger) Debug(msg string) { l.logger.Debug(msg) }
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
func (l *Logger) Info(msg string) { l.logger.Info(msg) }
func (l *Logger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}
func (l *Logger) Warn(msg string) { l.logger.Warn(msg) }
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}
func (l *Logger) Error(msg string) { l.logger.Error(msg) }
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

// Slog returns the underlying slog.Logger for callers that need it directly.
func (l *Logger) Slog() *slog.Logger { return l.logger }
