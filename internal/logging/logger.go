// Package logging provides centralized logging functionality for the application.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug for request-level tracing.
	LevelDebug LogLevel = "debug"
	// LevelInfo for page progress and node activity.
	LevelInfo LogLevel = "info"
	// LevelWarn for recoverable problems.
	LevelWarn LogLevel = "warn"
	// LevelError for failed operations.
	LevelError LogLevel = "error"
)

// LogFormat selects the handler used for output.
type LogFormat string

const (
	// FormatText writes key=value lines.
	FormatText LogFormat = "text"
	// FormatJSON writes one JSON object per line.
	FormatJSON LogFormat = "json"
)

var defaultLogger *slog.Logger

func init() {
	level := LogLevel(strings.ToLower(os.Getenv("LOG_LEVEL")))
	format := LogFormat(strings.ToLower(os.Getenv("LOG_FORMAT")))

	// Logs go to stderr, stdout carries flow messages.
	Setup(os.Stderr, level, format)
}

// ParseLevel converts a level name to its slog level. Unknown names map to info.
func ParseLevel(level LogLevel) slog.Level {
	switch LogLevel(strings.ToLower(string(level))) {
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

// Setup configures the default logger.
func Setup(w io.Writer, level LogLevel, format LogFormat) {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// Debug logs a message at debug level.
func Debug(msg string, args ...any) {
	defaultLogger.Debug(msg, args...)
}

// Info logs a message at info level.
func Info(msg string, args ...any) {
	defaultLogger.Info(msg, args...)
}

// Warn logs a message at warn level.
func Warn(msg string, args ...any) {
	defaultLogger.Warn(msg, args...)
}

// Error logs a message at error level.
func Error(msg string, args ...any) {
	defaultLogger.Error(msg, args...)
}

// For returns the default logger tagged with a component name.
func For(component string) *slog.Logger {
	return defaultLogger.With("component", component)
}

// MaskSensitive masks sensitive data for logging.
func MaskSensitive(value string) string {
	if value == "" {
		return "<not set>"
	}
	if len(value) <= 4 {
		return "<set>"
	}
	return value[:4] + "..." + strings.Repeat("*", 3)
}
