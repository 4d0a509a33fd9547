// Package logging builds the slog loggers used across gurobilab.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

const loggerContextKey contextKey = "logger"

// secretPatterns match attribute keys whose values must never be logged.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^api_?key$`),
	regexp.MustCompile(`(?i).*_KEY$`),
	regexp.MustCompile(`(?i).*_TOKEN$`),
	regexp.MustCompile(`(?i).*_SECRET$`),
	regexp.MustCompile(`(?i).*PASSWORD.*`),
	regexp.MustCompile(`(?i).*CREDENTIAL.*`),
}

// New creates a JSON logger on stderr with the specified level.
// Level can be "debug", "info", "warn", or "error" (case-insensitive).
// Defaults to "info" if an invalid level is provided.
func New(level string) *slog.Logger {
	return NewWithWriter(os.Stderr, level)
}

// NewWithWriter creates a JSON logger writing to w.
func NewWithWriter(w io.Writer, level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       parseLevel(level),
		ReplaceAttr: redactSecrets,
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// Discard returns a logger that drops everything. The TUI uses it so log
// lines do not corrupt the screen.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

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

// redactSecrets is a ReplaceAttr function that redacts sensitive fields.
func redactSecrets(groups []string, a slog.Attr) slog.Attr {
	for _, pattern := range secretPatterns {
		if pattern.MatchString(a.Key) {
			return slog.Attr{
				Key:   a.Key,
				Value: slog.StringValue("***REDACTED***"),
			}
		}
	}
	return a
}

// WithContext attaches a logger to a context.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// FromContext retrieves a logger from the context, falling back to
// slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// NewFromConfig creates a logger from configuration settings.
// Supports format (json/text), level (debug/info/warn/error), and output
// (stderr, stdout, discard or a file path). The returned close function
// releases the log file, if one was opened.
func NewFromConfig(format, level, output string) (*slog.Logger, func() error, error) {
	closeFn := func() error { return nil }

	var writer io.Writer
	switch output {
	case "", "stderr":
		writer = os.Stderr
	case "stdout":
		writer = os.Stdout
	case "discard", "/dev/null":
		writer = io.Discard
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		writer = f
		closeFn = f.Close
	}

	opts := &slog.HandlerOptions{
		Level:       parseLevel(level),
		ReplaceAttr: redactSecrets,
	}

	var handler slog.Handler
	if strings.ToLower(format) == "text" {
		handler = slog.NewTextHandler(writer, opts)
	} else {
		handler = slog.NewJSONHandler(writer, opts)
	}

	return slog.New(handler), closeFn, nil
}
