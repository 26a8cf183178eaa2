// Package observability provides structured logging for ytrewind.
package observability

import (
	"io"
	"log/slog"
	"os"
	"regexp"
	"time"

	"github.com/m-mizutani/masq"

	"github.com/jmylchreest/ytrewind/internal/config"
)

// urlSignaturePattern matches signed query material in segment base URLs.
// Base URLs carry per-viewer signatures (sig, lsig, spc) that should not
// end up in log archives.
var urlSignaturePattern = regexp.MustCompile(`(?i)/(sig|lsig|spc)/([^/\s"']+)`)

// GlobalLogLevel is the shared log level that can be changed at runtime.
var GlobalLogLevel = &slog.LevelVar{}

// NewLogger creates a new slog.Logger based on the provided configuration.
// The logger supports JSON and text formats with configurable log levels.
func NewLogger(cfg config.Logging) *slog.Logger {
	return NewLoggerWithWriter(cfg, os.Stderr)
}

// sensitiveFieldRedactor creates a masq redactor for sensitive field names.
func sensitiveFieldRedactor() func(groups []string, a slog.Attr) slog.Attr {
	return masq.New(
		masq.WithFieldName("sig"),
		masq.WithFieldName("lsig"),
		masq.WithFieldName("spc"),
		masq.WithFieldName("token"),
		masq.WithFieldName("Token"),
	)
}

// redactURLSignatures redacts signed path segments from URL strings.
func redactURLSignatures(s string) string {
	return urlSignaturePattern.ReplaceAllString(s, "/$1/[REDACTED]")
}

// NewLoggerWithWriter creates a new slog.Logger that writes to the provided
// writer. The logger uses GlobalLogLevel for dynamic log level changes at
// runtime. Signed URL material is automatically redacted.
func NewLoggerWithWriter(cfg config.Logging, w io.Writer) *slog.Logger {
	GlobalLogLevel.Set(ParseLevel(cfg.Level))

	redactor := sensitiveFieldRedactor()

	opts := &slog.HandlerOptions{
		Level:     GlobalLogLevel,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			a = redactor(groups, a)

			if a.Value.Kind() == slog.KindString {
				str := a.Value.String()
				if redacted := redactURLSignatures(str); redacted != str {
					a = slog.String(a.Key, redacted)
				}
			}
			return a
		},
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// ParseLevel converts a string log level to slog.Level.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLogLevel changes the global log level at runtime.
func SetLogLevel(level string) {
	GlobalLogLevel.Set(ParseLevel(level))
}

// WithComponent adds a component name to the logger for identifying the source.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With(slog.String("component", component))
}

// TimedOperation logs the start and end of an operation with duration.
// Returns a function that should be deferred to log the completion.
func TimedOperation(logger *slog.Logger, operation string) func() {
	start := time.Now()
	logger.Debug("operation started", slog.String("operation", operation))

	return func() {
		logger.Debug("operation completed",
			slog.String("operation", operation),
			slog.Duration("duration", time.Since(start)),
		)
	}
}
