package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	// LevelTrace for trace logging like request and responses from the
	// ledger API.
	LevelTrace = slog.Level(-8)

	// LevelFatal for errors that should print and exit with a non-zero code.
	LevelFatal = slog.Level(16)
)

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "fatal":
		return LevelFatal, nil
	}

	// Use slog's built-in parsing for standard levels
	var level slog.Level
	var err = level.UnmarshalText([]byte(s))
	return level, err
}

// New creates a logger writing to w in the given format with support for the
// trace and fatal levels.
func New(w io.Writer, minLevel slog.Level, addSource bool, format string) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{
		Level:     minLevel,
		AddSource: addSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Customize level names
			if a.Key == slog.LevelKey {
				level := a.Value.Any().(slog.Level)
				switch {
				case level == LevelTrace:
					a.Value = slog.StringValue("TRACE")
				case level == LevelFatal:
					a.Value = slog.StringValue("FATAL")
				}
			}
			return a
		},
	}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}

	return slog.New(handler), nil
}

// NewLoggerWithTrace creates a logger with trace support writing to stderr
func NewLoggerWithTrace(minLevel slog.Level, addSource bool, format string) (*slog.Logger, error) {
	return New(os.Stderr, minLevel, addSource, format)
}

// Trace logs a message at trace level using the provided logger.
func Trace(logger *slog.Logger, msg string, args ...any) {
	logger.Log(context.Background(), LevelTrace, msg, args...)
}

// Fatal logs a message at fatal level and exits
func Fatal(logger *slog.Logger, msg string, args ...any) {
	logger.Log(context.Background(), LevelFatal, msg, args...)
	os.Exit(1)
}
