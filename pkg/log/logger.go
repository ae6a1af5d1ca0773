// Package log provides structured JSON logging for analysis runs.
//
// It wraps log/slog with a handler that understands cockroachdb/errors:
// logging an error with ErrAttr emits its stack trace as a separate
// "stacktrace" attribute, so failed permutation trials remain debuggable
// from the batch log alone.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// SetupLogger installs the default process-wide JSON logger.
func SetupLogger(loglevel string) {
	slog.SetDefault(NewLogger(os.Stdout, loglevel))
}

// NewLogger creates a JSON logger writing to w. Analysis drivers use
// this to tee run logs into a file next to the results artifact.
func NewLogger(w io.Writer, loglevel string) *slog.Logger {
	ops := slog.HandlerOptions{
		Level: ToLogLevel(loglevel),
	}
	handler := slog.NewJSONHandler(w, &ops)
	return slog.New(WrapByErrFmtHandler(handler))
}

// ToLogLevel converts a level name to a slog.Level.
func ToLogLevel(level string) slog.Level {
	switch level {
	case "info":
		return slog.LevelInfo
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		panic(fmt.Sprintf("invalid log level :%s", level))
	}
}

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// ErrAttr is a wrapper to pass err to slog.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}
