// Package logging builds the slog loggers every parley process shares.
// Output goes to stderr so stdout stays clean for conversation or
// JSON-RPC traffic.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// options is the shared handler configuration: the level, plus key
// normalization ("error" becomes "err").
func options(level slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}
}

// New creates the standard text logger.
func New(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, options(level)))
}

// NewJSON creates a logger emitting one JSON object per line, for
// machine-read deployments.
func NewJSON(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, options(level)))
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
