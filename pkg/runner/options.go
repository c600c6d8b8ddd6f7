package runner

import (
	"io"
	"log/slog"

	"github.com/aretw0/parley/pkg/ports"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithSpeaker sets the label replies are prefixed with in text mode.
func WithSpeaker(name string) Option {
	return func(r *Runner) {
		r.Speaker = name
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithStore configures the ConversationStore for persistence.
func WithStore(store ports.ConversationStore) Option {
	return func(r *Runner) {
		r.Store = store
	}
}

// WithSessionID sets the session ID for persistence.
// This is required if WithStore is used.
func WithSessionID(id string) Option {
	return func(r *Runner) {
		r.SessionID = id
	}
}

// WithIO sets the reader and writer for the default TextHandler.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(r *Runner) {
		r.Input = in
		r.Output = out
	}
}

// WithRenderer configures the content renderer (e.g. TUI, Markdown).
func WithRenderer(renderer ContentRenderer) Option {
	return func(r *Runner) {
		r.Renderer = renderer
	}
}
