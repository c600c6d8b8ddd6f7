package runtime

import (
	"log/slog"

	"github.com/aretw0/parley/pkg/domain"
)

// Option configures an Engine at construction.
type Option func(*Engine)

// WithLogger sets the structured logger. Defaults to a discard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithHooks wires lifecycle callbacks into the engine.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithMannerFallback makes Finish answer with the given line instead of
// failing when a manner has no completion hook.
func WithMannerFallback(text string) Option {
	return func(e *Engine) {
		e.mannerFallback = text
		e.hasFallback = true
	}
}

// WithConversation restores a persisted conversation instead of starting
// at the default state. The snapshot is cloned; construction fails when
// its current state is not declared by the script.
func WithConversation(conv *domain.Conversation) Option {
	return func(e *Engine) {
		e.conv = conv.Clone()
	}
}

// WithSessionID names the session of a fresh conversation. Ignored when a
// conversation is restored.
func WithSessionID(id string) Option {
	return func(e *Engine) {
		e.sessionID = id
	}
}
