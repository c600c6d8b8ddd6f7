package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// Engine is the conversational surface the runner drives. *parley.Bot
// satisfies it; tests can substitute anything state-shaped.
type Engine interface {
	Respond(ctx context.Context, message string) (string, error)
	Current() string
	Snapshot() *domain.Conversation
}

// Runner handles the interactive loop of one conversation using the
// provided IO. Fields may be set directly or through Options.
type Runner struct {
	// Handler is the IO strategy. If nil, a TextHandler on the Input
	// and Output fields is created on first Run.
	Handler IOHandler

	// Speaker labels replies in text mode, usually the bot name.
	Speaker string

	// Logger is used for internal debug logging. If nil, logs are
	// discarded.
	Logger *slog.Logger

	// Store is the persistence adapter for durable sessions. If nil,
	// the conversation is ephemeral.
	Store ports.ConversationStore

	// SessionID keys the snapshot in the Store. Required when Store is
	// set.
	SessionID string

	// Input and Output feed the default TextHandler when no Handler is
	// injected. They default to stdin/stdout.
	Input  io.Reader
	Output io.Writer

	// Renderer transforms reply text for the default TextHandler.
	Renderer ContentRenderer
}

// New creates a Runner with the given options.
func New(opts ...Option) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	if r.Logger == nil {
		r.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r
}

// Run executes the conversation loop until the user types an exit
// sentinel, input reaches EOF, or the context is canceled. Engine
// errors abort the loop; rejected input is reported and re-prompted.
func (r *Runner) Run(ctx context.Context, engine Engine) error {
	if engine == nil {
		return fmt.Errorf("runner requires an engine")
	}
	handler := r.resolveHandler()

	for {
		input, err := handler.Input(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				r.Logger.Debug("session ended", "reason", "eof")
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("input error: %w", err)
		}

		if isExitSentinel(input) {
			r.Logger.Debug("session ended", "reason", "sentinel", "input", input)
			return nil
		}

		clean, err := SanitizeInput(input)
		if err != nil {
			if serr := handler.SystemOutput(ctx, fmt.Sprintf("input rejected: %v", err)); serr != nil {
				return serr
			}
			continue
		}

		reply, err := engine.Respond(ctx, clean)
		if err != nil {
			return fmt.Errorf("respond error: %w", err)
		}

		out := Reply{
			Speaker: r.Speaker,
			State:   engine.Current(),
			Text:    reply,
		}
		if err := handler.Output(ctx, out); err != nil {
			return fmt.Errorf("output error: %w", err)
		}

		if err := r.saveSnapshot(ctx, engine); err != nil {
			return fmt.Errorf("persistence error: %w", err)
		}
	}
}

// isExitSentinel reports whether the message ends the session.
func isExitSentinel(input string) bool {
	trimmed := strings.TrimSpace(input)
	return strings.EqualFold(trimmed, "exit") || strings.EqualFold(trimmed, "quit")
}

func (r *Runner) saveSnapshot(ctx context.Context, engine Engine) error {
	if r.Store == nil || r.SessionID == "" {
		return nil
	}
	snap := engine.Snapshot()
	if err := r.Store.Save(ctx, r.SessionID, snap); err != nil {
		return err
	}
	r.Logger.Debug("conversation saved", "session_id", r.SessionID, "state", snap.Current)
	return nil
}

// resolveHandler ensures a valid IOHandler is set, memoizing the
// default so repeated Run calls reuse one input pump.
func (r *Runner) resolveHandler() IOHandler {
	if r.Handler != nil {
		return r.Handler
	}
	th := NewTextHandler(r.Input, r.Output)
	th.Renderer = r.Renderer
	r.Handler = th
	return th
}
