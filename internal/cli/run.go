package cli

import (
	"context"
	"fmt"
)

// RunOptions contains all the configuration for the run command.
type RunOptions struct {
	ScriptPath     string
	Headless       bool
	Watch          bool
	JSON           bool
	Debug          bool
	LogFormat      string
	Strict         bool
	SessionID      string
	Fresh          bool
	Store          string
	StateDir       string
	RedisAddr      string
	MannerFallback string
}

func (o RunOptions) quiet() bool {
	return o.JSON || o.Headless
}

// Execute handles the run command logic, dispatching to session or watch mode.
func Execute(opts RunOptions) error {
	if opts.Watch {
		if opts.Headless {
			return fmt.Errorf("--watch and --headless cannot be used together")
		}
		if opts.JSON {
			return fmt.Errorf("--watch and --json cannot be used together")
		}
		return RunWatch(opts)
	}

	if opts.Fresh && opts.SessionID != "" {
		store, err := newStore(opts)
		if err != nil {
			return err
		}
		if err := store.Delete(context.Background(), opts.SessionID); err != nil {
			return fmt.Errorf("resetting session %q: %w", opts.SessionID, err)
		}
	}

	return RunSession(opts)
}
