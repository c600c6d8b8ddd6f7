// Package cli carries the shared plumbing behind the parley commands:
// signal handling, logger and store factories, and the session glue
// between the runner and the persistence layer.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aretw0/parley/internal/adapters/file"
	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/internal/presentation/tui"
	"github.com/aretw0/parley/pkg/adapters/memory"
	"github.com/aretw0/parley/pkg/adapters/redis"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/persistence/middleware"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/aretw0/parley/pkg/runner"
)

// SignalContext is a context cancelled by SIGINT or SIGTERM that
// remembers which signal fired, so the exit message can tell an
// interrupt from plain EOF after the fact.
type SignalContext struct {
	context.Context
	Cancel context.CancelFunc

	mu     sync.Mutex
	sigVal os.Signal
	sigCh  chan os.Signal
	stop   sync.Once
}

// NewSignalContext creates a context that is cancelled on SIGINT or
// SIGTERM. It acts as a drop-in replacement for signal.NotifyContext
// but allows retrieving the signal afterwards.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}
	signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
	go sc.wait()
	return sc
}

// wait records the first signal and cancels. Unregistering on the way
// out restores default delivery, so a second Ctrl+C kills the process.
func (sc *SignalContext) wait() {
	defer sc.stop.Do(func() { signal.Stop(sc.sigCh) })

	select {
	case sig := <-sc.sigCh:
		sc.mu.Lock()
		sc.sigVal = sig
		sc.mu.Unlock()
		sc.Cancel()
	case <-sc.Done():
	}
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// createLogger configures the command logger. Without --debug it stays
// silent so logs never mix into the conversation on stdout.
func createLogger(debug bool, format string) *slog.Logger {
	if !debug {
		return logging.NewNop()
	}
	if format == "json" {
		return logging.NewJSON(slog.LevelDebug)
	}
	return logging.New(slog.LevelDebug)
}

// printSystemMessage prints a standardized system message to stdout.
func printSystemMessage(format string, args ...any) {
	fmt.Printf(">>> %s\n", fmt.Sprintf(format, args...))
}

func logSessionStatus(logger *slog.Logger, sessionID, state string, resumed, quiet bool) {
	switch {
	case resumed:
		logger.Info("session resumed", "session_id", sessionID, "state", state)
		if !quiet {
			printSystemMessage("Resuming in '%s' state...", state)
		}
	case sessionID != "":
		logger.Info("session created", "session_id", sessionID)
		if !quiet {
			printSystemMessage("Session '%s' active.", sessionID)
		}
	}
}

// newStore builds the conversation store selected by --store, wrapped
// with any at-rest protections the environment configures.
func newStore(opts RunOptions) (ports.ConversationStore, error) {
	var store ports.ConversationStore
	switch opts.Store {
	case "", "file":
		store = file.New(opts.StateDir)
	case "memory":
		store = memory.NewStore()
	case "redis":
		addr := opts.RedisAddr
		if addr == "" {
			addr = "localhost:6379"
		}
		store = redis.New(addr, "", 0)
	default:
		return nil, fmt.Errorf("unknown store %q (expected file, memory or redis)", opts.Store)
	}

	mw, err := middleware.FromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("configuring store protections: %w", err)
	}
	if mw != nil {
		store = mw(store)
	}
	return store, nil
}

// createRunnerOptions prepares the functional options for the session loop.
func createRunnerOptions(logger *slog.Logger, opts RunOptions, store ports.ConversationStore, handler runner.IOHandler) []runner.Option {
	runnerOpts := []runner.Option{
		runner.WithLogger(logger),
	}

	if opts.SessionID != "" && store != nil {
		runnerOpts = append(runnerOpts, runner.WithSessionID(opts.SessionID))
		runnerOpts = append(runnerOpts, runner.WithStore(store))
	}

	switch {
	case opts.JSON:
		runnerOpts = append(runnerOpts, runner.WithInputHandler(runner.NewJSONHandler(os.Stdin, os.Stdout)))
	case handler != nil:
		runnerOpts = append(runnerOpts, runner.WithInputHandler(handler))
	case !opts.Headless:
		runnerOpts = append(runnerOpts, runner.WithRenderer(tui.NewRenderer()))
	}

	return runnerOpts
}

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateEnter: func(ctx context.Context, e *domain.StateEvent) {
			logger.Debug("state entered", "state", e.State, "from", e.From)
		},
		OnFinish: func(ctx context.Context, e *domain.FinishEvent) {
			logger.Debug("conversation finished", "manner", e.Manner, "from", e.From)
		},
		OnTagsMatched: func(ctx context.Context, e *domain.MatchEvent) {
			logger.Debug("tags matched", "state", e.State, "tags", e.Tags.Tags(), "total", e.Tags.Total())
		},
	}
}

func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, io.EOF)
}

// handleExecutionError maps user interruptions to a clean exit.
func handleExecutionError(err error) error {
	if isInterrupted(err) {
		return nil
	}
	return err
}

func logCompletion(state string, err error, quiet bool, sig os.Signal) {
	if quiet {
		return
	}
	if err == nil {
		printSystemMessage("Finished in '%s' state.", state)
		return
	}
	if !isInterrupted(err) {
		return
	}

	verb := "Interrupted"
	if sig != nil && sig != os.Interrupt {
		verb = "Terminated"
	}
	if sig == os.Interrupt {
		fmt.Printf("[CTRL+C]\n")
	} else {
		fmt.Println()
	}
	printSystemMessage("%s in '%s' state.", verb, state)
}
