package cli

import (
	"context"
	"fmt"

	"github.com/aretw0/parley/internal/presentation/tui"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/aretw0/parley/pkg/runner"
)

// RunSession executes a single interactive session.
func RunSession(opts RunOptions) error {
	logger := createLogger(opts.Debug, opts.LogFormat)

	if !opts.quiet() {
		tui.PrintBanner()
	}

	var store ports.ConversationStore
	if opts.SessionID != "" {
		var err error
		store, err = newStore(opts)
		if err != nil {
			return err
		}
	}

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	bot, resumed, err := hydrateBot(sigCtx, opts, logger, store)
	if err != nil {
		return fmt.Errorf("opening script: %w", err)
	}

	if !opts.quiet() {
		for _, w := range bot.Warnings() {
			printSystemMessage("Warning: %s", w)
		}
	}

	logSessionStatus(logger, opts.SessionID, bot.Current(), resumed, opts.quiet())

	runnerOpts := createRunnerOptions(logger, opts, store, nil)
	runnerOpts = append(runnerOpts, runner.WithSpeaker(bot.Name))

	r := runner.New(runnerOpts...)
	runErr := r.Run(sigCtx, bot)

	if sigCtx.Err() != nil && runErr == nil {
		runErr = sigCtx.Err()
	}

	logCompletion(bot.Current(), runErr, opts.quiet(), sigCtx.Signal())

	return handleExecutionError(runErr)
}
