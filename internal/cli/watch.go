package cli

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/parley/internal/presentation/tui"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/aretw0/parley/pkg/runner"
)

// RunWatch executes the script in development mode, reloading on file
// changes. The session survives reloads, so the conversation picks up
// where it was unless the changed script no longer fits.
func RunWatch(opts RunOptions) error {
	logger := createLogger(opts.Debug, opts.LogFormat)
	tui.PrintBanner()

	// Default session for watch mode so hot reload is stateful by
	// default. Scoped by path hash to keep projects apart.
	if opts.SessionID == "" {
		hash := md5.Sum([]byte(opts.ScriptPath))
		opts.SessionID = fmt.Sprintf("watch-%x", hash[:4])
	}

	store, err := newStore(opts)
	if err != nil {
		return err
	}
	if opts.Fresh {
		_ = store.Delete(context.Background(), opts.SessionID)
	}

	logger.Info("starting watcher", "path", opts.ScriptPath, "session_id", opts.SessionID)
	printSystemMessage("Watching '%s' with session '%s'.", opts.ScriptPath, opts.SessionID)

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	// One shared handler across iterations keeps a single stdin pump
	// alive, so input typed during a reload is not lost.
	handler := runner.NewTextHandler(os.Stdin, os.Stdout)
	handler.Renderer = tui.NewRenderer()

	for {
		again, err := runWatchIteration(sigCtx, opts, logger, store, handler)
		if err != nil {
			return err
		}
		if !again {
			return nil
		}
		logger.Info("watcher restarting")
	}
}

func runWatchIteration(parent *SignalContext, opts RunOptions, logger *slog.Logger, store ports.ConversationStore, handler runner.IOHandler) (bool, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	bot, resumed, err := hydrateBot(ctx, opts, logger, store)
	if err != nil {
		logger.Error("script failed to load", "err", err)
		printSystemMessage("Script error: %v", err)
		printSystemMessage("Waiting for a fix...")
		select {
		case <-parent.Done():
			return false, nil
		case <-time.After(2 * time.Second):
			return true, nil
		}
	}

	watchCh, err := bot.Watch(ctx)
	if err != nil {
		// Single-file scripts cannot be watched, only directories.
		return false, fmt.Errorf("cannot watch %q: %w", opts.ScriptPath, err)
	}

	if resumed {
		logSessionStatus(logger, opts.SessionID, bot.Current(), true, false)
	}

	runnerOpts := createRunnerOptions(logger, opts, store, handler)
	runnerOpts = append(runnerOpts, runner.WithSpeaker(bot.Name))
	r := runner.New(runnerOpts...)

	reloadCh := make(chan struct{}, 1)
	go func() {
		select {
		case <-ctx.Done():
		case event, ok := <-watchCh:
			if !ok {
				return
			}
			logger.Info("change detected, triggering reload", "event", event)
			fmt.Printf("\n")
			printSystemMessage("Change detected in '%s'.", event)
			// Give the filesystem a beat to settle.
			time.Sleep(100 * time.Millisecond)
			reloadCh <- struct{}{}
			cancel()
		}
	}()

	doneCh := make(chan error, 1)
	go func() {
		doneCh <- r.Run(ctx, bot)
	}()

	select {
	case <-parent.Done():
		cancel()
		<-doneCh
		logCompletion(bot.Current(), context.Canceled, false, parent.Signal())
		logger.Info("stopping watcher", "signal", parent.Signal())
		return false, nil
	case <-reloadCh:
		cancel()
		<-doneCh
		return true, nil
	case err := <-doneCh:
		if errors.Is(err, context.Canceled) {
			// Cancelled by a reload unless the outer signal fired.
			return parent.Err() == nil, nil
		}
		if err != nil {
			logger.Error("session error", "err", err)
			return false, err
		}
		logCompletion(bot.Current(), nil, false, nil)
		return false, nil
	}
}
