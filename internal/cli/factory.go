package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// openBot builds a bot from the script path with standard CLI conventions.
// A non-nil conv resumes the stored conversation.
func openBot(opts RunOptions, logger *slog.Logger, conv *domain.Conversation) (*parley.Bot, error) {
	botOpts := []parley.Option{
		parley.WithLogger(logger),
	}
	if opts.Debug {
		botOpts = append(botOpts, parley.WithLifecycleHooks(createDebugHooks(logger)))
	}
	if opts.Strict {
		botOpts = append(botOpts, parley.WithStrict())
	}
	if opts.MannerFallback != "" {
		botOpts = append(botOpts, parley.WithMannerFallback(opts.MannerFallback))
	}
	if opts.SessionID != "" {
		botOpts = append(botOpts, parley.WithSessionID(opts.SessionID))
	}
	if conv != nil {
		botOpts = append(botOpts, parley.WithConversation(conv))
	}

	return parley.Open(opts.ScriptPath, botOpts...)
}

// hydrateBot loads the stored conversation (when a session is named) and
// builds the bot around it. If the snapshot no longer fits the script,
// for example after the script changed underneath a session, the stored
// state is dropped and the conversation starts fresh.
func hydrateBot(ctx context.Context, opts RunOptions, logger *slog.Logger, store ports.ConversationStore) (*parley.Bot, bool, error) {
	var conv *domain.Conversation
	if opts.SessionID != "" && store != nil {
		loaded, err := store.Load(ctx, opts.SessionID)
		if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			return nil, false, err
		}
		conv = loaded
	}

	bot, err := openBot(opts, logger, conv)
	if err == nil {
		return bot, conv != nil, nil
	}
	if conv == nil {
		return nil, false, err
	}

	logger.Warn("stored conversation no longer fits the script, starting fresh",
		"session_id", opts.SessionID, "state", conv.Current, "err", err)
	if !opts.quiet() {
		printSystemMessage("Stored state '%s' no longer fits the script, starting fresh.", conv.Current)
	}
	if store != nil {
		_ = store.Delete(ctx, opts.SessionID)
	}

	bot, err = openBot(opts, logger, nil)
	if err != nil {
		return nil, false, err
	}
	return bot, false, nil
}
