package parley

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/aretw0/parley/internal/runtime"
	"github.com/aretw0/parley/internal/validator"
	loamAdapter "github.com/aretw0/parley/pkg/adapters/loam"
	"github.com/aretw0/parley/pkg/adapters/scriptfile"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/aretw0/parley/pkg/script"
)

// Bot is the high-level entry point for the Parley library.
// It wraps the internal runtime and provides a simplified API for consumers.
type Bot struct {
	runtime  *runtime.Engine
	script   *script.Script
	loader   ports.ScriptLoader
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	strict   bool
	fallback string
	useFall  bool
	conv     *domain.Conversation
	session  string
	warnings []string
	Name     string
}

// Option defines a functional option for configuring the Bot.
type Option func(*Bot)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(b *Bot) {
		b.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the bot.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) {
		b.logger = logger
	}
}

// WithStrict turns validation findings into construction errors instead
// of logged warnings.
func WithStrict() Option {
	return func(b *Bot) {
		b.strict = true
	}
}

// WithMannerFallback makes Finish answer with the given line instead of
// failing when a manner has no completion hook.
func WithMannerFallback(text string) Option {
	return func(b *Bot) {
		b.fallback = text
		b.useFall = true
	}
}

// WithConversation resumes a persisted conversation instead of starting
// fresh at the default state.
func WithConversation(conv *domain.Conversation) Option {
	return func(b *Bot) {
		b.conv = conv
	}
}

// WithSessionID names the session of a fresh conversation.
func WithSessionID(id string) Option {
	return func(b *Bot) {
		b.session = id
	}
}

// WithName overrides the bot's display name (defaults to the script name).
func WithName(name string) Option {
	return func(b *Bot) {
		b.Name = name
	}
}

// WithLoader injects a custom ScriptLoader for Open, bypassing the
// filesystem detection.
func WithLoader(l ports.ScriptLoader) Option {
	return func(b *Bot) {
		b.loader = l
	}
}

// New builds a bot from a compiled script. The script is validated
// first: in the default permissive mode findings are logged as warnings
// and kept readable via Warnings; with WithStrict they fail construction.
func New(sc *script.Script, opts ...Option) (*Bot, error) {
	if sc == nil {
		return nil, fmt.Errorf("nil script")
	}

	bot := &Bot{script: sc}
	for _, opt := range opts {
		opt(bot)
	}

	if bot.Name == "" {
		bot.Name = sc.Name()
	}
	if bot.logger == nil {
		bot.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if bot.Name != "" {
		bot.logger = bot.logger.With("script", bot.Name)
	}

	findings := validator.Check(sc)
	if len(findings) > 0 {
		if bot.strict {
			errs := make([]error, len(findings))
			for i, w := range findings {
				errs[i] = errors.New(w.String())
			}
			return nil, fmt.Errorf("script %q failed validation: %w", bot.Name, errors.Join(errs...))
		}
		for _, w := range findings {
			bot.warnings = append(bot.warnings, w.String())
			bot.logger.Warn("script validation", "code", w.Code, "subject", w.Subject, "detail", w.Message)
		}
	}

	runtimeOpts := []runtime.Option{
		runtime.WithLogger(bot.logger),
		runtime.WithHooks(bot.hooks),
	}
	if bot.useFall {
		runtimeOpts = append(runtimeOpts, runtime.WithMannerFallback(bot.fallback))
	}
	if bot.conv != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithConversation(bot.conv))
	}
	if bot.session != "" {
		runtimeOpts = append(runtimeOpts, runtime.WithSessionID(bot.session))
	}

	rt, err := runtime.New(sc, runtimeOpts...)
	if err != nil {
		return nil, err
	}
	bot.runtime = rt

	return bot, nil
}

// Open builds a bot from a script on disk. YAML files load through the
// scriptfile adapter; directories load through the Loam adapter, one
// markdown file per state. Use WithLoader to source scripts from
// anywhere else.
func Open(path string, opts ...Option) (*Bot, error) {
	probe := &Bot{}
	for _, opt := range opts {
		opt(probe)
	}

	loader := probe.loader
	if loader == nil {
		if path == "" {
			return nil, fmt.Errorf("path is required when no custom loader is provided")
		}
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		switch strings.ToLower(filepath.Ext(absPath)) {
		case ".yaml", ".yml", ".json":
			loader, err = scriptfile.New(absPath)
			if err != nil {
				return nil, fmt.Errorf("opening script file: %w", err)
			}
		default:
			loader, err = loamAdapter.FromPath(absPath)
			if err != nil {
				return nil, fmt.Errorf("opening script directory: %w", err)
			}
		}
	}

	def, err := loader.Load(context.Background())
	if err != nil {
		return nil, fmt.Errorf("loading script: %w", err)
	}
	sc, err := script.Compile(def)
	if err != nil {
		return nil, fmt.Errorf("compiling script: %w", err)
	}

	if probe.Name == "" && def.Name == "" && path != "" {
		opts = append(opts, WithName(filepath.Base(path)))
	}
	opts = append(opts, WithLoader(loader))

	bot, err := New(sc, opts...)
	if err != nil {
		return nil, err
	}
	return bot, nil
}

// Respond handles one message in the current state and returns the reply.
func (b *Bot) Respond(ctx context.Context, message string) (string, error) {
	return b.runtime.Respond(ctx, message)
}

// GoToState transitions into the named state and returns its entry prompt.
// The default state and undeclared states are rejected.
func (b *Bot) GoToState(ctx context.Context, target string) (string, error) {
	return b.runtime.GoToState(ctx, target)
}

// Finish ends the conversation with the named manner and resets to the
// default state.
func (b *Bot) Finish(ctx context.Context, manner string) (string, error) {
	return b.runtime.Finish(ctx, manner)
}

// Current returns the name of the active state.
func (b *Bot) Current() string { return b.runtime.Current() }

// DefaultState returns the state conversations rest in.
func (b *Bot) DefaultState() string { return b.runtime.DefaultState() }

// Snapshot returns a deep copy of the conversation, safe to persist.
func (b *Bot) Snapshot() *domain.Conversation { return b.runtime.Snapshot() }

// Script returns the immutable script this bot runs.
func (b *Bot) Script() *script.Script { return b.script }

// Warnings returns the validation findings of construction, formatted.
// Empty in strict mode (strict construction fails instead).
func (b *Bot) Warnings() []string {
	out := make([]string, len(b.warnings))
	copy(out, b.warnings)
	return out
}

// Watch returns a channel that signals when the underlying script source
// changes. Returns an error if the loader does not support watching.
func (b *Bot) Watch(ctx context.Context) (<-chan string, error) {
	if w, ok := b.loader.(ports.Watchable); ok {
		return w.Watch(ctx)
	}
	return nil, fmt.Errorf("current loader does not support watching")
}

// Loader returns the ScriptLoader the bot was opened with, or nil for
// programmatic scripts.
func (b *Bot) Loader() ports.ScriptLoader { return b.loader }
