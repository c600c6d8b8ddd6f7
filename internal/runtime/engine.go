// Package runtime implements the core dialogue engine: one mutable
// conversation driven against an immutable script.
package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/match"
	"github.com/aretw0/parley/pkg/script"
)

// Engine executes one conversation. It owns the only mutable cell (the
// conversation snapshot) and assumes a single in-flight turn at a time;
// hosts that multiplex sessions create one engine per conversation and
// share the script and matcher read-only.
type Engine struct {
	script  *script.Script
	matcher *match.Matcher
	conv    *domain.Conversation
	logger  *slog.Logger
	hooks   domain.LifecycleHooks

	sessionID      string
	mannerFallback string
	hasFallback    bool
}

// New compiles the script's tag table and seeds the conversation at the
// default state, unless a restored conversation was supplied.
func New(sc *script.Script, opts ...Option) (*Engine, error) {
	if sc == nil {
		return nil, fmt.Errorf("nil script")
	}

	e := &Engine{
		script: sc,
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}

	matcher, err := match.New(sc.Table())
	if err != nil {
		return nil, fmt.Errorf("compiling tag table: %w", err)
	}
	e.matcher = matcher

	if e.conv == nil {
		e.conv = domain.NewConversation(e.sessionID, sc.DefaultState())
	} else if e.conv.Current != sc.DefaultState() && !sc.Declared(e.conv.Current) {
		return nil, fmt.Errorf("restored conversation rests in unknown state %q", e.conv.Current)
	}

	return e, nil
}

// Current returns the name of the active state.
func (e *Engine) Current() string { return e.conv.Current }

// DefaultState returns the state conversations rest in.
func (e *Engine) DefaultState() string { return e.script.DefaultState() }

// Script returns the immutable script this engine runs.
func (e *Engine) Script() *script.Script { return e.script }

// Snapshot returns a deep copy of the conversation, safe to persist.
func (e *Engine) Snapshot() *domain.Conversation { return e.conv.Clone() }

// Respond handles one message: tag it, dispatch to the current state's
// response hook and execute the action it returns. The reply is always
// the output of the resulting transition, so state and output change
// together.
func (e *Engine) Respond(ctx context.Context, message string) (string, error) {
	current := e.conv.Current
	state, ok := e.script.State(current)
	if !ok || state.Respond == nil {
		return "", &domain.UnboundHookError{Name: current, Hook: domain.HookRespond}
	}

	tags := e.matcher.Tag(message)
	e.logger.Debug("message tagged", "state", current, "tags", tags.Tags())
	if e.hooks.OnTagsMatched != nil {
		e.hooks.OnTagsMatched(ctx, &domain.MatchEvent{
			EventBase: eventBase(domain.EventTagsMatched),
			State:     current,
			Tags:      tags,
		})
	}

	action := state.Respond(message, tags)
	if !action.Valid() {
		return "", &domain.TransitionError{
			Reason: fmt.Sprintf("response hook for state %q returned no transition", current),
		}
	}

	if action.Kind == domain.ActionGoTo {
		return e.GoToState(ctx, action.Target)
	}
	return e.Finish(ctx, action.Target)
}

// GoToState transitions into the named state: reject the default state
// and undeclared states, run the entry hook, then mutate. Any error
// leaves the conversation untouched.
func (e *Engine) GoToState(ctx context.Context, target string) (string, error) {
	if target == e.script.DefaultState() {
		return "", &domain.TransitionError{
			Target: target,
			Reason: "default state is only reachable through Finish",
		}
	}
	state, ok := e.script.State(target)
	if !ok {
		return "", &domain.TransitionError{
			Target: target,
			Reason: "state is not declared by the script",
		}
	}
	if state.Entry == nil {
		return "", &domain.UnboundHookError{Name: target, Hook: domain.HookEntry}
	}

	response := state.Entry()

	from := e.conv.Current
	e.conv.Visit(target)
	e.logger.Debug("entered state", "from", from, "state", target)
	if e.hooks.OnStateEnter != nil {
		e.hooks.OnStateEnter(ctx, &domain.StateEvent{
			EventBase: eventBase(domain.EventStateEnter),
			State:     target,
			From:      from,
		})
	}

	return response, nil
}

// Finish completes the conversation with the named manner and resets to
// the default state. Unknown manners fail unless a fallback line was
// configured.
func (e *Engine) Finish(ctx context.Context, manner string) (string, error) {
	var response string
	if def, ok := e.script.Manner(manner); ok {
		response = def.Fn()
	} else if e.hasFallback {
		e.logger.Warn("unknown finish manner, using fallback", "manner", manner)
		response = e.mannerFallback
	} else {
		return "", &domain.UnboundHookError{Name: manner, Hook: domain.HookCompletion}
	}

	from := e.conv.Current
	e.conv.Visit(e.script.DefaultState())
	e.logger.Debug("conversation finished", "manner", manner, "from", from)
	if e.hooks.OnFinish != nil {
		e.hooks.OnFinish(ctx, &domain.FinishEvent{
			EventBase: eventBase(domain.EventFinish),
			Manner:    manner,
			From:      from,
		})
	}

	return response, nil
}

func eventBase(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now().UTC(), Type: t}
}
