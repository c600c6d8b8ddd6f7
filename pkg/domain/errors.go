package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// HookKind identifies which handler slot a dispatch needed.
type HookKind string

const (
	HookEntry      HookKind = "entry"
	HookRespond    HookKind = "respond"
	HookCompletion HookKind = "completion"
)

// UnboundHookError is returned when dispatch reaches a state or manner
// that has no hook bound for the required slot. Permissive validation
// warns about these at construction; hitting one at runtime is always an
// error.
type UnboundHookError struct {
	Name string   // state name, or manner name for HookCompletion
	Hook HookKind
}

func (e *UnboundHookError) Error() string {
	if e.Hook == HookCompletion {
		return fmt.Sprintf("no completion hook bound for manner %q", e.Name)
	}
	return fmt.Sprintf("no %s hook bound for state %q", e.Hook, e.Name)
}

// TransitionError is returned when a transition breaks the engine
// contract: targeting the default state through GoToState, targeting an
// undeclared state, or a response hook returning an invalid Action.
type TransitionError struct {
	Target string
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal transition to %q: %s", e.Target, e.Reason)
}

// TagValueError is returned when a tag table entry's value is neither a
// string nor a list of strings.
type TagValueError struct {
	Phrase string
	Value  any
}

func (e *TagValueError) Error() string {
	return fmt.Sprintf("tags for phrase %q must be a string or a list of strings, got %T", e.Phrase, e.Value)
}
