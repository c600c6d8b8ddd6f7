package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStateEnter  EventType = "state_enter"
	EventFinish      EventType = "finish"
	EventTagsMatched EventType = "tags_matched"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// StateEvent represents entry into a state via a goto transition.
type StateEvent struct {
	EventBase
	State string `json:"state"`
	From  string `json:"from"`
}

// FinishEvent represents a completed conversation.
type FinishEvent struct {
	EventBase
	Manner string `json:"manner"`
	From   string `json:"from"`
}

// MatchEvent carries the tags extracted from one incoming message.
type MatchEvent struct {
	EventBase
	State string   `json:"state"`
	Tags  TagCount `json:"tags"`
}

// LifecycleHooks defines callbacks for engine observability. Nil fields
// are skipped. Hooks run synchronously on the conversation turn; keep them
// fast or hand off to a channel.
type LifecycleHooks struct {
	OnStateEnter  func(context.Context, *StateEvent)
	OnFinish      func(context.Context, *FinishEvent)
	OnTagsMatched func(context.Context, *MatchEvent)
}
