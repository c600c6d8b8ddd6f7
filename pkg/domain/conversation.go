package domain

import "time"

// Conversation represents the persistable snapshot of one session. The
// script and matcher are immutable and shared; this is the only mutable
// piece of engine identity, and exactly one conversation turn may be in
// flight against it at a time.
type Conversation struct {
	// SessionID identifies the session in a store. Empty for ephemeral use.
	SessionID string `json:"session_id,omitempty"`

	// Current is the name of the active state.
	Current string `json:"current"`

	// History tracks the states visited, starting with the default state.
	History []string `json:"history,omitempty"`

	// UpdatedAt is bumped on every transition.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewConversation creates a clean conversation resting at the start state.
func NewConversation(sessionID, start string) *Conversation {
	return &Conversation{
		SessionID: sessionID,
		Current:   start,
		History:   []string{start},
		UpdatedAt: time.Now().UTC(),
	}
}

// Visit records a transition into the named state.
func (c *Conversation) Visit(state string) {
	c.Current = state
	c.History = append(c.History, state)
	c.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy, safe to hand across store boundaries.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	dup := *c
	dup.History = make([]string, len(c.History))
	copy(dup.History, c.History)
	return &dup
}
