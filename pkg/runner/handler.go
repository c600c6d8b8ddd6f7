package runner

import "context"

// Reply is one bot turn as presented to the user.
type Reply struct {
	// Speaker labels who is talking, usually the bot name. May be empty.
	Speaker string `json:"speaker,omitempty"`

	// State is the engine state after the turn.
	State string `json:"state"`

	// Text is the bot's answer.
	Text string `json:"text"`
}

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (CLI/TUI) and JSON (structured)
// modes without touching the loop.
type IOHandler interface {
	// Output presents a bot reply to the user.
	Output(ctx context.Context, reply Reply) error

	// Input reads the next user message.
	Input(ctx context.Context) (string, error)

	// SystemOutput presents a meta-message (warnings, status updates),
	// distinct from bot replies.
	SystemOutput(ctx context.Context, msg string) error
}
