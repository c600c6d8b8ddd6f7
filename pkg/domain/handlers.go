package domain

// EntryFunc produces the prompt spoken when the conversation enters its state.
type EntryFunc func() string

// RespondFunc decides the outcome of a message arriving while its state is
// current. It receives the raw message and the tags the matcher extracted
// from it, and must return a valid Action (GoTo or Finish). The engine
// executes the action and produces the reply, so state and output always
// change together.
type RespondFunc func(message string, tags TagCount) Action

// CompletionFunc produces the parting line for a finish manner.
type CompletionFunc func() string
