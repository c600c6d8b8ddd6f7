package domain

// ActionKind discriminates the two legal outcomes of a response hook.
type ActionKind string

const (
	// ActionGoTo moves the conversation to another declared state.
	ActionGoTo ActionKind = "go_to"

	// ActionFinish ends the conversation with a completion manner and
	// returns to the default state.
	ActionFinish ActionKind = "finish"
)

// Action is the terminal decision of a response hook. The zero value is
// invalid; the engine rejects it as a contract violation. Build one with
// GoTo or Finish.
type Action struct {
	Kind   ActionKind
	Target string // state name for ActionGoTo, manner name for ActionFinish
}

// GoTo builds an action that transitions to the named state.
func GoTo(state string) Action {
	return Action{Kind: ActionGoTo, Target: state}
}

// Finish builds an action that completes the conversation with the named manner.
func Finish(manner string) Action {
	return Action{Kind: ActionFinish, Target: manner}
}

// Valid reports whether the action carries a recognized kind and a target.
func (a Action) Valid() bool {
	return (a.Kind == ActionGoTo || a.Kind == ActionFinish) && a.Target != ""
}
