package script

import (
	"sort"

	"github.com/aretw0/parley/pkg/domain"
)

// StateDef is the frozen definition of one dialogue state.
type StateDef struct {
	// Name identifies the state.
	Name string

	// Prompt is the static entry text for declaratively built states.
	// Empty when Entry is a custom closure.
	Prompt string

	// Entry produces the text spoken on entering the state. Nil on the
	// default state and on states that were declared without one.
	Entry domain.EntryFunc

	// Respond decides the outcome of a message arriving in this state.
	Respond domain.RespondFunc

	// Rules holds the declarative policy Respond was compiled from, when
	// there is one. Closure-built states have no static rules.
	Rules *RuleSet
}

// MannerDef is the frozen definition of one finish manner.
type MannerDef struct {
	Name string

	// Text is the static parting line for declaratively built manners.
	Text string

	// Fn produces the parting line.
	Fn domain.CompletionFunc
}

// Script is an immutable dialogue definition. Build one with Builder or
// Compile; after that it is safe to share across conversations.
type Script struct {
	name         string
	defaultState string
	states       map[string]*StateDef
	order        []string
	manners      map[string]*MannerDef
	table        domain.TagTable
}

// Name returns the script's name.
func (s *Script) Name() string { return s.name }

// DefaultState returns the state conversations rest in.
func (s *Script) DefaultState() string { return s.defaultState }

// States returns the declared state names in declaration order.
func (s *Script) States() []string {
	order := make([]string, len(s.order))
	copy(order, s.order)
	return order
}

// State looks up a state definition by name.
func (s *Script) State(name string) (*StateDef, bool) {
	def, ok := s.states[name]
	return def, ok
}

// Declared reports whether the state name is part of the script.
func (s *Script) Declared(name string) bool {
	_, ok := s.states[name]
	return ok
}

// Manner looks up a completion manner by name.
func (s *Script) Manner(name string) (*MannerDef, bool) {
	def, ok := s.manners[name]
	return def, ok
}

// Manners returns the declared manner names, sorted.
func (s *Script) Manners() []string {
	names := make([]string, 0, len(s.manners))
	for name := range s.manners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Table returns the normalized tag table.
func (s *Script) Table() domain.TagTable { return s.table }

// Info is a serializable snapshot of a script's shape, used by the graph
// renderer and the introspection surfaces.
type Info struct {
	Name    string      `json:"name"`
	Default string      `json:"default"`
	States  []StateInfo `json:"states"`
	Manners []string    `json:"manners"`
	Tags    []string    `json:"tags"`
	Phrases int         `json:"phrases"`
}

// StateInfo describes one state in an Info snapshot.
type StateInfo struct {
	Name       string `json:"name"`
	Default    bool   `json:"default,omitempty"`
	HasEntry   bool   `json:"has_entry"`
	HasRespond bool   `json:"has_respond"`
	Prompt     string `json:"prompt,omitempty"`
	Rules      []Rule `json:"rules,omitempty"`
	Else       *Else  `json:"else,omitempty"`
}

// Describe returns the introspection snapshot.
func (s *Script) Describe() Info {
	info := Info{
		Name:    s.name,
		Default: s.defaultState,
		Manners: s.Manners(),
		Tags:    s.table.TagSet(),
		Phrases: len(s.table),
	}
	for _, name := range s.order {
		def := s.states[name]
		si := StateInfo{
			Name:       def.Name,
			Default:    def.Name == s.defaultState,
			HasEntry:   def.Entry != nil,
			HasRespond: def.Respond != nil,
			Prompt:     def.Prompt,
		}
		if def.Rules != nil {
			si.Rules = def.Rules.Rules
			si.Else = def.Rules.Else
		}
		info.States = append(info.States, si)
	}
	return info
}
