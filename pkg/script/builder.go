package script

import (
	"errors"
	"fmt"

	"github.com/aretw0/parley/pkg/domain"
)

// Builder assembles a Script fluently. Methods never fail mid-chain;
// problems are collected and reported by Build.
type Builder struct {
	name         string
	defaultState string
	rawTags      map[string]any
	states       map[string]*StateBuilder
	order        []string
	manners      map[string]*MannerDef
	errs         []error
}

// New creates a script builder.
func New(name string) *Builder {
	return &Builder{
		name:    name,
		rawTags: make(map[string]any),
		states:  make(map[string]*StateBuilder),
		manners: make(map[string]*MannerDef),
	}
}

// Default nominates the state conversations rest in between exchanges.
func (b *Builder) Default(state string) *Builder {
	b.defaultState = state
	return b
}

// Tags merges a raw phrase -> tag(s) mapping into the table. Values may
// be strings or lists of strings; normalization happens at Build.
func (b *Builder) Tags(raw map[string]any) *Builder {
	for phrase, value := range raw {
		b.rawTags[phrase] = value
	}
	return b
}

// Tag declares a single phrase with its tags.
func (b *Builder) Tag(phrase string, tags ...string) *Builder {
	b.rawTags[phrase] = tags
	return b
}

// State returns the builder for the named state, creating it on first
// use. Declaration order is preserved.
func (b *Builder) State(name string) *StateBuilder {
	if sb, ok := b.states[name]; ok {
		return sb
	}
	sb := &StateBuilder{
		def:     StateDef{Name: name},
		builder: b,
	}
	b.states[name] = sb
	b.order = append(b.order, name)
	return sb
}

// Manner declares a finish manner with a static parting line.
func (b *Builder) Manner(name, text string) *Builder {
	b.manners[name] = &MannerDef{
		Name: name,
		Text: text,
		Fn:   func() string { return text },
	}
	return b
}

// MannerFunc declares a finish manner backed by a closure.
func (b *Builder) MannerFunc(name string, fn domain.CompletionFunc) *Builder {
	b.manners[name] = &MannerDef{Name: name, Fn: fn}
	return b
}

func (b *Builder) addErr(err error) {
	b.errs = append(b.errs, err)
}

// Build normalizes the tag table, compiles rule-based states and freezes
// the script. Malformed tag values, conflicting state configuration and
// malformed rules all surface here.
func (b *Builder) Build() (*Script, error) {
	errs := make([]error, 0, len(b.errs))
	errs = append(errs, b.errs...)

	if b.defaultState == "" {
		errs = append(errs, fmt.Errorf("script %q has no default state", b.name))
	}

	table, err := domain.NewTagTable(b.rawTags)
	if err != nil {
		errs = append(errs, err)
	}

	states := make(map[string]*StateDef, len(b.states))
	for _, name := range b.order {
		def, err := b.states[name].freeze()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		states[name] = def
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	order := make([]string, len(b.order))
	copy(order, b.order)

	manners := make(map[string]*MannerDef, len(b.manners))
	for name, def := range b.manners {
		manners[name] = def
	}

	return &Script{
		name:         b.name,
		defaultState: b.defaultState,
		states:       states,
		order:        order,
		manners:      manners,
		table:        table,
	}, nil
}

// StateBuilder provides a fluent API for configuring one state.
type StateBuilder struct {
	def     StateDef
	rules   *RuleSet
	builder *Builder
}

// Enter binds a custom entry hook.
func (s *StateBuilder) Enter(fn domain.EntryFunc) *StateBuilder {
	s.def.Entry = fn
	return s
}

// Prompt binds a static entry prompt.
func (s *StateBuilder) Prompt(text string) *StateBuilder {
	s.def.Prompt = text
	return s
}

// Respond binds a custom response hook. A state configured with Respond
// cannot also carry rules.
func (s *StateBuilder) Respond(fn domain.RespondFunc) *StateBuilder {
	s.def.Respond = fn
	return s
}

// Rule appends a declarative response clause matching the tag once.
func (s *StateBuilder) Rule(when string, action domain.Action) *StateBuilder {
	return s.RuleMin(when, 1, action)
}

// RuleMin appends a clause requiring the tag at least min times.
func (s *StateBuilder) RuleMin(when string, min int, action domain.Action) *StateBuilder {
	rule := Rule{When: when, MinCount: min}
	switch action.Kind {
	case domain.ActionGoTo:
		rule.GoTo = action.Target
	case domain.ActionFinish:
		rule.Finish = action.Target
	default:
		s.builder.addErr(fmt.Errorf("state %q: rule on %q has an invalid action", s.def.Name, when))
		return s
	}
	s.ensureRules().Rules = append(s.rules.Rules, rule)
	return s
}

// Else sets the fallback transition taken when no rule matches.
func (s *StateBuilder) Else(action domain.Action) *StateBuilder {
	els := &Else{}
	switch action.Kind {
	case domain.ActionGoTo:
		els.GoTo = action.Target
	case domain.ActionFinish:
		els.Finish = action.Target
	default:
		s.builder.addErr(fmt.Errorf("state %q: else has an invalid action", s.def.Name))
		return s
	}
	s.ensureRules().Else = els
	return s
}

// Rules replaces the state's declarative policy wholesale.
func (s *StateBuilder) Rules(rs RuleSet) *StateBuilder {
	s.rules = &rs
	return s
}

func (s *StateBuilder) ensureRules() *RuleSet {
	if s.rules == nil {
		s.rules = &RuleSet{}
	}
	return s.rules
}

func (s *StateBuilder) freeze() (*StateDef, error) {
	def := s.def

	if def.Prompt != "" && def.Entry != nil {
		return nil, fmt.Errorf("state %q sets both a prompt and an entry hook", def.Name)
	}
	if def.Prompt != "" {
		prompt := def.Prompt
		def.Entry = func() string { return prompt }
	}

	if s.rules != nil {
		if def.Respond != nil {
			return nil, fmt.Errorf("state %q sets both rules and a respond hook", def.Name)
		}
		respond, err := s.rules.Compile()
		if err != nil {
			return nil, fmt.Errorf("state %q: %w", def.Name, err)
		}
		def.Respond = respond
		def.Rules = s.rules
	}

	return &def, nil
}
