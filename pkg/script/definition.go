package script

import "fmt"

// Definition is the wire form of a script, shaped for YAML or JSON. It is
// what declarative loaders produce; Compile turns it into a runnable
// Script.
type Definition struct {
	Name    string            `yaml:"name,omitempty" json:"name,omitempty"`
	Default string            `yaml:"default" json:"default"`
	Tags    map[string]any    `yaml:"tags,omitempty" json:"tags,omitempty"`
	States  []StateDefinition `yaml:"states" json:"states"`
	Manners map[string]string `yaml:"manners,omitempty" json:"manners,omitempty"`
}

// StateDefinition is one state in wire form: a static prompt plus a
// declarative response policy.
type StateDefinition struct {
	Name   string `yaml:"name" json:"name"`
	Prompt string `yaml:"prompt,omitempty" json:"prompt,omitempty"`
	Rules  []Rule `yaml:"rules,omitempty" json:"rules,omitempty"`
	Else   *Else  `yaml:"else,omitempty" json:"else,omitempty"`
}

// Compile builds the frozen Script a definition describes.
func Compile(def *Definition) (*Script, error) {
	if def == nil {
		return nil, fmt.Errorf("nil script definition")
	}

	name := def.Name
	if name == "" {
		name = "script"
	}

	b := New(name).Default(def.Default).Tags(def.Tags)

	seen := make(map[string]bool, len(def.States))
	for _, sd := range def.States {
		if sd.Name == "" {
			return nil, fmt.Errorf("script %q declares a state with no name", name)
		}
		if seen[sd.Name] {
			return nil, fmt.Errorf("script %q declares state %q twice", name, sd.Name)
		}
		seen[sd.Name] = true

		sb := b.State(sd.Name)
		if sd.Prompt != "" {
			sb.Prompt(sd.Prompt)
		}
		if len(sd.Rules) > 0 || sd.Else != nil {
			sb.Rules(RuleSet{Rules: sd.Rules, Else: sd.Else})
		}
	}

	for manner, text := range def.Manners {
		b.Manner(manner, text)
	}

	return b.Build()
}
