package script

import (
	"fmt"

	"github.com/aretw0/parley/pkg/domain"
)

// Rule is one declarative response clause: when the named tag was matched
// at least MinCount times (default 1), take the transition. The first
// matching rule wins.
type Rule struct {
	When     string `yaml:"when" json:"when"`
	MinCount int    `yaml:"min_count,omitempty" json:"min_count,omitempty"`
	GoTo     string `yaml:"go_to,omitempty" json:"go_to,omitempty"`
	Finish   string `yaml:"finish,omitempty" json:"finish,omitempty"`
}

// Else is the fallback transition taken when no rule matches.
type Else struct {
	GoTo   string `yaml:"go_to,omitempty" json:"go_to,omitempty"`
	Finish string `yaml:"finish,omitempty" json:"finish,omitempty"`
}

// RuleSet is a declarative response policy, the data equivalent of a
// hand-written RespondFunc.
type RuleSet struct {
	Rules []Rule `yaml:"rules,omitempty" json:"rules,omitempty"`
	Else  *Else  `yaml:"else,omitempty" json:"else,omitempty"`
}

func (r Rule) action() domain.Action {
	if r.GoTo != "" {
		return domain.GoTo(r.GoTo)
	}
	return domain.Finish(r.Finish)
}

func (r Rule) validate() error {
	if r.When == "" {
		return fmt.Errorf("rule is missing a tag to match on")
	}
	if (r.GoTo == "") == (r.Finish == "") {
		return fmt.Errorf("rule on %q must set exactly one of go_to or finish", r.When)
	}
	if r.MinCount < 0 {
		return fmt.Errorf("rule on %q has a negative min_count", r.When)
	}
	return nil
}

// Compile turns the rule set into a response hook. Rules are evaluated in
// order; absent a match and absent an else clause the hook returns the
// zero Action, which the engine reports as a contract violation.
func (rs *RuleSet) Compile() (domain.RespondFunc, error) {
	for _, rule := range rs.Rules {
		if err := rule.validate(); err != nil {
			return nil, err
		}
	}
	if rs.Else != nil && (rs.Else.GoTo == "") == (rs.Else.Finish == "") {
		return nil, fmt.Errorf("else clause must set exactly one of go_to or finish")
	}

	rules := make([]Rule, len(rs.Rules))
	copy(rules, rs.Rules)
	var fallback *Else
	if rs.Else != nil {
		f := *rs.Else
		fallback = &f
	}

	return func(message string, tags domain.TagCount) domain.Action {
		for _, rule := range rules {
			min := rule.MinCount
			if min == 0 {
				min = 1
			}
			if tags.Count(rule.When) >= min {
				return rule.action()
			}
		}
		if fallback != nil {
			if fallback.GoTo != "" {
				return domain.GoTo(fallback.GoTo)
			}
			return domain.Finish(fallback.Finish)
		}
		return domain.Action{}
	}, nil
}
