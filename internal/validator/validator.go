// Package validator checks a script for completeness before an engine
// runs it. Findings are warnings, not failures: the permissive default
// logs them and lets dispatch fail later, the strict mode turns them into
// construction errors.
package validator

import (
	"fmt"

	"github.com/aretw0/parley/pkg/script"
)

// Warning codes.
const (
	CodeDefaultUndeclared = "default_undeclared"
	CodeMissingEntry      = "missing_entry"
	CodeMissingRespond    = "missing_respond"
	CodeUnknownTag        = "unknown_tag"
	CodeUnknownTarget     = "unknown_target"
	CodeTargetIsDefault   = "target_is_default"
	CodeUnknownManner     = "unknown_manner"
	CodeNoFallback        = "no_fallback"
	CodeUnreachable       = "unreachable"
)

// Warning is one validation finding.
type Warning struct {
	Code    string
	Subject string // state, manner or tag the finding is about
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Code, w.Message)
}

// Check inspects the script and returns every finding. The order is
// deterministic: header findings first, then per state in declaration
// order, then reachability.
func Check(sc *script.Script) []Warning {
	var warnings []Warning

	states := sc.States()
	def := sc.DefaultState()

	if !sc.Declared(def) {
		msg := fmt.Sprintf("default state %q is not declared", def)
		if len(states) > 0 {
			msg += fmt.Sprintf("; did you mean %q?", states[0])
		}
		warnings = append(warnings, Warning{Code: CodeDefaultUndeclared, Subject: def, Message: msg})
	}

	tagSet := make(map[string]bool)
	for _, tag := range sc.Table().TagSet() {
		tagSet[tag] = true
	}

	for _, name := range states {
		st, _ := sc.State(name)

		if name != def && st.Entry == nil {
			warnings = append(warnings, Warning{
				Code:    CodeMissingEntry,
				Subject: name,
				Message: fmt.Sprintf("state %q has no entry hook and cannot be entered", name),
			})
		}
		if st.Respond == nil {
			warnings = append(warnings, Warning{
				Code:    CodeMissingRespond,
				Subject: name,
				Message: fmt.Sprintf("state %q has no response hook and cannot handle messages", name),
			})
		}

		if st.Rules != nil {
			warnings = append(warnings, checkRules(sc, name, st.Rules, tagSet, def)...)
		}
	}

	warnings = append(warnings, checkReachability(sc, def)...)

	return warnings
}

func checkRules(sc *script.Script, state string, rs *script.RuleSet, tagSet map[string]bool, def string) []Warning {
	var warnings []Warning

	checkTarget := func(clause string, goTo, finish string) {
		if goTo != "" {
			switch {
			case goTo == def:
				warnings = append(warnings, Warning{
					Code:    CodeTargetIsDefault,
					Subject: state,
					Message: fmt.Sprintf("%s in state %q transitions to the default state %q; use finish instead", clause, state, def),
				})
			case !sc.Declared(goTo):
				warnings = append(warnings, Warning{
					Code:    CodeUnknownTarget,
					Subject: state,
					Message: fmt.Sprintf("%s in state %q targets undeclared state %q", clause, state, goTo),
				})
			}
		}
		if finish != "" {
			if _, ok := sc.Manner(finish); !ok {
				warnings = append(warnings, Warning{
					Code:    CodeUnknownManner,
					Subject: state,
					Message: fmt.Sprintf("%s in state %q finishes with undeclared manner %q", clause, state, finish),
				})
			}
		}
	}

	for _, rule := range rs.Rules {
		if rule.When != "" && !tagSet[rule.When] {
			warnings = append(warnings, Warning{
				Code:    CodeUnknownTag,
				Subject: state,
				Message: fmt.Sprintf("rule in state %q matches tag %q, which no phrase produces", state, rule.When),
			})
		}
		checkTarget("rule", rule.GoTo, rule.Finish)
	}

	if rs.Else != nil {
		checkTarget("else", rs.Else.GoTo, rs.Else.Finish)
	} else if len(rs.Rules) > 0 {
		warnings = append(warnings, Warning{
			Code:    CodeNoFallback,
			Subject: state,
			Message: fmt.Sprintf("state %q has rules but no else fallback; unmatched messages will fail", state),
		})
	}

	return warnings
}

// checkReachability crawls rule edges from the default state. It only
// runs on fully declarative scripts: a single closure hook makes the edge
// set unknowable and the analysis would report false positives.
func checkReachability(sc *script.Script, def string) []Warning {
	states := sc.States()
	if !sc.Declared(def) {
		return nil
	}
	for _, name := range states {
		st, _ := sc.State(name)
		if st.Respond != nil && st.Rules == nil {
			return nil
		}
	}

	visited := map[string]bool{def: true}
	queue := []string{def}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		st, ok := sc.State(current)
		if !ok || st.Rules == nil {
			continue
		}
		targets := make([]string, 0, len(st.Rules.Rules)+1)
		for _, rule := range st.Rules.Rules {
			if rule.GoTo != "" {
				targets = append(targets, rule.GoTo)
			}
		}
		if st.Rules.Else != nil && st.Rules.Else.GoTo != "" {
			targets = append(targets, st.Rules.Else.GoTo)
		}
		for _, target := range targets {
			if sc.Declared(target) && !visited[target] {
				visited[target] = true
				queue = append(queue, target)
			}
		}
	}

	var warnings []Warning
	for _, name := range states {
		if !visited[name] {
			warnings = append(warnings, Warning{
				Code:    CodeUnreachable,
				Subject: name,
				Message: fmt.Sprintf("state %q is not reachable from the default state", name),
			})
		}
	}
	return warnings
}
