// Package graph renders a script's state machine as Mermaid flowchart
// syntax, for documentation and the graph CLI command.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/parley/pkg/script"
)

// Overlay contains conversation state to highlight on the graph.
type Overlay struct {
	VisitedStates []string
	CurrentState  string
}

// GenerateMermaid produces Mermaid flowchart syntax from a script
// snapshot. Shapes carry the semantics:
//   - Default state: ((Circle))
//   - Closure state (opaque handler): [[Subroutine]]
//   - Declarative state: [Rectangle]
//   - Finish manner: ([Stadium]) sink
//
// Rule edges are labeled with the tag they match on; finish edges are
// dotted. Overlay styles mark visited and current states if provided.
func GenerateMermaid(info script.Info, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	usedManners := make(map[string]bool)

	for _, st := range info.States {
		safeID := sanitizeMermaidID(st.Name)

		opener, closer := "[", "]"
		switch {
		case st.Default:
			opener, closer = "((", "))"
		case st.Rules == nil && st.HasRespond:
			opener, closer = "[[", "]]"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, st.Name, closer))

		for _, rule := range st.Rules {
			label := rule.When
			if rule.MinCount > 1 {
				label = fmt.Sprintf("%s x%d", rule.When, rule.MinCount)
			}
			if rule.GoTo != "" {
				sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", safeID, escapeLabel(label), sanitizeMermaidID(rule.GoTo)))
			} else {
				usedManners[rule.Finish] = true
				sb.WriteString(fmt.Sprintf("    %s -. \"%s\" .-> %s\n", safeID, escapeLabel(label), mannerID(rule.Finish)))
			}
		}

		if st.Else != nil {
			if st.Else.GoTo != "" {
				sb.WriteString(fmt.Sprintf("    %s -- \"else\" --> %s\n", safeID, sanitizeMermaidID(st.Else.GoTo)))
			} else {
				usedManners[st.Else.Finish] = true
				sb.WriteString(fmt.Sprintf("    %s -. \"else\" .-> %s\n", safeID, mannerID(st.Else.Finish)))
			}
		}
	}

	// Declared manners appear even when no rule reaches them yet.
	for _, manner := range info.Manners {
		usedManners[manner] = true
	}
	manners := make([]string, 0, len(usedManners))
	for manner := range usedManners {
		manners = append(manners, manner)
	}
	sort.Strings(manners)
	for _, manner := range manners {
		sb.WriteString(fmt.Sprintf("    %s([\"%s\"])\n", mannerID(manner), manner))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text for contrast on light and dark themes alike.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, name := range overlay.VisitedStates {
			safeID := sanitizeMermaidID(name)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}

		if overlay.CurrentState != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentState)))
		}
	}

	return sb.String()
}

func mannerID(manner string) string {
	return "finish_" + sanitizeMermaidID(manner)
}

// escapeLabel rewrites double quotes so labels survive Mermaid parsing.
func escapeLabel(label string) string {
	return strings.ReplaceAll(label, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
