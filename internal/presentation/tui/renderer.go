// Package tui holds the terminal presentation helpers for the CLI.
package tui

import (
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// NewRenderer returns a markdown renderer sized to the terminal. On a
// non-terminal stdout it still renders, at glamour's default width.
func NewRenderer() func(string) (string, error) {
	opts := []glamour.TermRendererOption{
		glamour.WithAutoStyle(),
	}
	if w := terminalWidth(); w > 0 {
		opts = append(opts, glamour.WithWordWrap(w))
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return func(markdown string) (string, error) {
			return markdown, nil
		}
	}
	return r.Render
}

// terminalWidth reports the usable stdout width, 0 when unknown.
func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 2 {
		return 0
	}
	if w > 120 {
		w = 120
	}
	return w - 2
}
