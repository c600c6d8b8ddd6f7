package memory

import (
	"context"
	"fmt"

	"github.com/aretw0/parley/pkg/script"
)

// Loader implements ports.ScriptLoader from a definition held in memory.
// Useful for tests and for embedding scripts in binaries.
type Loader struct {
	def *script.Definition
}

// NewLoader wraps an in-memory definition.
func NewLoader(def *script.Definition) (*Loader, error) {
	if def == nil {
		return nil, fmt.Errorf("memory loader requires a definition")
	}
	return &Loader{def: def}, nil
}

// Load returns the wrapped definition.
func (l *Loader) Load(ctx context.Context) (*script.Definition, error) {
	return l.def, nil
}
