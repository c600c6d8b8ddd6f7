package ports

import (
	"context"

	"github.com/aretw0/parley/pkg/script"
)

// ScriptLoader defines how a declarative script definition is sourced.
// This allows the storage layer (YAML file, Loam directory, memory) to be
// decoupled from compilation.
type ScriptLoader interface {
	// Load reads and assembles the full script definition.
	Load(ctx context.Context) (*script.Definition, error)
}

// Watchable defines an interface for loaders that can notify about
// backend changes. This is typically used for hot-reload or dev-mode
// functionality.
type Watchable interface {
	// Watch returns a channel carrying the ID of each changed document.
	// Consumers treat any event as a signal to reload.
	Watch(ctx context.Context) (<-chan string, error)
}
