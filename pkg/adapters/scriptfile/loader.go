// Package scriptfile loads declarative script definitions from single
// YAML or JSON files.
package scriptfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/parley/pkg/script"
	"gopkg.in/yaml.v3"
)

// Loader implements ports.ScriptLoader for a script file on disk.
type Loader struct {
	path string
}

// New creates a loader for the given path. The extension decides the
// codec: .json is JSON, everything else is parsed as YAML.
func New(path string) (*Loader, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve script path: %w", err)
	}
	return &Loader{path: abs}, nil
}

// Path returns the absolute path being loaded.
func (l *Loader) Path() string {
	return l.path
}

// Load reads and parses the script definition.
func (l *Loader) Load(ctx context.Context) (*script.Definition, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script file: %w", err)
	}

	var def script.Definition
	if strings.ToLower(filepath.Ext(l.path)) == ".json" {
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to parse script json: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to parse script yaml: %w", err)
		}
	}

	if def.Name == "" {
		base := filepath.Base(l.path)
		def.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	return &def, nil
}
