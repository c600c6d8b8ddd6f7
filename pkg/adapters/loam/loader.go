// Package loam adapts a Loam markdown repository to the ScriptLoader
// interface: one document per state with the body as entry prompt,
// finish/<manner> documents for completion lines, and a tags document
// for the shared phrase table.
package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/parley/pkg/script"
	"github.com/mitchellh/mapstructure"
)

const (
	tagsDocument = "tags"
	finishPrefix = "finish/"
)

// Loader adapts the Loam library to the Parley ScriptLoader interface.
type Loader struct {
	Repo *loam.TypedRepository[StateMetadata]
	name string
}

// New creates a new Loam adapter over an initialized typed repository.
func New(repo *loam.TypedRepository[StateMetadata], name string) *Loader {
	return &Loader{
		Repo: repo,
		name: name,
	}
}

// FromPath initializes a Loam repository at the given directory and wraps
// it in a Loader. The script name is the directory base name.
func FromPath(path string) (*Loader, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	// Strict mode keeps numeric frontmatter as json.Number, read-only
	// avoids Loam's sandbox behavior in dev mode. The loader never
	// modifies scripts, only reads them.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}

	return New(loam.NewTypedRepository[StateMetadata](repo), filepath.Base(absPath)), nil
}

// Load assembles the full script definition from the repository.
func (l *Loader) Load(ctx context.Context) (*script.Definition, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	def := &script.Definition{
		Name:    l.name,
		Tags:    make(map[string]any),
		Manners: make(map[string]string),
	}

	seen := make(map[string]string)
	for _, doc := range docs {
		id := trimExtension(doc.ID)

		switch {
		case id == tagsDocument:
			mergeTags(def.Tags, doc.Data.Tags)

		case strings.HasPrefix(id, finishPrefix):
			manner := strings.TrimPrefix(id, finishPrefix)
			if manner == "" {
				return nil, fmt.Errorf("finish document %q has no manner name", doc.ID)
			}
			def.Manners[manner] = strings.TrimSpace(doc.Content)

		default:
			// Use the name from metadata if available, otherwise the filename.
			name := doc.Data.Name
			if name == "" {
				name = id
			}

			// Collision Detection
			if existing, ok := seen[name]; ok {
				return nil, fmt.Errorf("collision detected: state %q is defined in both %q and %q", name, existing, doc.ID)
			}
			seen[name] = doc.ID

			sd, err := buildState(name, doc.Data, doc.Content)
			if err != nil {
				return nil, fmt.Errorf("state %q (%s): %w", name, doc.ID, err)
			}
			def.States = append(def.States, *sd)

			if doc.Data.Default {
				if def.Default != "" && def.Default != name {
					return nil, fmt.Errorf("both %q and %q claim default: true", def.Default, name)
				}
				def.Default = name
			}
			mergeTags(def.Tags, doc.Data.Tags)
		}
	}

	if def.Default == "" {
		return nil, fmt.Errorf("script %q has no document with default: true", l.name)
	}

	// Deterministic order regardless of filesystem walk order.
	sort.Slice(def.States, func(i, j int) bool {
		return def.States[i].Name < def.States[j].Name
	})

	return def, nil
}

func buildState(name string, meta StateMetadata, content string) (*script.StateDefinition, error) {
	sd := &script.StateDefinition{
		Name:   name,
		Prompt: strings.TrimSpace(content),
	}

	for i, raw := range meta.Rules {
		var rm ruleMeta
		if err := weakDecode(raw, &rm); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		sd.Rules = append(sd.Rules, script.Rule{
			When:     rm.When,
			MinCount: rm.MinCount,
			GoTo:     rm.GoTo,
			Finish:   rm.Finish,
		})
	}

	if len(meta.Else) > 0 {
		var em elseMeta
		if err := weakDecode(meta.Else, &em); err != nil {
			return nil, fmt.Errorf("else clause: %w", err)
		}
		sd.Else = &script.Else{GoTo: em.GoTo, Finish: em.Finish}
	}

	return sd, nil
}

// weakDecode maps loose frontmatter values onto a typed struct. Weak
// typing converts the json.Number values Loam's strict mode produces.
func weakDecode(raw, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

func mergeTags(dst, src map[string]any) {
	for phrase, value := range src {
		dst[phrase] = value
	}
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// Watch implements ports.Watchable.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	// Watch every script-relevant file (recursive) using the doublestar
	// pattern supported by Loam.
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				// Loam debounces on its side. Pass the changed ID up the
				// chain, respecting context cancellation.
				select {
				case ch <- evt.ID:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}
