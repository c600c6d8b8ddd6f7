package testutils

import (
	"path/filepath"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/stretchr/testify/require"
)

// SetupScriptRepo creates a temporary directory and initializes a Loam
// repository in it, in strict mode so numeric frontmatter decodes the
// same way it does in production. The repository stays writable so tests
// can seed documents through Save.
func SetupScriptRepo(t *testing.T, opts ...loam.Option) (string, core.Repository) {
	t.Helper()

	tmpDir := t.TempDir()

	absPath, err := filepath.Abs(tmpDir)
	require.NoError(t, err, "Failed to get absolute path for temp dir")

	opts = append([]loam.Option{loam.WithStrict(true)}, opts...)
	repo, err := loam.Init(absPath, opts...)
	require.NoError(t, err, "Failed to init loam repo")

	return absPath, repo
}

// SeedScript saves the given documents (ID -> full content including
// frontmatter) into the repository.
func SeedScript(t *testing.T, repo core.Repository, docs map[string]string) {
	t.Helper()

	ctx := t.Context()
	for id, content := range docs {
		err := repo.Save(ctx, core.Document{ID: id, Content: content})
		require.NoError(t, err, "Failed to seed document %s", id)
	}
}
