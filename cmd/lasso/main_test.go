package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/steveyegge/lasso/internal/config"
)

// loadTestConfig installs a config built from the given YAML, restoring the
// previous one when the test ends.
func loadTestConfig(t *testing.T, yaml string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lasso.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	c, err := config.Load(path)
	require.NoError(t, err)

	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}
