package file_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/tac2ar/internal/utils/file"
)

func TestExists(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "run_all.sh")
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/bash\n"), 0755))

	assert.True(t, file.Exists(p))
	assert.True(t, file.Exists(dir))
	assert.False(t, file.Exists(filepath.Join(dir, "nope.sh")))
}

func TestWriteFileCreatesParents(t *testing.T) {
	p := filepath.Join(t.TempDir(), "a", "b", "registry.json")

	err := file.WriteFile(p, []byte("{}"))
	require.NoError(t, err)

	got, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(got))
}
