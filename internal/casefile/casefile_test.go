package casefile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, nil, 0o644))
}

func TestNextPath(t *testing.T) {
	t.Run("nonexistent path is returned unchanged", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.txt")
		assert.Equal(t, path, NextPath(path, false))
	})

	t.Run("force suffix on a nonexistent path", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "test.txt")
		assert.Equal(t, filepath.Join(dir, "test_00.txt"), NextPath(path, true))
	})

	t.Run("existing path gets the first free suffix", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "test.txt")
		touch(t, path)
		assert.Equal(t, filepath.Join(dir, "test_00.txt"), NextPath(path, false))

		touch(t, filepath.Join(dir, "test_00.txt"))
		assert.Equal(t, filepath.Join(dir, "test_01.txt"), NextPath(path, false))
	})

	t.Run("multi part extensions stay intact", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "out.tar.gz")
		touch(t, path)
		assert.Equal(t, filepath.Join(dir, "out_00.tar.gz"), NextPath(path, false))
	})

	t.Run("suffix variant reports the chosen integer", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(dir, "session_00"), 0o755))

		path, id := NextPathSuffix(filepath.Join(dir, "session"))
		assert.Equal(t, filepath.Join(dir, "session_01"), path)
		assert.Equal(t, 1, id)
	})
}

func TestCreateSession(t *testing.T) {
	caseDir := t.TempDir()
	touch(t, filepath.Join(caseDir, "phill.re2"))
	touch(t, filepath.Join(caseDir, "phill.ma2"))
	require.NoError(t, os.WriteFile(filepath.Join(caseDir, "phill.par"), []byte("[GENERAL]\n"), 0o644))

	require.NoError(t, CreateSession(caseDir, "phill", "session_00", "phill.re2", "phill.ma2", "phill.par"))

	marker, err := os.ReadFile(filepath.Join(caseDir, "SESSION.NAME"))
	require.NoError(t, err)
	assert.Equal(t, "phill\n./session_00\n", string(marker))

	// Mesh files are linked relatively so the case stays relocatable.
	link, err := os.Readlink(filepath.Join(caseDir, "session_00", "phill.re2"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("..", "phill.re2"), link)

	par, err := os.ReadFile(filepath.Join(caseDir, "session_00", "phill.par"))
	require.NoError(t, err)
	assert.Equal(t, "[GENERAL]\n", string(par))
}
