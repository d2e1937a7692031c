package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindRepoRoot_DirectGitDir(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))

	assert.Equal(t, root, findRepoRoot(root))
}

func TestFindRepoRoot_NestedSubdirectory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	deep := filepath.Join(root, "src", "Shop")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	assert.Equal(t, root, findRepoRoot(deep))
}

func TestFindRepoRoot_NoGitAncestor(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	assert.Equal(t, dir, findRepoRoot(dir))
}

func TestResolveDBPath(t *testing.T) {
	old := flagDB
	t.Cleanup(func() { flagDB = old })

	flagDB = ""
	assert.Equal(t, filepath.Join("/repo", ".sharplint", "results.db"), resolveDBPath("/repo"))

	flagDB = "out/lint.db"
	assert.Equal(t, filepath.Join("/repo", "out", "lint.db"), resolveDBPath("/repo"))

	flagDB = "/tmp/lint.db"
	assert.Equal(t, "/tmp/lint.db", resolveDBPath("/repo"))
}

func TestResolveTarget(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "Cart.cs")
	require.NoError(t, os.WriteFile(file, []byte("class Cart {}"), 0o644))

	tgt, err := resolveTarget([]string{dir})
	require.NoError(t, err)
	assert.True(t, tgt.isDir)
	assert.Equal(t, dir, tgt.dir())

	tgt, err = resolveTarget([]string{file})
	require.NoError(t, err)
	assert.False(t, tgt.isDir)
	assert.Equal(t, dir, tgt.dir())

	_, err = resolveTarget([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"SA1005", "SA1122"}, splitList(" SA1005, ,SA1122 "))
}

func TestParseIntArg(t *testing.T) {
	n, err := parseIntArg("12", "line")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	_, err = parseIntArg("-1", "line")
	assert.ErrorContains(t, err, "non-negative")

	_, err = parseIntArg("x", "col")
	assert.ErrorContains(t, err, `invalid col "x"`)
}
