package filesystem_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mpm-dev/mpm/plugin/filesystem"
	"github.com/mpm-dev/mpm/plugin/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageCopyAndCommit(t *testing.T) {
	t.Parallel()

	fsys := ports.OSFilesystem()
	dir := t.TempDir()
	src := filepath.Join(dir, "foo-1.0.0.jar")
	require.NoError(t, os.WriteFile(src, []byte("jar"), 0o600))

	destDir := filepath.Join(dir, "versions")
	require.NoError(t, os.MkdirAll(destDir, 0o750))

	staged, err := filesystem.StageCopy(fsys, src, destDir)
	require.NoError(t, err)
	assert.Equal(t, destDir, filepath.Dir(staged))
	assert.True(t, filesystem.IsStaging(filepath.Base(staged)))

	dest := filepath.Join(destDir, "foo-1.0.0.jar")
	require.NoError(t, filesystem.CommitStaged(fsys, staged, dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "jar", string(data))

	_, err = os.Stat(staged)
	assert.True(t, os.IsNotExist(err))

	// A second commit to the same destination is refused
	staged, err = filesystem.StageCopy(fsys, src, destDir)
	require.NoError(t, err)
	require.Error(t, filesystem.CommitStaged(fsys, staged, dest))
}

func TestStageCopy_MissingSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := filesystem.StageCopy(ports.OSFilesystem(), filepath.Join(dir, "missing.jar"), dir)
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSwapSymlink(t *testing.T) {
	t.Parallel()

	fsys := ports.OSFilesystem()
	dir := t.TempDir()
	link := filepath.Join(dir, "foo.jar")

	require.NoError(t, filesystem.SwapSymlink(fsys, "versions/foo-1.0.0.jar", link))
	target, err := os.Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, "versions/foo-1.0.0.jar", target)

	require.NoError(t, filesystem.SwapSymlink(fsys, "versions/foo-1.2.0.jar", link))
	target, err = os.Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, "versions/foo-1.2.0.jar", target)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary link must not be left behind")
	assert.Equal(t, "foo.jar", entries[0].Name())
}

func TestLexists(t *testing.T) {
	t.Parallel()

	fsys := ports.OSFilesystem()
	dir := t.TempDir()
	link := filepath.Join(dir, "dangling.jar")
	require.NoError(t, os.Symlink("versions/missing.jar", link))

	exists, err := filesystem.Lexists(fsys, link)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = filesystem.Lexists(fsys, filepath.Join(dir, "other.jar"))
	require.NoError(t, err)
	assert.False(t, exists)
}
