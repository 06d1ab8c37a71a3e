//go:build unix

package platform

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "real.txt"), []byte("data"), 0o644))
	require.NoError(t, os.Symlink("real.txt", filepath.Join(dir, "link.txt")))

	root, err := os.OpenRoot(dir)
	require.NoError(t, err)
	defer root.Close()

	f, err := OpenSource(root, "real.txt")
	require.NoError(t, err)
	got, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, []byte("data"), got)

	_, err = OpenSource(root, "link.txt")
	require.ErrorIs(t, err, ErrSymlink)

	_, err = OpenSource(root, "missing.txt")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	info, err := os.Stat(path)
	require.NoError(t, err)

	uid, _ := Owner(info)
	assert.Equal(t, uint32(os.Getuid()), uid) //nolint:gosec // ids are non-negative
}
