package safeio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeFS_WriteThenRead(t *testing.T) {
	root := filepath.Join(t.TempDir(), "out")
	fs, err := NewSafeFS(root)
	require.NoError(t, err)

	path, err := fs.SafeWriteFile("index.html", []byte("<p>v1</p>"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fs.Root(), "index.html"), path)

	_, err = fs.SafeWriteFile("index.html", []byte("<p>v2</p>"))
	require.NoError(t, err)
	got, err := fs.SafeReadFile("index.html")
	require.NoError(t, err)
	assert.Equal(t, "<p>v2</p>", string(got))

	entries, err := os.ReadDir(fs.Root())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSafeFS_RejectsEscapes(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewSafeFS(filepath.Join(dir, "root"))
	require.NoError(t, err)

	_, err = fs.SafeWriteFile("../x.txt", nil)
	assert.Error(t, err)
	_, err = fs.SafeWriteFile(filepath.Join(dir, "x.txt"), nil)
	assert.Error(t, err)
	_, err = fs.SafeReadFile("../root")
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "secret"), []byte("s"), 0o644))
	require.NoError(t, os.Symlink(filepath.Join(dir, "secret"), filepath.Join(fs.Root(), "link")))
	_, err = fs.SafeReadFile("link")
	assert.ErrorContains(t, err, "outside root")
}

func TestSafeFS_AllowsAbsoluteUnderRoot(t *testing.T) {
	fs, err := NewSafeFS(t.TempDir())
	require.NoError(t, err)
	_, err = fs.SafeWriteFile("a.txt", []byte("hello"))
	require.NoError(t, err)
	_, err = fs.SafeReadFile(filepath.Join(fs.Root(), "a.txt"))
	assert.NoError(t, err)
}

func TestNewSafeFS_Errors(t *testing.T) {
	_, err := NewSafeFS("")
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = NewSafeFS(file)
	assert.Error(t, err)
}
