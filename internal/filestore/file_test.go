package filestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile_ReadMissing(t *testing.T) {
	f := New(filepath.Join(t.TempDir(), "missing.json"))

	var v map[string]string
	found, err := f.Read(&v)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, v)
}

func TestFile_WriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "data.json")
	f := New(path)

	require.NoError(t, f.Write(map[string]string{"a": "1", "b": "2"}))

	var v map[string]string
	found, err := f.Read(&v)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, v)
	assert.Equal(t, path, f.Path())
}

func TestFile_WriteReplacesWholeFile(t *testing.T) {
	f := New(filepath.Join(t.TempDir(), "data.json"))

	require.NoError(t, f.Write(map[string]string{"a": "1", "b": "2"}))
	require.NoError(t, f.Write(map[string]string{"c": "3"}))

	var v map[string]string
	_, err := f.Read(&v)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"c": "3"}, v)
}

func TestFile_ReadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	var v map[string]string
	found, err := New(path).Read(&v)
	assert.True(t, found)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestFile_SharedLock(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "locks", "shared.lock")

	a := NewWithLock(filepath.Join(dir, "a.json"), lockPath)
	b := NewWithLock(filepath.Join(dir, "b.json"), lockPath)
	require.NoError(t, a.Write(map[string]int{"n": 1}))
	require.NoError(t, b.Write(map[string]int{"n": 2}))

	var v map[string]int
	_, err := b.Read(&v)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"n": 2}, v)

	_, err = os.Stat(lockPath)
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "a.json.lock"))
	assert.True(t, os.IsNotExist(err))
}
