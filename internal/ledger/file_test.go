package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLedgerAddAndContains(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "processed.txt")

	l, err := NewFile(path)
	require.NoError(t, err)

	ok, err := l.Contains(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.Add(ctx, "abc"))

	ok, err = l.Contains(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := l.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFileLedgerPersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "processed.txt")

	l, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, l.Add(ctx, "abc"))
	require.NoError(t, l.Add(ctx, "def"))

	// Add must have persisted synchronously; a fresh instance sees both.
	reloaded, err := NewFile(path)
	require.NoError(t, err)

	for _, id := range []string{"abc", "def"} {
		ok, err := reloaded.Contains(ctx, id)
		require.NoError(t, err)
		assert.True(t, ok, id)
	}
}

func TestFileLedgerAddIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "processed.txt")

	l, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, l.Add(ctx, "abc"))
	require.NoError(t, l.Add(ctx, "abc"))

	n, err := l.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abc\n", string(data), "no duplicate lines on disk")
}

func TestFileLedgerMissingFileIsEmpty(t *testing.T) {
	l, err := NewFile(filepath.Join(t.TempDir(), "never-written.txt"))
	require.NoError(t, err)

	n, err := l.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestFileLedgerIgnoresBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.txt")
	require.NoError(t, os.WriteFile(path, []byte("abc\n\n  \ndef\n"), 0o644))

	l, err := NewFile(path)
	require.NoError(t, err)

	n, err := l.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNewBackendSwitch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.txt")

	l, err := New(BackendFile, path, "")
	require.NoError(t, err)
	assert.IsType(t, &FileLedger{}, l)

	_, err = New("cassette", path, "")
	assert.ErrorIs(t, err, ErrUnsupportedBackend)
}
