package blobstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"report.pdf", "report.pdf", false},
		{"../../etc/passwd", "passwd", false},
		{"dir/sub/file.txt", "file.txt", false},
		{`..\..\win.ini`, "win.ini", false},
		{"  spaced.txt  ", "spaced.txt", false},
		{"", "", true},
		{"..", "", true},
		{"/", "", true},
		{".env", "", true},
	}

	for _, tt := range tests {
		got, err := SanitizeName(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestLocalStore_PutGet(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	obj, err := store.Put(ctx, "notes.txt", []byte("hello ledger"), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", obj.Name)
	assert.Equal(t, int64(12), obj.Size)
	assert.Equal(t, "text/plain", obj.ContentType)

	data, got, err := store.Get(ctx, "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello ledger", string(data))
	assert.Equal(t, "notes.txt", got.Name)

	exists, err := store.Exists(ctx, "notes.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	// Only the final file is left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLocalStore_TraversalStaysInDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "uploads")
	store, err := NewLocalStore(dir)
	require.NoError(t, err)

	obj, err := store.Put(context.Background(), "../escape.txt", []byte("x"), "")
	require.NoError(t, err)
	assert.Equal(t, "escape.txt", obj.Name)

	_, err = os.Stat(filepath.Join(root, "escape.txt"))
	assert.True(t, os.IsNotExist(err), "file written outside the upload dir")
	_, err = os.Stat(filepath.Join(dir, "escape.txt"))
	assert.NoError(t, err)
}

func TestLocalStore_Missing(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, _, err = store.Get(ctx, "nope.bin")
	assert.True(t, errors.Is(err, ErrNotFound))

	exists, err := store.Exists(ctx, "nope.bin")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalStore_Overwrite(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Put(ctx, "a.txt", []byte("one"), "")
	require.NoError(t, err)
	_, err = store.Put(ctx, "a.txt", []byte("two"), "")
	require.NoError(t, err)

	data, _, err := store.Get(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestLocalStore_CancelledContext(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Put(ctx, "a.txt", []byte("x"), "")
	assert.ErrorIs(t, err, context.Canceled)
}
