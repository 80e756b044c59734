package filestore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/eteeap/core"
)

func TestDiskStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	key := "applicants/a1/d1.pdf"
	require.NoError(t, store.Put(ctx, key, strings.NewReader("%PDF-1.4"), 8, "application/pdf"))

	rc, err := store.Open(ctx, key)
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "%PDF-1.4", string(content))

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Open(ctx, key)
	assert.Equal(t, core.ErrFileNotFound, err)

	// deleting a missing key is a no-op
	assert.NoError(t, store.Delete(ctx, key))
}

func TestDiskStore_Put_sizeMismatch(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewDiskStore(root)
	require.NoError(t, err)

	err = store.Put(ctx, "a/b.png", strings.NewReader("abc"), 10, "image/png")
	assert.Error(t, err)

	_, err = store.Open(ctx, "a/b.png")
	assert.Equal(t, core.ErrFileNotFound, err)
	entries, err := os.ReadDir(filepath.Join(root, "a"))
	require.NoError(t, err)
	assert.Empty(t, entries, "no partial or temporary file is left")
}

func TestDiskStore_rejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"../outside.txt", "a/../../outside.txt", ""} {
		assert.Error(t, store.Put(ctx, key, strings.NewReader("x"), 1, "text/plain"), key)
	}
}
