package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pixdex/internal/core/domain"
)

func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")

	c, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, c.Dir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCache_GetSet(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.Get(ctx, "assets")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, c.Set(ctx, "assets", []byte(`[{"uri":"a"}]`)))
	require.NoError(t, c.Set(ctx, "assets", []byte(`[{"uri":"b"}]`)))

	got, err := c.Get(ctx, "assets")
	require.NoError(t, err)
	assert.Equal(t, `[{"uri":"b"}]`, string(got))
}

func TestCache_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, c.Set(context.Background(), "assets", []byte("[]")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "assets.json", entries[0].Name())
}

func TestCache_InvalidKey(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"", "../escape", "a/b", ".."} {
		_, err := c.Get(ctx, key)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, key)
		assert.ErrorIs(t, c.Set(ctx, key, nil), domain.ErrInvalidInput, key)
	}
}
