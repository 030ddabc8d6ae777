package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pixdex/internal/core/domain"
)

func withBootstrap(t *testing.T, b Bootstrapper) {
	t.Helper()
	old := bootstrap
	SetBootstrap(b)
	t.Cleanup(func() {
		bootstrap = old
		closeServices = nil
	})
}

func TestRootCmd_GlobalFlags(t *testing.T) {
	flags := rootCmd.PersistentFlags()
	for _, name := range []string{"verbose", "data-dir", "library", "in-memory"} {
		assert.NotNil(t, flags.Lookup(name), name)
	}
}

func TestRootCmd_BootstrapReceivesOptions(t *testing.T) {
	setServices(t, &Services{})
	var got Options
	withBootstrap(t, func(_ context.Context, opts Options) (*Services, func() error, error) {
		got = opts
		return &Services{Similarity: &mockSimilarityService{}}, nil, nil
	})

	_, err := execute(t, "--library", "/photos", "--data-dir", "/tmp/pixdex", "--in-memory", "index", "status")

	require.NoError(t, err)
	assert.Equal(t, Options{DataDir: "/tmp/pixdex", Library: "/photos", InMemory: true}, got)
	assert.NotNil(t, similarityService)
}

func TestRootCmd_BootstrapError(t *testing.T) {
	setServices(t, &Services{})
	withBootstrap(t, func(context.Context, Options) (*Services, func() error, error) {
		return nil, nil, domain.ErrInvalidInput
	})

	_, err := execute(t, "index", "status")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "startup failed")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRootCmd_VersionSkipsBootstrap(t *testing.T) {
	called := false
	withBootstrap(t, func(context.Context, Options) (*Services, func() error, error) {
		called = true
		return &Services{}, nil, nil
	})

	out, err := execute(t, "version")

	require.NoError(t, err)
	assert.False(t, called)
	assert.Contains(t, out, "pixdex version")
}

func TestExecute_ClosesServices(t *testing.T) {
	setServices(t, &Services{})
	closed := 0
	withBootstrap(t, func(context.Context, Options) (*Services, func() error, error) {
		return &Services{Similarity: &mockSimilarityService{}}, func() error {
			closed++
			return nil
		}, nil
	})
	resetFlags()
	rootCmd.SetArgs([]string{"index", "status"})
	rootCmd.SetOut(new(nopWriter))
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
	})

	err := Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, closed)
	assert.NoError(t, shutdown())
	assert.Equal(t, 1, closed)
}

func TestExecute_JoinsCloseError(t *testing.T) {
	setServices(t, &Services{})
	closeErr := errors.New("close failed")
	withBootstrap(t, func(context.Context, Options) (*Services, func() error, error) {
		return &Services{Similarity: &mockSimilarityService{}}, func() error { return closeErr }, nil
	})
	resetFlags()
	rootCmd.SetArgs([]string{"index", "status"})
	rootCmd.SetOut(new(nopWriter))
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
	})

	err := Execute(context.Background())

	assert.ErrorIs(t, err, closeErr)
}

func TestSetServices_Nil(t *testing.T) {
	setServices(t, &Services{Similarity: &mockSimilarityService{}})

	SetServices(nil)

	assert.Nil(t, similarityService)
}

func TestAssetURI(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a b.jpg")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	uri, err := assetURI(path)
	require.NoError(t, err)
	assert.Equal(t, "file://"+filepath.ToSlash(path), uri)

	uri, err = assetURI("ph://ABC-123")
	require.NoError(t, err)
	assert.Equal(t, "ph://ABC-123", uri)

	_, err = assetURI(filepath.Join(dir, "missing.jpg"))
	assert.Error(t, err)
}

type nopWriter struct{}

func (*nopWriter) Write(p []byte) (int, error) { return len(p), nil }
