package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cachememory "github.com/custodia-labs/pixdex/internal/adapters/driven/cache/memory"
	"github.com/custodia-labs/pixdex/internal/core/domain"
)

// failingCache fails every operation.
type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]byte, error) { return nil, errors.New("disk gone") }
func (failingCache) Set(context.Context, string, []byte) error   { return errors.New("disk gone") }

func TestGalleryService_Assets_EmptyCache(t *testing.T) {
	svc := NewGalleryService(cachememory.New())

	assets, err := svc.Assets(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, assets)
	assert.Empty(t, assets)
}

func TestGalleryService_SaveAndLoad(t *testing.T) {
	svc := NewGalleryService(cachememory.New())
	ctx := context.Background()
	created := time.Date(2023, 3, 4, 5, 6, 7, 0, time.UTC)
	in := []domain.Asset{mockAsset("one", created), mockAsset("two", created.Add(time.Hour))}

	require.NoError(t, svc.SaveAssets(ctx, in))

	out, err := svc.Assets(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, in[0].URI, out[0].URI)
	assert.True(t, in[1].CreationTime.Equal(out[1].CreationTime))
}

func TestGalleryService_SaveNil(t *testing.T) {
	cache := cachememory.New()
	svc := NewGalleryService(cache)
	ctx := context.Background()

	require.NoError(t, svc.SaveAssets(ctx, nil))

	raw, err := cache.Get(ctx, AssetsCacheKey)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

func TestGalleryService_MalformedCache(t *testing.T) {
	cache := cachememory.New()
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, AssetsCacheKey, []byte("{not json")))

	_, err := NewGalleryService(cache).Assets(ctx)
	assert.ErrorIs(t, err, domain.ErrMalformedRecord)
}

func TestGalleryService_CacheErrors(t *testing.T) {
	svc := NewGalleryService(failingCache{})
	ctx := context.Background()

	_, err := svc.Assets(ctx)
	assert.ErrorContains(t, err, "disk gone")
	assert.Error(t, svc.SaveAssets(ctx, nil))

	_, err = svc.Months(ctx)
	assert.Error(t, err)
	_, err = svc.Years(ctx)
	assert.Error(t, err)
}

func TestGalleryService_Groups(t *testing.T) {
	svc := NewGalleryService(cachememory.New())
	ctx := context.Background()
	require.NoError(t, svc.SaveAssets(ctx, []domain.Asset{
		mockAsset("a", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)),
		mockAsset("b", time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)),
		mockAsset("c", time.Date(2023, 3, 2, 0, 0, 0, 0, time.UTC)),
		mockAsset("d", time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)),
	}))

	months, err := svc.Months(ctx)
	require.NoError(t, err)
	require.Len(t, months, 3)
	assert.Equal(t, "Mar 2024", months[0].Label())
	assert.Equal(t, "Jan 2024", months[1].Label())
	assert.Len(t, months[1].Assets, 2)
	assert.Equal(t, "Mar 2023", months[2].Label())

	years, err := svc.Years(ctx)
	require.NoError(t, err)
	require.Len(t, years, 2)
	assert.Equal(t, 2024, years[0].Year)
	assert.Len(t, years[0].Assets, 3)
}
