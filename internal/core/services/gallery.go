package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/pixdex/internal/core/domain"
	"github.com/custodia-labs/pixdex/internal/core/ports/driven"
	"github.com/custodia-labs/pixdex/internal/core/ports/driving"
)

// Ensure GalleryService implements the interface.
var _ driving.GalleryService = (*GalleryService)(nil)

// AssetsCacheKey is the cache key holding the last observed asset list.
const AssetsCacheKey = "assets"

// GalleryService serves the asset list cached by the last completed sync,
// so a gallery can render before the next pass finishes.
type GalleryService struct {
	cache driven.KeyValueCache
}

// NewGalleryService creates a gallery service backed by cache.
func NewGalleryService(cache driven.KeyValueCache) *GalleryService {
	return &GalleryService{cache: cache}
}

// SaveAssets replaces the cached asset list.
func (s *GalleryService) SaveAssets(ctx context.Context, assets []domain.Asset) error {
	if assets == nil {
		assets = []domain.Asset{}
	}
	data, err := json.Marshal(assets)
	if err != nil {
		return fmt.Errorf("encode assets: %w", err)
	}
	if err := s.cache.Set(ctx, AssetsCacheKey, data); err != nil {
		return fmt.Errorf("write asset cache: %w", err)
	}
	return nil
}

// Assets returns the cached asset list, empty when nothing is cached yet.
func (s *GalleryService) Assets(ctx context.Context) ([]domain.Asset, error) {
	data, err := s.cache.Get(ctx, AssetsCacheKey)
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.Asset{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read asset cache: %w", err)
	}

	var assets []domain.Asset
	if err := json.Unmarshal(data, &assets); err != nil {
		return nil, fmt.Errorf("%w: asset cache: %v", domain.ErrMalformedRecord, err)
	}
	if assets == nil {
		assets = []domain.Asset{}
	}
	return assets, nil
}

// Months groups cached assets by creation month, newest first.
func (s *GalleryService) Months(ctx context.Context) ([]domain.MonthGroup, error) {
	assets, err := s.Assets(ctx)
	if err != nil {
		return nil, err
	}
	return domain.GroupByMonth(assets), nil
}

// Years groups cached assets by creation year, newest first.
func (s *GalleryService) Years(ctx context.Context) ([]domain.YearGroup, error) {
	assets, err := s.Assets(ctx)
	if err != nil {
		return nil, err
	}
	return domain.GroupByYear(assets), nil
}
