package mcp

import (
	"context"

	"github.com/custodia-labs/pixdex/internal/core/domain"
)

// mockSimilarityService is a mock implementation of driving.SimilarityService.
type mockSimilarityService struct {
	results []domain.SimilarAsset
	status  domain.IndexStatus
	err     error
	lastURI string
}

func (m *mockSimilarityService) Similar(_ context.Context, uri string) ([]domain.SimilarAsset, error) {
	m.lastURI = uri
	return m.results, m.err
}

func (m *mockSimilarityService) Rebuild(_ context.Context) error {
	return m.err
}

func (m *mockSimilarityService) IndexStatus(_ context.Context) (domain.IndexStatus, error) {
	return m.status, m.err
}

// mockKeywordService is a mock implementation of driving.KeywordService.
type mockKeywordService struct {
	uris     []string
	keywords []string
	err      error
}

func (m *mockKeywordService) Search(_ context.Context, _ string) ([]string, error) {
	return m.uris, m.err
}

func (m *mockKeywordService) KeywordsFor(_ context.Context, _ string) ([]string, error) {
	return m.keywords, m.err
}

// mockSyncOrchestrator is a mock implementation of driving.SyncOrchestrator.
type mockSyncOrchestrator struct {
	state domain.SyncState
}

func (m *mockSyncOrchestrator) Sync(_ context.Context) error {
	return nil
}

func (m *mockSyncOrchestrator) Status() domain.SyncState {
	return m.state
}

// mockGalleryService is a mock implementation of driving.GalleryService.
type mockGalleryService struct {
	assets []domain.Asset
	err    error
}

func (m *mockGalleryService) Assets(_ context.Context) ([]domain.Asset, error) {
	return m.assets, m.err
}

func (m *mockGalleryService) Months(_ context.Context) ([]domain.MonthGroup, error) {
	return domain.GroupByMonth(m.assets), m.err
}

func (m *mockGalleryService) Years(_ context.Context) ([]domain.YearGroup, error) {
	return domain.GroupByYear(m.assets), m.err
}
