package cli

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/custodia-labs/pixdex/internal/core/domain"
)

type mockSyncOrchestrator struct {
	mu    sync.Mutex
	state domain.SyncState
	err   error
	calls int
}

func (m *mockSyncOrchestrator) Sync(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.err
}

func (m *mockSyncOrchestrator) Status() domain.SyncState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

type mockSimilarityService struct {
	results   []domain.SimilarAsset
	status    domain.IndexStatus
	err       error
	lastURI   string
	rebuilds  int
	statusErr error
}

func (m *mockSimilarityService) Similar(_ context.Context, uri string) ([]domain.SimilarAsset, error) {
	m.lastURI = uri
	return m.results, m.err
}

func (m *mockSimilarityService) Rebuild(_ context.Context) error {
	m.rebuilds++
	return m.err
}

func (m *mockSimilarityService) IndexStatus(_ context.Context) (domain.IndexStatus, error) {
	return m.status, m.statusErr
}

type mockKeywordService struct {
	byKeyword map[string][]string
	byURI     map[string][]string
	err       error
}

func (m *mockKeywordService) Search(_ context.Context, keyword string) ([]string, error) {
	return m.byKeyword[keyword], m.err
}

func (m *mockKeywordService) KeywordsFor(_ context.Context, uri string) ([]string, error) {
	return m.byURI[uri], m.err
}

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

type mockSettingsService struct {
	settings domain.Settings
	setErr   error
	set      map[string]string
}

func (m *mockSettingsService) Get() (domain.Settings, error) {
	return m.settings, nil
}

func (m *mockSettingsService) Set(key, raw string) error {
	if m.setErr != nil {
		return m.setErr
	}
	if m.set == nil {
		m.set = make(map[string]string)
	}
	m.set[key] = raw
	return nil
}

type mockScheduler struct {
	started int
	err     error
}

func (m *mockScheduler) Start(ctx context.Context) error {
	m.started++
	if m.err != nil {
		return m.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockScheduler) Stop() error { return nil }

// setServices installs s for the duration of the test.
func setServices(t *testing.T, s *Services) {
	t.Helper()
	old := &Services{
		Sync:       syncOrchestrator,
		Similarity: similarityService,
		Keyword:    keywordService,
		Gallery:    galleryService,
		Settings:   settingsService,
		Scheduler:  scheduler,
	}
	SetServices(s)
	t.Cleanup(func() { SetServices(old) })
}

// execute runs the root command with args and returns everything it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeContext(t, context.Background(), args...)
}

// executeContext is execute with a caller supplied context.
// Flag variables are reset first since cobra keeps them between runs.
func executeContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

func resetFlags() {
	options = Options{}
	syncTUI = false
	similarLimit, similarJSON, similarScores = 0, false, false
	searchJSON, keywordsJSON = false, false
	galleryJSON = false
	watchMetricsAddr = ""
}
