package services

import (
	"context"
	"errors"
	"slices"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cachememory "github.com/custodia-labs/pixdex/internal/adapters/driven/cache/memory"
	"github.com/custodia-labs/pixdex/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/pixdex/internal/core/domain"
	"github.com/custodia-labs/pixdex/internal/core/ports/driven"
)

type syncHarness struct {
	orch      *SyncOrchestrator
	store     *memory.Store
	index     *SimilarityIndex
	library   *mockLibrary
	transport *mockTransport
	gallery   *GalleryService

	mu     stdsync.Mutex
	states []domain.SyncState
}

func newSyncHarness(t *testing.T, assets int, mutate func(*domain.Settings)) *syncHarness {
	t.Helper()

	settings := domain.DefaultSettings()
	if mutate != nil {
		mutate(&settings)
	}
	require.NoError(t, settings.Validate())

	h := &syncHarness{
		store:     memory.NewStore(),
		library:   newMockLibrary(assets),
		transport: &mockTransport{},
		gallery:   NewGalleryService(cachememory.New()),
	}
	h.index = NewSimilarityIndex(h.store, h.store, settings.Index)
	extractor := NewExtractor(h.library, h.transport, settings.Extraction)
	h.orch = NewSyncOrchestrator(h.library, h.store, h.index, extractor, h.gallery, settings)
	h.orch.SetObserver(func(s domain.SyncState) {
		h.mu.Lock()
		h.states = append(h.states, s)
		h.mu.Unlock()
	})
	return h
}

func (h *syncHarness) observed() []domain.SyncState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.SyncState(nil), h.states...)
}

func (h *syncHarness) count(t *testing.T) int {
	t.Helper()
	n, err := h.store.Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestNewSyncOrchestrator_StartsIdle(t *testing.T) {
	h := newSyncHarness(t, 0, nil)

	status := h.orch.Status()
	assert.Equal(t, domain.SyncIdle, status.Phase)
	assert.False(t, status.Complete)
}

func TestSyncOrchestrator_Sync_ExtractsEverything(t *testing.T) {
	h := newSyncHarness(t, 40, nil)

	require.NoError(t, h.orch.Sync(context.Background()))

	status := h.orch.Status()
	assert.Equal(t, domain.SyncComplete, status.Phase)
	assert.True(t, status.Complete)
	assert.Equal(t, 100.0, status.Progress)
	assert.Equal(t, 40, status.Fetched)
	assert.Equal(t, 40, status.Extracted)
	assert.Equal(t, 0, status.Failed)
	assert.NotEmpty(t, status.PassID)
	assert.False(t, status.FinishedAt.IsZero())
	assert.Equal(t, 40, h.count(t))

	kw, err := h.store.Keywords(context.Background(), h.library.assets[0].URI)
	require.NoError(t, err)
	assert.Equal(t, []string{"photo"}, kw)
}

func TestSyncOrchestrator_Sync_Idempotent(t *testing.T) {
	h := newSyncHarness(t, 20, nil)
	ctx := context.Background()

	require.NoError(t, h.orch.Sync(ctx))
	calls := h.transport.callCount()
	gen, err := h.store.Generation(ctx)
	require.NoError(t, err)

	require.NoError(t, h.orch.Sync(ctx))

	status := h.orch.Status()
	assert.Equal(t, 0, status.Extracted)
	assert.Equal(t, 20, status.Skipped)
	assert.Equal(t, calls, h.transport.callCount())

	genAfter, err := h.store.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, gen, genAfter, "no store mutations on an unchanged library")
}

func TestSyncOrchestrator_Sync_NewPassIDEachRun(t *testing.T) {
	h := newSyncHarness(t, 1, nil)

	require.NoError(t, h.orch.Sync(context.Background()))
	first := h.orch.Status().PassID
	require.NoError(t, h.orch.Sync(context.Background()))

	assert.NotEqual(t, first, h.orch.Status().PassID)
}

func TestSyncOrchestrator_Sync_Reconciles(t *testing.T) {
	h := newSyncHarness(t, 5, nil)
	ctx := context.Background()

	stale := domain.EmbeddingRecord{URI: "file:///photos/deleted.jpg", Embedding: []float32{1, 1}}
	require.NoError(t, h.store.Put(ctx, stale))
	require.NoError(t, h.index.Build(ctx))

	require.NoError(t, h.orch.Sync(ctx))

	has, err := h.store.Has(ctx, stale.URI)
	require.NoError(t, err)
	assert.False(t, has)

	_, err = h.store.Entry(ctx, stale.URI)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, 1, h.orch.Status().Removed)
	assert.Equal(t, 5, h.count(t))
}

func TestSyncOrchestrator_Sync_EmptyLibrary(t *testing.T) {
	h := newSyncHarness(t, 0, nil)
	ctx := context.Background()
	require.NoError(t, h.store.Put(ctx, domain.EmbeddingRecord{URI: "old", Embedding: []float32{1}}))

	require.NoError(t, h.orch.Sync(ctx))

	status := h.orch.Status()
	assert.Equal(t, 100.0, status.Progress)
	assert.True(t, status.Complete)
	assert.Equal(t, 0, h.count(t))
	assert.Equal(t, 0, h.transport.callCount())
}

func TestSyncOrchestrator_Sync_IndexConsistentAfterPass(t *testing.T) {
	h := newSyncHarness(t, 30, nil)
	ctx := context.Background()

	require.NoError(t, h.orch.Sync(ctx))

	status, err := h.index.IndexStatus(ctx)
	require.NoError(t, err)
	assert.False(t, status.Stale)
	assert.Equal(t, 30, status.Count)

	uris, err := h.store.URIs(ctx)
	require.NoError(t, err)
	for _, a := range h.library.assets {
		assert.Contains(t, uris, a.URI)
	}

	similar, err := h.index.Query(ctx, h.library.assets[0].URI)
	require.NoError(t, err)
	assert.Len(t, similar, 29)
}

func TestSyncOrchestrator_Sync_ProgressScenario(t *testing.T) {
	h := newSyncHarness(t, 160, func(s *domain.Settings) { s.Sync.PageSize = 50 })

	require.NoError(t, h.orch.Sync(context.Background()))

	var progress []float64
	for _, s := range h.observed() {
		if len(progress) == 0 || progress[len(progress)-1] != s.Progress {
			progress = append(progress, s.Progress)
		}
		if s.Progress == 100 {
			assert.Equal(t, domain.SyncComplete, s.Phase)
		}
	}
	assert.Equal(t, []float64{0, 31.25, 62.5, 93.75, 99, 100}, progress)
}

func TestSyncOrchestrator_Sync_ProgressNonDecreasing(t *testing.T) {
	h := newSyncHarness(t, 33, func(s *domain.Settings) { s.Sync.PageSize = 7 })

	require.NoError(t, h.orch.Sync(context.Background()))

	states := h.observed()
	for i := 1; i < len(states); i++ {
		assert.GreaterOrEqual(t, states[i].Progress, states[i-1].Progress)
	}
}

func TestSyncOrchestrator_Sync_PhaseOrder(t *testing.T) {
	h := newSyncHarness(t, 3, nil)

	require.NoError(t, h.orch.Sync(context.Background()))

	var phases []domain.SyncPhase
	for _, s := range h.observed() {
		if len(phases) == 0 || phases[len(phases)-1] != s.Phase {
			phases = append(phases, s.Phase)
		}
	}
	assert.Equal(t, []domain.SyncPhase{
		domain.SyncRequestingPermission,
		domain.SyncPaging,
		domain.SyncProcessing,
		domain.SyncReconciling,
		domain.SyncComplete,
	}, phases)
}

func TestSyncOrchestrator_Sync_BatchTimeoutIsolated(t *testing.T) {
	h := newSyncHarness(t, 48, func(s *domain.Settings) {
		s.Extraction.Timeout = 50 * time.Millisecond
		s.Extraction.Concurrency = 1
	})
	ctx := context.Background()

	second := make(map[string]bool)
	for _, a := range h.library.assets[16:32] {
		second[a.URI] = true
	}
	h.transport.extract = func(ctx context.Context, images []domain.ImagePayload) ([]driven.ExtractionResult, error) {
		if second[images[0].URI] {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		results := make([]driven.ExtractionResult, len(images))
		for i := range results {
			results[i] = driven.ExtractionResult{Embedding: []float32{1, 1}}
		}
		return results, nil
	}

	require.NoError(t, h.orch.Sync(ctx))

	status := h.orch.Status()
	assert.True(t, status.Complete)
	assert.Equal(t, 32, status.Extracted)
	assert.Equal(t, 16, status.Failed)
	assert.Equal(t, 32, h.count(t))
	for uri := range second {
		has, err := h.store.Has(ctx, uri)
		require.NoError(t, err)
		assert.False(t, has)
	}

	// The next pass retries only what was left behind.
	h.transport.extract = nil
	before := len(h.transport.sentURIs())
	require.NoError(t, h.orch.Sync(ctx))

	retried := h.transport.sentURIs()[before:]
	assert.Len(t, retried, 16)
	for _, uri := range retried {
		assert.True(t, second[uri])
	}
	assert.Equal(t, 48, h.count(t))
}

func TestSyncOrchestrator_Sync_UnresolvableAssetLeftForNextPass(t *testing.T) {
	h := newSyncHarness(t, 4, nil)
	missing := h.library.assets[2].URI
	h.library.missing[missing] = true

	require.NoError(t, h.orch.Sync(context.Background()))

	status := h.orch.Status()
	assert.Equal(t, 3, status.Extracted)
	assert.Equal(t, 1, status.Failed)

	has, err := h.store.Has(context.Background(), missing)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestSyncOrchestrator_Sync_PermissionDenied(t *testing.T) {
	h := newSyncHarness(t, 3, nil)
	h.library.permission = domain.PermissionDenied
	h.library.requestResult = domain.PermissionDenied

	err := h.orch.Sync(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	var permErr *domain.PermissionError
	require.ErrorAs(t, err, &permErr)
	assert.Equal(t, "grant access in settings", permErr.Remediation)

	status := h.orch.Status()
	assert.Equal(t, domain.SyncFailed, status.Phase)
	assert.ErrorIs(t, status.Err, domain.ErrPermissionDenied)
	assert.Equal(t, 0, h.transport.callCount())
}

func TestSyncOrchestrator_Sync_RequestsUndeterminedPermission(t *testing.T) {
	h := newSyncHarness(t, 2, nil)
	h.library.permission = domain.PermissionUndetermined

	require.NoError(t, h.orch.Sync(context.Background()))
	assert.Equal(t, 1, h.library.requested)
	assert.Equal(t, 2, h.count(t))
}

func TestSyncOrchestrator_Sync_GrantedSkipsRequest(t *testing.T) {
	h := newSyncHarness(t, 1, nil)

	require.NoError(t, h.orch.Sync(context.Background()))
	assert.Equal(t, 0, h.library.requested)
}

func TestSyncOrchestrator_Sync_InProgress(t *testing.T) {
	h := newSyncHarness(t, 3, nil)
	release := make(chan struct{})
	h.transport.extract = func(_ context.Context, images []domain.ImagePayload) ([]driven.ExtractionResult, error) {
		<-release
		results := make([]driven.ExtractionResult, len(images))
		for i := range results {
			results[i] = driven.ExtractionResult{Embedding: []float32{1}}
		}
		return results, nil
	}

	done := make(chan error, 1)
	go func() { done <- h.orch.Sync(context.Background()) }()

	require.Eventually(t, func() bool {
		return h.orch.Status().Phase == domain.SyncProcessing
	}, 2*time.Second, 5*time.Millisecond)

	err := h.orch.Sync(context.Background())
	assert.ErrorIs(t, err, domain.ErrSyncInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, domain.SyncComplete, h.orch.Status().Phase)
}

func TestSyncOrchestrator_Sync_CancelledNeverReconciles(t *testing.T) {
	h := newSyncHarness(t, 10, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stale := "file:///photos/deleted.jpg"
	require.NoError(t, h.store.Put(ctx, domain.EmbeddingRecord{URI: stale, Embedding: []float32{1}}))

	h.transport.extract = func(ctx context.Context, _ []domain.ImagePayload) ([]driven.ExtractionResult, error) {
		cancel()
		return nil, ctx.Err()
	}

	err := h.orch.Sync(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	status := h.orch.Status()
	assert.Equal(t, domain.SyncFailed, status.Phase)
	assert.False(t, status.Complete)
	assert.Less(t, status.Progress, 100.0)

	has, err := h.store.Has(context.Background(), stale)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestSyncOrchestrator_Sync_PagingFailureSkipsReconcile(t *testing.T) {
	h := newSyncHarness(t, 10, func(s *domain.Settings) { s.Sync.PageSize = 4 })
	h.library.pageErrAfter = 1
	h.library.pageErr = errors.New("library unavailable")

	stale := "file:///photos/deleted.jpg"
	require.NoError(t, h.store.Put(context.Background(), domain.EmbeddingRecord{URI: stale}))

	err := h.orch.Sync(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "library unavailable")
	assert.Equal(t, domain.SyncFailed, h.orch.Status().Phase)

	has, err := h.store.Has(context.Background(), stale)
	require.NoError(t, err)
	assert.True(t, has)
	// The first page was still processed.
	assert.Equal(t, 5, h.count(t))
}

func TestSyncOrchestrator_Sync_StopsAtReportedTotal(t *testing.T) {
	h := newSyncHarness(t, 10, func(s *domain.Settings) { s.Sync.PageSize = 4 })
	h.library.reportedTotal = 4

	require.NoError(t, h.orch.Sync(context.Background()))

	status := h.orch.Status()
	assert.Equal(t, 4, status.Fetched)
	assert.Equal(t, 1, h.library.pagesServed)
}

func TestSyncOrchestrator_Sync_StopsWhenLibraryShrinks(t *testing.T) {
	h := newSyncHarness(t, 6, func(s *domain.Settings) { s.Sync.PageSize = 4 })
	h.library.reportedTotal = 100

	require.NoError(t, h.orch.Sync(context.Background()))

	status := h.orch.Status()
	assert.True(t, status.Complete)
	assert.Equal(t, 6, status.Fetched)
	assert.Equal(t, 2, h.library.pagesServed)
}

func TestSyncOrchestrator_Sync_CachesAssetList(t *testing.T) {
	h := newSyncHarness(t, 5, func(s *domain.Settings) { s.Sync.PageSize = 2 })
	ctx := context.Background()

	require.NoError(t, h.orch.Sync(ctx))

	cached, err := h.gallery.Assets(ctx)
	require.NoError(t, err)
	require.Len(t, cached, 5)

	got := make([]string, len(cached))
	for i := range cached {
		got[i] = cached[i].URI
	}
	want := make([]string, len(h.library.assets))
	for i := range h.library.assets {
		want[i] = h.library.assets[i].URI
	}
	assert.True(t, slices.Equal(want, got))
}

func TestPagingProgress(t *testing.T) {
	assert.Equal(t, 0.0, pagingProgress(0, 0))
	assert.Equal(t, 31.25, pagingProgress(50, 160))
	assert.Equal(t, 99.0, pagingProgress(160, 160))
	assert.Equal(t, 99.0, pagingProgress(200, 160))
}
