package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/pixdex/internal/core/domain"
	"github.com/custodia-labs/pixdex/internal/core/ports/driven"
	"github.com/custodia-labs/pixdex/internal/core/ports/driving"
	"github.com/custodia-labs/pixdex/internal/logger"
	"github.com/custodia-labs/pixdex/internal/metrics"
)

// Ensure SyncOrchestrator implements the interface.
var _ driving.SyncOrchestrator = (*SyncOrchestrator)(nil)

// SyncObserver receives a snapshot after every state change of a pass.
type SyncObserver func(domain.SyncState)

// SyncOrchestrator runs sync passes that bring the store in line with the
// media library: new assets are extracted and stored, deleted ones reconciled away.
type SyncOrchestrator struct {
	library   driven.MediaLibrary
	store     driven.EmbeddingStore
	index     *SimilarityIndex
	extractor *Extractor
	gallery   *GalleryService

	pageSize           int
	checkConcurrency   int
	extractConcurrency int

	observer SyncObserver

	mu      sync.RWMutex
	running bool
	state   domain.SyncState

	// writeMu serialises Put and Upsert pairs so a URI is never written concurrently.
	writeMu sync.Mutex
}

// NewSyncOrchestrator creates a new sync orchestrator.
// gallery is optional; when nil the asset list is not cached.
func NewSyncOrchestrator(
	library driven.MediaLibrary,
	store driven.EmbeddingStore,
	index *SimilarityIndex,
	extractor *Extractor,
	gallery *GalleryService,
	settings domain.Settings,
) *SyncOrchestrator {
	pageSize := settings.Sync.PageSize
	if pageSize <= 0 {
		pageSize = domain.DefaultPageSize
	}
	checkConcurrency := settings.Sync.CheckConcurrency
	if checkConcurrency <= 0 {
		checkConcurrency = domain.DefaultCheckConcurrency
	}
	extractConcurrency := settings.Extraction.Concurrency
	if extractConcurrency <= 0 {
		extractConcurrency = domain.DefaultExtractConcurrency
	}
	return &SyncOrchestrator{
		library:            library,
		store:              store,
		index:              index,
		extractor:          extractor,
		gallery:            gallery,
		pageSize:           pageSize,
		checkConcurrency:   checkConcurrency,
		extractConcurrency: extractConcurrency,
		state:              domain.SyncState{Phase: domain.SyncIdle},
	}
}

// SetObserver registers fn to receive state changes. Must be called before Sync.
func (o *SyncOrchestrator) SetObserver(fn SyncObserver) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observer = fn
}

// Status returns a snapshot of the current or last pass.
func (o *SyncOrchestrator) Status() domain.SyncState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Sync runs one full pass. Only one pass runs at a time.
// Cancelling ctx fails the pass without reconciling.
func (o *SyncOrchestrator) Sync(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return domain.ErrSyncInProgress
	}
	o.running = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	passID := uuid.NewString()
	log := logger.With("sync " + passID[:8])
	start := time.Now()

	o.reset(domain.SyncState{
		PassID:    passID,
		Phase:     domain.SyncRequestingPermission,
		StartedAt: start,
	})
	metrics.SyncProgress.Set(0)

	err := o.run(ctx, log)
	metrics.SyncDurationSeconds.Observe(time.Since(start).Seconds())

	if err != nil {
		outcome := "failed"
		if errors.Is(err, context.Canceled) {
			outcome = "cancelled"
		}
		metrics.SyncPassesTotal.WithLabelValues(outcome).Inc()
		log.Error("Sync %s: %v", outcome, err)
		o.update(func(s *domain.SyncState) {
			s.Phase = domain.SyncFailed
			s.Err = err
			s.FinishedAt = time.Now()
		})
		return err
	}

	metrics.SyncPassesTotal.WithLabelValues("complete").Inc()
	return nil
}

func (o *SyncOrchestrator) run(ctx context.Context, log *logger.Scoped) error {
	if err := o.ensurePermission(ctx); err != nil {
		return err
	}

	observed := make(map[string]struct{})
	var assets []domain.Asset

	o.update(func(s *domain.SyncState) { s.Phase = domain.SyncPaging })

	cursor := ""
	fetched, total := 0, -1
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := o.library.ListPage(ctx, o.pageSize, cursor)
		if err != nil {
			return fmt.Errorf("list library page: %w", err)
		}
		if total < 0 {
			total = page.TotalCount
		}

		fetched += len(page.Assets)
		for i := range page.Assets {
			if _, dup := observed[page.Assets[i].URI]; dup {
				continue
			}
			observed[page.Assets[i].URI] = struct{}{}
			assets = append(assets, page.Assets[i])
		}
		cursor = page.EndCursor

		o.update(func(s *domain.SyncState) {
			s.Phase = domain.SyncProcessing
			s.Cursor = cursor
			s.Fetched = fetched
			s.Total = total
		})

		counts := o.processPage(ctx, page.Assets, log)
		if err := ctx.Err(); err != nil {
			return err
		}

		o.update(func(s *domain.SyncState) {
			s.Extracted += counts.extracted
			s.Skipped += counts.skipped
			s.Failed += counts.failed
			s.Progress = pagingProgress(fetched, total)
		})
		log.Debug("Page done: %d/%d fetched, %d extracted, %d skipped, %d failed",
			fetched, total, counts.extracted, counts.skipped, counts.failed)

		if len(page.Assets) == 0 || !page.HasNextPage || fetched >= total {
			break
		}
		o.update(func(s *domain.SyncState) { s.Phase = domain.SyncPaging })
	}

	o.update(func(s *domain.SyncState) { s.Phase = domain.SyncReconciling })

	removed, err := o.store.Reconcile(ctx, observed)
	if err != nil {
		return fmt.Errorf("reconcile store: %w", err)
	}
	for _, uri := range removed {
		if err := o.index.Remove(ctx, uri); err != nil {
			log.Warn("Failed to remove index entry for %s: %v", uri, err)
		}
	}
	metrics.SyncAssetsTotal.WithLabelValues("removed").Add(float64(len(removed)))

	if _, err := o.index.Refresh(ctx); err != nil {
		log.Warn("Index refresh failed, next query will retry: %v", err)
	}

	if o.gallery != nil {
		if err := o.gallery.SaveAssets(ctx, assets); err != nil {
			log.Warn("Failed to cache asset list: %v", err)
		}
	}

	o.update(func(s *domain.SyncState) {
		s.Phase = domain.SyncComplete
		s.Removed = len(removed)
		s.Progress = 100
		s.Complete = true
		s.FinishedAt = time.Now()
	})

	state := o.Status()
	log.Info("Sync complete: %d fetched, %d extracted, %d skipped, %d failed, %d removed",
		state.Fetched, state.Extracted, state.Skipped, state.Failed, state.Removed)
	return nil
}

// ensurePermission requests library access when it is not already granted.
func (o *SyncOrchestrator) ensurePermission(ctx context.Context) error {
	perm, err := o.library.Permission(ctx)
	if err != nil {
		return fmt.Errorf("check library permission: %w", err)
	}
	if perm != domain.PermissionGranted {
		perm, err = o.library.RequestPermission(ctx)
		if err != nil {
			return fmt.Errorf("request library permission: %w", err)
		}
	}
	if perm != domain.PermissionGranted {
		return &domain.PermissionError{Remediation: o.library.Remediation()}
	}
	return nil
}

type pageCounts struct {
	extracted, skipped, failed int
}

// processPage extracts the page's assets that are not yet stored.
// Check, extraction and write failures are logged and counted; the affected
// assets are retried by the next pass.
func (o *SyncOrchestrator) processPage(ctx context.Context, assets []domain.Asset, log *logger.Scoped) pageCounts {
	var (
		mu     sync.Mutex
		counts pageCounts
	)
	add := func(extracted, skipped, failed int) {
		mu.Lock()
		counts.extracted += extracted
		counts.skipped += skipped
		counts.failed += failed
		mu.Unlock()
	}

	// Existence checks fan out across the page.
	present := make([]bool, len(assets))
	checked := make([]bool, len(assets))
	var checks errgroup.Group
	checks.SetLimit(o.checkConcurrency)
	for i := range assets {
		checks.Go(func() error {
			has, err := o.store.Has(ctx, assets[i].URI)
			if err != nil {
				log.Warn("Existence check failed for %s: %v", assets[i].URI, err)
				return nil
			}
			present[i], checked[i] = has, true
			return nil
		})
	}
	_ = checks.Wait()

	var pending []domain.Asset
	for i := range assets {
		switch {
		case !checked[i]:
			add(0, 0, 1)
		case present[i]:
			add(0, 1, 0)
		default:
			pending = append(pending, assets[i])
		}
	}

	var workers errgroup.Group
	workers.SetLimit(o.extractConcurrency)
	for _, batch := range o.extractor.Batches(pending) {
		workers.Go(func() error {
			if ctx.Err() != nil {
				add(0, 0, len(batch))
				return nil
			}
			result, err := o.extractor.ExtractBatch(ctx, batch)
			if err != nil {
				log.Warn("Skipping batch of %d: %v", len(batch), err)
				add(0, 0, len(batch))
				return nil
			}
			stored := o.storeExtractions(ctx, result.Extractions, log)
			add(stored, 0, len(batch)-stored)
			return nil
		})
	}
	_ = workers.Wait()

	metrics.SyncAssetsTotal.WithLabelValues("extracted").Add(float64(counts.extracted))
	metrics.SyncAssetsTotal.WithLabelValues("skipped").Add(float64(counts.skipped))
	metrics.SyncAssetsTotal.WithLabelValues("failed").Add(float64(counts.failed))
	return counts
}

// storeExtractions persists results and updates the index. Returns the number stored.
func (o *SyncOrchestrator) storeExtractions(ctx context.Context, extractions []domain.Extraction, log *logger.Scoped) int {
	stored := 0
	for _, ext := range extractions {
		if err := o.write(ctx, ext); err != nil {
			log.Warn("Failed to store %s: %v", ext.URI, err)
			continue
		}
		stored++
	}
	return stored
}

func (o *SyncOrchestrator) write(ctx context.Context, ext domain.Extraction) error {
	o.writeMu.Lock()
	defer o.writeMu.Unlock()

	if err := o.store.Put(ctx, ext.Record()); err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	if err := o.index.Upsert(ctx, ext.URI, ext.Embedding); err != nil {
		// The record is durable; the index catches up on its next refresh.
		logger.Debug("Index upsert for %s deferred: %v", ext.URI, err)
	}
	return nil
}

// pagingProgress is fetched/total as a percentage, held below 100 until
// reconciliation finishes.
func pagingProgress(fetched, total int) float64 {
	if total <= 0 {
		return 0
	}
	return min(float64(fetched)/float64(total)*100, 99)
}

// reset replaces the state at the start of a pass.
func (o *SyncOrchestrator) reset(state domain.SyncState) {
	o.mu.Lock()
	o.state = state
	observer := o.observer
	o.mu.Unlock()

	if observer != nil {
		observer(state)
	}
}

// update mutates the state and notifies the observer. Progress never decreases.
func (o *SyncOrchestrator) update(fn func(*domain.SyncState)) {
	o.mu.Lock()
	progress := o.state.Progress
	fn(&o.state)
	if o.state.Progress < progress {
		o.state.Progress = progress
	}
	state := o.state
	observer := o.observer
	o.mu.Unlock()

	metrics.SyncProgress.Set(state.Progress)
	if observer != nil {
		observer(state)
	}
}
