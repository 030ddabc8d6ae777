package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/pixdex/internal/core/domain"
	"github.com/custodia-labs/pixdex/internal/core/ports/driven"
	"github.com/custodia-labs/pixdex/internal/core/ports/driving"
	"github.com/custodia-labs/pixdex/internal/logger"
)

// Ensure Scheduler implements the driving port.
var _ driving.Scheduler = (*Scheduler)(nil)

// Scheduler keeps the store in step with the library by running sync passes
// on library change signals and, optionally, on a fixed interval.
type Scheduler struct {
	syncOrch driving.SyncOrchestrator
	watcher  driven.LibraryWatcher
	debounce time.Duration
	interval time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

// NewScheduler creates a scheduler. watcher may be nil, in which case only
// the interval triggers passes.
func NewScheduler(
	syncOrch driving.SyncOrchestrator,
	watcher driven.LibraryWatcher,
	settings domain.SyncSettings,
) *Scheduler {
	return &Scheduler{
		syncOrch: syncOrch,
		watcher:  watcher,
		debounce: settings.WatchDebounce,
		interval: settings.Interval,
	}
}

// Start runs an initial pass and then the scheduling loop.
// It blocks until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	stopCh, done := s.stopCh, s.done
	s.mu.Unlock()

	defer close(done)

	var events <-chan struct{}
	if s.watcher != nil {
		ch, err := s.watcher.Watch(ctx)
		if err != nil {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return err
		}
		events = ch
	}

	s.runSync(ctx)
	return s.run(ctx, stopCh, events)
}

// Stop ends the scheduling loop and waits for a running pass to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	done := s.done
	s.mu.Unlock()

	<-done
	return nil
}

// run is the main scheduling loop.
func (s *Scheduler) run(ctx context.Context, stopCh <-chan struct{}, events <-chan struct{}) error {
	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	var debounce *time.Timer
	var fire <-chan time.Time
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return ctx.Err()
		case <-stopCh:
			return nil
		case _, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			// Bursts of changes collapse into one pass after the library settles.
			if debounce == nil {
				debounce = time.NewTimer(s.debounce)
			} else {
				debounce.Reset(s.debounce)
			}
			fire = debounce.C
		case <-fire:
			fire = nil
			s.runSync(ctx)
		case <-tick:
			s.runSync(ctx)
		}
	}
}

// runSync runs one pass and logs its outcome.
func (s *Scheduler) runSync(ctx context.Context) {
	err := s.syncOrch.Sync(ctx)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrSyncInProgress):
		logger.Debug("scheduler: pass already running, skipping")
	case errors.Is(err, context.Canceled):
		logger.Debug("scheduler: pass cancelled")
	default:
		logger.Error("scheduler: sync failed: %v", err)
	}
}
