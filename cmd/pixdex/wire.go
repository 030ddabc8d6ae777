package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	filecache "github.com/custodia-labs/pixdex/internal/adapters/driven/cache/file"
	memcache "github.com/custodia-labs/pixdex/internal/adapters/driven/cache/memory"
	"github.com/custodia-labs/pixdex/internal/adapters/driven/config/file"
	"github.com/custodia-labs/pixdex/internal/adapters/driven/extraction/remote"
	"github.com/custodia-labs/pixdex/internal/adapters/driven/medialibrary/filesystem"
	"github.com/custodia-labs/pixdex/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/pixdex/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/pixdex/internal/adapters/driving/cli"
	"github.com/custodia-labs/pixdex/internal/core/domain"
	"github.com/custodia-labs/pixdex/internal/core/ports/driven"
	"github.com/custodia-labs/pixdex/internal/core/services"
	"github.com/custodia-labs/pixdex/internal/logger"
)

// stores groups the persistence ports, which one backend serves together.
type stores struct {
	embeddings driven.EmbeddingStore
	keywords   driven.KeywordStore
	index      driven.IndexStore
	cache      driven.KeyValueCache
	config     driven.ConfigStore
}

// bootstrap resolves settings and wires adapters into services. The store is
// opened once here and closed by the returned closer.
func bootstrap(_ context.Context, opts cli.Options) (*cli.Services, func() error, error) {
	configStore, err := file.NewConfigStore("")
	if err != nil {
		return nil, nil, fmt.Errorf("open config: %w", err)
	}

	settings, err := resolveSettings(configStore, opts)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("library %s, data %s, extractor %s",
		settings.Library.Root, settings.Storage.DataDir, settings.Extraction.BaseURL)

	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	st, closeStore, err := openStores(settings, configStore, opts.InMemory)
	if err != nil {
		return nil, nil, err
	}
	if closeStore != nil {
		closers = append(closers, closeStore)
	}

	library := filesystem.New(settings.Library.Root)
	closers = append(closers, library.Close)

	client := remote.NewClient(remote.ConfigFrom(settings.Extraction))
	extractor := services.NewExtractor(library, client, settings.Extraction)
	similarity := services.NewSimilarityIndex(st.embeddings, st.index, settings.Index)
	gallery := services.NewGalleryService(st.cache)

	syncOrch := services.NewSyncOrchestrator(library, st.embeddings, similarity, extractor, gallery, settings)
	syncOrch.SetObserver(phaseLogger())

	return &cli.Services{
		Sync:       syncOrch,
		Similarity: similarity,
		Keyword:    services.NewKeywordService(st.keywords),
		Gallery:    gallery,
		Settings:   services.NewSettingsService(st.config),
		Scheduler:  services.NewScheduler(syncOrch, library, settings.Sync),
	}, closeAll, nil
}

// resolveSettings layers defaults, the config file, PIXDEX_* environment
// variables and command line flags, in increasing precedence.
func resolveSettings(configStore driven.ConfigStore, opts cli.Options) (domain.Settings, error) {
	settings := domain.DefaultSettings()
	if err := configStore.Apply(&settings); err != nil {
		return settings, err
	}
	if err := file.ApplyEnv(&settings); err != nil {
		return settings, err
	}
	if opts.Library != "" {
		settings.Library.Root = opts.Library
	}
	if opts.DataDir != "" {
		settings.Storage.DataDir = opts.DataDir
	}

	if err := resolvePaths(&settings); err != nil {
		return settings, err
	}
	if err := settings.Validate(); err != nil {
		return settings, err
	}
	return settings, nil
}

// resolvePaths fills in default directories and makes them absolute.
func resolvePaths(settings *domain.Settings) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}
	if settings.Library.Root == "" {
		settings.Library.Root = filepath.Join(home, "Pictures")
	}
	if settings.Storage.DataDir == "" {
		settings.Storage.DataDir = filepath.Join(home, ".pixdex")
	}

	for _, p := range []*string{&settings.Library.Root, &settings.Storage.DataDir} {
		abs, err := filepath.Abs(*p)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", *p, err)
		}
		*p = abs
	}
	return nil
}

// openStores opens the persistent stores, or in-memory ones when inMemory is
// set. In-memory runs write nothing to disk, settings included.
func openStores(
	settings domain.Settings,
	configStore driven.ConfigStore,
	inMemory bool,
) (stores, func() error, error) {
	if inMemory {
		store := memory.NewStore()
		return stores{
			embeddings: store,
			keywords:   store,
			index:      store,
			cache:      memcache.New(),
			config:     memory.NewConfigStore(),
		}, nil, nil
	}

	store, err := sqlite.NewStore(settings.Storage.DataDir)
	if err != nil {
		return stores{}, nil, err
	}
	cache, err := filecache.New(filepath.Join(settings.Storage.DataDir, "cache"))
	if err != nil {
		_ = store.Close()
		return stores{}, nil, err
	}
	return stores{
		embeddings: store,
		keywords:   store,
		index:      store,
		cache:      cache,
		config:     configStore,
	}, store.Close, nil
}

// phaseLogger logs each phase transition of a sync pass.
func phaseLogger() services.SyncObserver {
	var (
		mu   sync.Mutex
		last domain.SyncPhase
	)
	return func(state domain.SyncState) {
		mu.Lock()
		changed := state.Phase != last
		last = state.Phase
		mu.Unlock()
		if !changed {
			return
		}
		if state.Phase == domain.SyncFailed {
			logger.Warn("sync %s failed: %v", state.PassID, state.Err)
			return
		}
		logger.Debug("sync %s: %s", state.PassID, state.Phase)
	}
}
