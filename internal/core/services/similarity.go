package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/pixdex/internal/core/domain"
	"github.com/custodia-labs/pixdex/internal/core/ports/driven"
	"github.com/custodia-labs/pixdex/internal/core/ports/driving"
	"github.com/custodia-labs/pixdex/internal/logger"
	"github.com/custodia-labs/pixdex/internal/metrics"
)

// Ensure SimilarityIndex implements the interface.
var _ driving.SimilarityService = (*SimilarityIndex)(nil)

// SimilarityIndex is a bucket-hash index over stored embeddings.
// Candidates are the entries sharing the query's bucket code; exact cosine
// similarity then filters them against the threshold.
//
// The index is derived data. It records the store generation it was built
// from and is rebuilt from the store whenever that generation is behind.
type SimilarityIndex struct {
	store     driven.EmbeddingStore
	index     driven.IndexStore
	bits      int
	threshold float64

	// mu serialises index writes so rebuilds and incremental updates never interleave.
	mu sync.Mutex
}

// NewSimilarityIndex creates a similarity index over store, persisted in index.
func NewSimilarityIndex(
	store driven.EmbeddingStore,
	index driven.IndexStore,
	settings domain.IndexSettings,
) *SimilarityIndex {
	threshold := settings.Threshold
	if threshold == 0 {
		threshold = domain.DefaultSimilarityThreshold
	}
	return &SimilarityIndex{
		store:     store,
		index:     index,
		bits:      settings.Bits,
		threshold: threshold,
	}
}

// Threshold returns the minimum similarity a query result must reach.
func (s *SimilarityIndex) Threshold() float64 {
	return s.threshold
}

func (s *SimilarityIndex) bitsFor(n int) int {
	if s.bits > 0 {
		return s.bits
	}
	return BitsFor(n)
}

// Build recomputes every index entry from the store.
// Malformed records are logged and excluded. Build is idempotent.
func (s *SimilarityIndex) Build(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.build(ctx)
}

func (s *SimilarityIndex) build(ctx context.Context) error {
	logger.Phase("Index Build")

	// Read the generation first: writes landing during the scan leave the
	// index marked stale rather than wrongly fresh.
	generation, err := s.store.Generation(ctx)
	if err != nil {
		return fmt.Errorf("read store generation: %w", err)
	}

	var entries []domain.IndexEntry
	for record, err := range s.store.List(ctx) {
		if err != nil {
			if errors.Is(err, domain.ErrMalformedRecord) {
				logger.Warn("Skipping record: %v", err)
				metrics.IndexMalformedRecordsTotal.Inc()
				continue
			}
			return fmt.Errorf("list records: %w", err)
		}
		if len(record.Embedding) == 0 {
			continue
		}
		entries = append(entries, domain.IndexEntry{
			URI:       record.URI,
			Embedding: record.Embedding,
		})
	}

	bits := s.bitsFor(len(entries))
	for i := range entries {
		entries[i].Bucket = BucketCode(entries[i].Embedding, bits)
	}

	meta := domain.IndexMeta{Generation: generation, Bits: bits, Count: len(entries)}
	if err := s.index.ReplaceAll(ctx, entries, meta); err != nil {
		return fmt.Errorf("replace index: %w", err)
	}

	metrics.IndexRebuildsTotal.Inc()
	logger.Debug("Indexed %d embeddings with %d-bit buckets at generation %d", len(entries), bits, generation)
	return nil
}

// Refresh rebuilds the index if it is behind the store or its bucket width
// no longer fits the corpus size. Returns true if a rebuild happened.
func (s *SimilarityIndex) Refresh(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, err := s.status(ctx)
	if err != nil {
		return false, err
	}
	if !status.Stale {
		return false, nil
	}
	if err := s.build(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Upsert recomputes the entry for one URI after its record was written.
// The index generation only advances when this write was the single
// pending store mutation; otherwise the index stays stale for Refresh.
func (s *SimilarityIndex) Upsert(ctx context.Context, uri string, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.index.Meta(ctx)
	if err != nil {
		return fmt.Errorf("read index meta: %w", err)
	}
	if meta.Bits == 0 {
		// Never built; the next Refresh builds it in full.
		return nil
	}

	generation, err := s.store.Generation(ctx)
	if err != nil {
		return fmt.Errorf("read store generation: %w", err)
	}

	if len(embedding) == 0 {
		if err := s.index.RemoveEntry(ctx, uri); err != nil {
			return fmt.Errorf("remove entry: %w", err)
		}
	} else {
		entry := domain.IndexEntry{
			URI:       uri,
			Bucket:    BucketCode(embedding, meta.Bits),
			Embedding: embedding,
		}
		if err := s.index.UpsertEntry(ctx, entry); err != nil {
			return fmt.Errorf("upsert entry: %w", err)
		}
	}

	if generation == meta.Generation+1 {
		if err := s.index.SetGeneration(ctx, generation); err != nil {
			return fmt.Errorf("set index generation: %w", err)
		}
	}
	return nil
}

// Remove deletes the entry for one URI.
func (s *SimilarityIndex) Remove(ctx context.Context, uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.RemoveEntry(ctx, uri); err != nil {
		return fmt.Errorf("remove entry: %w", err)
	}
	return nil
}

// Query returns the URIs similar to uri. Order follows descending score.
func (s *SimilarityIndex) Query(ctx context.Context, uri string) ([]string, error) {
	hits, err := s.Similar(ctx, uri)
	if err != nil {
		return nil, err
	}
	uris := make([]string, len(hits))
	for i := range hits {
		uris[i] = hits[i].URI
	}
	return uris, nil
}

// Similar returns the assets in uri's bucket whose cosine similarity to it
// reaches the threshold, best first. uri itself is never returned.
func (s *SimilarityIndex) Similar(ctx context.Context, uri string) ([]domain.SimilarAsset, error) {
	start := time.Now()
	defer func() {
		metrics.QueryDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	if _, err := s.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("refresh index: %w", err)
	}

	record, err := s.store.Get(ctx, uri)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		logger.Debug("No embedding for %s", uri)
		return []domain.SimilarAsset{}, nil
	case errors.Is(err, domain.ErrMalformedRecord):
		logger.Warn("Ignoring malformed record for %s: %v", uri, err)
		return []domain.SimilarAsset{}, nil
	case err != nil:
		return nil, fmt.Errorf("get embedding: %w", err)
	}
	if len(record.Embedding) == 0 {
		return []domain.SimilarAsset{}, nil
	}

	meta, err := s.index.Meta(ctx)
	if err != nil {
		return nil, fmt.Errorf("read index meta: %w", err)
	}

	candidates, err := s.index.Bucket(ctx, BucketCode(record.Embedding, meta.Bits))
	if err != nil {
		return nil, fmt.Errorf("load bucket: %w", err)
	}
	metrics.QueryCandidates.Observe(float64(len(candidates)))

	hits := make([]domain.SimilarAsset, 0, len(candidates))
	for i := range candidates {
		if candidates[i].URI == uri {
			continue
		}
		score := CosineSimilarity(record.Embedding, candidates[i].Embedding)
		if score >= s.threshold {
			hits = append(hits, domain.SimilarAsset{URI: candidates[i].URI, Score: score})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].URI < hits[j].URI
	})

	logger.Debug("Query %s: %d candidates, %d hits", uri, len(candidates), len(hits))
	return hits, nil
}

// Rebuild forces a full rebuild.
func (s *SimilarityIndex) Rebuild(ctx context.Context) error {
	return s.Build(ctx)
}

// IndexStatus reports the index metadata and whether it is stale.
func (s *SimilarityIndex) IndexStatus(ctx context.Context) (domain.IndexStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status(ctx)
}

func (s *SimilarityIndex) status(ctx context.Context) (domain.IndexStatus, error) {
	meta, err := s.index.Meta(ctx)
	if err != nil {
		return domain.IndexStatus{}, fmt.Errorf("read index meta: %w", err)
	}
	generation, err := s.store.Generation(ctx)
	if err != nil {
		return domain.IndexStatus{}, fmt.Errorf("read store generation: %w", err)
	}

	stale := meta.Bits == 0 ||
		meta.Generation != generation ||
		meta.Bits != s.bitsFor(meta.Count)

	return domain.IndexStatus{
		IndexMeta:       meta,
		StoreGeneration: generation,
		Stale:           stale,
	}, nil
}
