package memory

import (
	"context"
	"iter"
	"slices"
	"sort"
	"sync"

	"github.com/custodia-labs/pixdex/internal/core/domain"
	"github.com/custodia-labs/pixdex/internal/core/ports/driven"
)

// Ensure Store implements the interfaces.
var (
	_ driven.EmbeddingStore = (*Store)(nil)
	_ driven.KeywordStore   = (*Store)(nil)
	_ driven.IndexStore     = (*Store)(nil)
)

// Store is an in-memory implementation of the embedding and index stores.
// Both live behind one lock so Delete and Reconcile stay atomic across them.
type Store struct {
	mu         sync.RWMutex
	records    map[string]domain.EmbeddingRecord
	entries    map[string]domain.IndexEntry
	generation uint64
	meta       domain.IndexMeta
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		records: make(map[string]domain.EmbeddingRecord),
		entries: make(map[string]domain.IndexEntry),
	}
}

// ==================== EmbeddingStore ====================

// Has reports whether a record exists.
func (s *Store) Has(_ context.Context, uri string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[uri]
	return ok, nil
}

// Put upserts a record.
func (s *Store) Put(_ context.Context, record domain.EmbeddingRecord) error {
	if record.URI == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.URI] = domain.EmbeddingRecord{
		URI:       record.URI,
		Keywords:  domain.NormaliseKeywords(record.Keywords),
		Embedding: slices.Clone(record.Embedding),
	}
	s.generation++
	return nil
}

// Get retrieves a record by URI.
func (s *Store) Get(_ context.Context, uri string) (*domain.EmbeddingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[uri]
	if !ok {
		return nil, domain.ErrNotFound
	}
	record.Keywords = slices.Clone(record.Keywords)
	record.Embedding = slices.Clone(record.Embedding)
	return &record, nil
}

// List enumerates a snapshot of the records in URI order.
func (s *Store) List(_ context.Context) iter.Seq2[domain.EmbeddingRecord, error] {
	return func(yield func(domain.EmbeddingRecord, error) bool) {
		s.mu.RLock()
		records := make([]domain.EmbeddingRecord, 0, len(s.records))
		for _, r := range s.records {
			records = append(records, r)
		}
		s.mu.RUnlock()

		sort.Slice(records, func(i, j int) bool { return records[i].URI < records[j].URI })
		for _, r := range records {
			if !yield(r, nil) {
				return
			}
		}
	}
}

// Delete removes a record and its index entry.
func (s *Store) Delete(_ context.Context, uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[uri]; !ok {
		return nil
	}
	s.remove(uri)
	return nil
}

// Reconcile removes every record not in current.
func (s *Store) Reconcile(_ context.Context, current map[string]struct{}) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for uri := range s.records {
		if _, ok := current[uri]; !ok {
			removed = append(removed, uri)
		}
	}
	sort.Strings(removed)
	for _, uri := range removed {
		s.remove(uri)
	}
	return removed, nil
}

// remove deletes one record and its entry. The index generation follows the
// store generation when the index was fresh, since both sides change together.
// Caller must hold the write lock.
func (s *Store) remove(uri string) {
	fresh := s.meta.Bits > 0 && s.meta.Generation == s.generation
	delete(s.records, uri)
	if _, ok := s.entries[uri]; ok {
		delete(s.entries, uri)
		s.meta.Count = len(s.entries)
	}
	s.generation++
	if fresh {
		s.meta.Generation = s.generation
	}
}

// Count returns the number of records.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Generation returns the store mutation counter.
func (s *Store) Generation(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation, nil
}

// ==================== KeywordStore ====================

// SearchKeyword returns URIs carrying keyword, sorted.
func (s *Store) SearchKeyword(_ context.Context, keyword string) ([]string, error) {
	want := domain.NormaliseKeywords([]string{keyword})
	if len(want) == 0 {
		return []string{}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	uris := []string{}
	for uri, r := range s.records {
		if slices.Contains(r.Keywords, want[0]) {
			uris = append(uris, uri)
		}
	}
	sort.Strings(uris)
	return uris, nil
}

// Keywords returns the tags of one record.
func (s *Store) Keywords(_ context.Context, uri string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[uri]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return slices.Clone(r.Keywords), nil
}

// ==================== IndexStore ====================

// ReplaceAll swaps the whole index.
func (s *Store) ReplaceAll(_ context.Context, entries []domain.IndexEntry, meta domain.IndexMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]domain.IndexEntry, len(entries))
	for _, e := range entries {
		e.Embedding = slices.Clone(e.Embedding)
		s.entries[e.URI] = e
	}
	meta.Count = len(s.entries)
	s.meta = meta
	return nil
}

// UpsertEntry writes one entry.
func (s *Store) UpsertEntry(_ context.Context, entry domain.IndexEntry) error {
	if entry.URI == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.Embedding = slices.Clone(entry.Embedding)
	s.entries[entry.URI] = entry
	s.meta.Count = len(s.entries)
	return nil
}

// RemoveEntry deletes one entry.
func (s *Store) RemoveEntry(_ context.Context, uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, uri)
	s.meta.Count = len(s.entries)
	return nil
}

// Entry returns one entry.
func (s *Store) Entry(_ context.Context, uri string) (*domain.IndexEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[uri]
	if !ok {
		return nil, domain.ErrNotFound
	}
	e.Embedding = slices.Clone(e.Embedding)
	return &e, nil
}

// Bucket returns the entries sharing code, in URI order.
func (s *Store) Bucket(_ context.Context, code string) ([]domain.IndexEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.IndexEntry
	for _, e := range s.entries {
		if e.Bucket == code {
			e.Embedding = slices.Clone(e.Embedding)
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })
	return out, nil
}

// URIs returns the indexed URIs.
func (s *Store) URIs(_ context.Context) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]struct{}, len(s.entries))
	for uri := range s.entries {
		out[uri] = struct{}{}
	}
	return out, nil
}

// Meta returns the index metadata.
func (s *Store) Meta(_ context.Context) (domain.IndexMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta, nil
}

// SetGeneration records the store generation the index reflects.
func (s *Store) SetGeneration(_ context.Context, generation uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta.Generation = generation
	return nil
}
