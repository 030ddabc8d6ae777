package driven

import (
	"context"
	"iter"

	"github.com/custodia-labs/pixdex/internal/core/domain"
)

// EmbeddingStore persists extracted embeddings and keywords keyed by asset URI.
// Every mutation advances the store generation.
type EmbeddingStore interface {
	// Has reports whether a record exists. Not found is not an error.
	Has(ctx context.Context, uri string) (bool, error)

	// Put upserts a record. It does not update the similarity index.
	Put(ctx context.Context, record domain.EmbeddingRecord) error

	// Get returns the record for uri.
	// Returns domain.ErrNotFound or domain.ErrMalformedRecord.
	Get(ctx context.Context, uri string) (*domain.EmbeddingRecord, error)

	// List lazily enumerates current records. Each call re-enumerates.
	// Unparsable rows are yielded with a domain.ErrMalformedRecord error.
	List(ctx context.Context) iter.Seq2[domain.EmbeddingRecord, error]

	// Delete removes a record and its index entry atomically.
	Delete(ctx context.Context, uri string) error

	// Reconcile deletes every record whose URI is not in current, all or nothing.
	// Returns the removed URIs.
	Reconcile(ctx context.Context, current map[string]struct{}) ([]string, error)

	// Count returns the number of records.
	Count(ctx context.Context) (int, error)

	// Generation returns the mutation counter of the store.
	Generation(ctx context.Context) (uint64, error)
}

// KeywordStore answers tag queries over stored records.
type KeywordStore interface {
	// SearchKeyword returns URIs tagged with keyword (case-insensitive, exact tag).
	SearchKeyword(ctx context.Context, keyword string) ([]string, error)

	// Keywords returns the tags of one record. Returns domain.ErrNotFound.
	Keywords(ctx context.Context, uri string) ([]string, error)
}

// IndexStore persists the derived similarity index.
type IndexStore interface {
	// ReplaceAll swaps the whole index for entries in one transaction.
	ReplaceAll(ctx context.Context, entries []domain.IndexEntry, meta domain.IndexMeta) error

	// UpsertEntry writes or overwrites one entry.
	UpsertEntry(ctx context.Context, entry domain.IndexEntry) error

	// RemoveEntry deletes one entry. Missing entries are not an error.
	RemoveEntry(ctx context.Context, uri string) error

	// Entry returns one entry. Returns domain.ErrNotFound.
	Entry(ctx context.Context, uri string) (*domain.IndexEntry, error)

	// Bucket returns every entry sharing a bucket code.
	Bucket(ctx context.Context, code string) ([]domain.IndexEntry, error)

	// URIs returns the set of indexed URIs.
	URIs(ctx context.Context) (map[string]struct{}, error)

	// Meta returns the index generation, bit width and entry count.
	Meta(ctx context.Context) (domain.IndexMeta, error)

	// SetGeneration records the store generation the index reflects.
	SetGeneration(ctx context.Context, generation uint64) error
}
