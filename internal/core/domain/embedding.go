package domain

import (
	"sort"
	"strings"
)

// EmbeddingRecord is the extracted feature data for one asset.
// It is created on first successful extraction, replaced on re-processing
// and removed when the asset leaves the library.
type EmbeddingRecord struct {
	// URI is the asset URI and primary key.
	URI string

	// Keywords is an unordered set of tags. Stored normalised.
	Keywords []string

	// Embedding is the fixed-length feature vector.
	Embedding []float32
}

// IndexEntry is the derived similarity index row for one asset.
type IndexEntry struct {
	// URI joins the entry to its EmbeddingRecord.
	URI string

	// Bucket is the sign-bit code of the leading embedding components.
	Bucket string

	// Embedding is a copy of the record embedding used for refinement.
	Embedding []float32
}

// IndexMeta describes the state of the persisted similarity index.
type IndexMeta struct {
	// Generation is the store generation the index reflects.
	Generation uint64

	// Bits is the bucket code width the entries were built with.
	Bits int

	// Count is the number of index entries.
	Count int
}

// IndexStatus compares the index against the store it derives from.
type IndexStatus struct {
	IndexMeta

	// StoreGeneration is the current store generation.
	StoreGeneration uint64

	// Stale is true when the index must be rebuilt before use.
	Stale bool
}

// Extraction is the result for a single image from the extraction service.
type Extraction struct {
	URI       string
	Keywords  []string
	Embedding []float32
}

// Record converts the extraction into a storable record.
func (e Extraction) Record() EmbeddingRecord {
	return EmbeddingRecord{
		URI:       e.URI,
		Keywords:  e.Keywords,
		Embedding: e.Embedding,
	}
}

// BatchResult is the outcome of one successful extraction batch.
type BatchResult struct {
	// Extractions holds one result per asset that was sent.
	Extractions []Extraction

	// Failures lists assets excluded before sending.
	Failures []AssetFailure
}

// ImagePayload is the binary content of one asset ready for transmission.
type ImagePayload struct {
	URI         string
	Filename    string
	ContentType string
	Data        []byte
}

// SimilarAsset is a query hit with its exact cosine score.
type SimilarAsset struct {
	URI   string  `json:"uri"`
	Score float64 `json:"score"`
}

// NormaliseKeywords trims, lowercases and deduplicates tags, returning them sorted.
// Empty tags are dropped. The result is never nil.
func NormaliseKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
