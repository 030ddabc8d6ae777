package driving

import (
	"context"

	"github.com/custodia-labs/pixdex/internal/core/domain"
)

// SimilarityService answers "find images similar to X" queries.
type SimilarityService interface {
	// Similar returns URIs whose embedding is similar to uri's, excluding uri.
	// An asset without an embedding yields an empty result, not an error.
	Similar(ctx context.Context, uri string) ([]domain.SimilarAsset, error)

	// Rebuild forces a full index rebuild.
	Rebuild(ctx context.Context) error

	// IndexStatus reports index freshness.
	IndexStatus(ctx context.Context) (domain.IndexStatus, error)
}
