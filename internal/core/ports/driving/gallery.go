package driving

import (
	"context"

	"github.com/custodia-labs/pixdex/internal/core/domain"
)

// GalleryService serves the cached asset list for display before a sync completes.
type GalleryService interface {
	// Assets returns the last cached asset list. Empty if none is cached.
	Assets(ctx context.Context) ([]domain.Asset, error)

	// Months groups cached assets by creation month.
	Months(ctx context.Context) ([]domain.MonthGroup, error)

	// Years groups cached assets by creation year.
	Years(ctx context.Context) ([]domain.YearGroup, error)
}
