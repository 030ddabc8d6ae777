package driving

import (
	"context"

	"github.com/custodia-labs/pixdex/internal/core/domain"
)

// SyncOrchestrator reconciles the media library against the store.
type SyncOrchestrator interface {
	// Sync runs one full pass. Returns domain.ErrSyncInProgress if a pass is running.
	Sync(ctx context.Context) error

	// Status returns a snapshot of the current or last pass.
	Status() domain.SyncState
}
