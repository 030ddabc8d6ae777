package driven

import (
	"context"

	"github.com/custodia-labs/pixdex/internal/core/domain"
)

// MediaLibrary is the device photo library collaborator.
// Listing is ordered by descending creation time and stable within a pass.
type MediaLibrary interface {
	// Permission returns the current access state without prompting.
	Permission(ctx context.Context) (domain.Permission, error)

	// RequestPermission prompts for access. It never blocks indefinitely.
	RequestPermission(ctx context.Context) (domain.Permission, error)

	// Remediation describes how the user can grant access after a denial.
	Remediation() string

	// ListPage returns up to pageSize assets after the opaque cursor.
	// An empty cursor starts from the newest asset.
	ListPage(ctx context.Context, pageSize int, after string) (*domain.Page, error)

	// LocalContent returns the image bytes of an asset.
	// Returns domain.ErrContentUnavailable when no local data exists.
	LocalContent(ctx context.Context, asset domain.Asset) (*domain.ImagePayload, error)
}

// LibraryWatcher is implemented by libraries that can signal changes.
type LibraryWatcher interface {
	// Watch emits a value whenever the library changes. The channel closes
	// when ctx is cancelled.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
