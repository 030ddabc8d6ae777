package driving

import "context"

// Scheduler keeps the store in step with the library in the background.
type Scheduler interface {
	// Start runs an initial pass, then passes on library changes and on the
	// configured interval. Blocks until ctx is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop ends scheduling and waits for a running pass to finish.
	Stop() error
}
