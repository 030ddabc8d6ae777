package driven

import "context"

// KeyValueCache stores opaque values under string keys.
// Used to persist the last known asset list for fast cold start.
type KeyValueCache interface {
	// Get returns the value for key. Returns domain.ErrNotFound if unset.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
}
