package driven

import (
	"context"

	"github.com/custodia-labs/pixdex/internal/core/domain"
)

// ExtractionTransport sends images to the remote feature extraction service.
// A call is all-or-nothing: it either returns results or an error.
type ExtractionTransport interface {
	// Extract sends images in one request and returns the service results in
	// response order. The caller validates the result count.
	Extract(ctx context.Context, images []domain.ImagePayload) ([]ExtractionResult, error)

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error
}

// ExtractionResult is one entry of the service response.
type ExtractionResult struct {
	Keywords  []string
	Embedding []float32
}
