package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/pixdex/internal/core/domain"
	"github.com/custodia-labs/pixdex/internal/core/ports/driven"
	"github.com/custodia-labs/pixdex/internal/logger"
	"github.com/custodia-labs/pixdex/internal/metrics"
)

// Extractor groups assets into batches and sends them to the extraction service.
// A batch either yields one result per image sent or fails as a whole.
// Failed batches are not retried; their assets are picked up by a later pass.
type Extractor struct {
	library   driven.MediaLibrary
	transport driven.ExtractionTransport
	batchSize int
	timeout   time.Duration
}

// NewExtractor creates an extractor. Zero settings fall back to defaults.
func NewExtractor(
	library driven.MediaLibrary,
	transport driven.ExtractionTransport,
	settings domain.ExtractionSettings,
) *Extractor {
	batchSize := settings.BatchSize
	if batchSize <= 0 {
		batchSize = domain.DefaultBatchSize
	}
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultRequestTimeout
	}
	return &Extractor{
		library:   library,
		transport: transport,
		batchSize: batchSize,
		timeout:   timeout,
	}
}

// BatchSize returns the number of assets per batch.
func (e *Extractor) BatchSize() int {
	return e.batchSize
}

// Batches splits assets into consecutive batches of at most BatchSize.
func (e *Extractor) Batches(assets []domain.Asset) [][]domain.Asset {
	if len(assets) == 0 {
		return nil
	}
	batches := make([][]domain.Asset, 0, (len(assets)+e.batchSize-1)/e.batchSize)
	for start := 0; start < len(assets); start += e.batchSize {
		end := min(start+e.batchSize, len(assets))
		batches = append(batches, assets[start:end])
	}
	return batches
}

// ExtractBatch resolves the batch's image content and extracts features for it.
//
// Assets whose content cannot be resolved are left out of the request and
// reported in BatchResult.Failures. A transport error, timeout or result count
// mismatch returns an *domain.ExtractionError naming every asset sent.
func (e *Extractor) ExtractBatch(ctx context.Context, batch []domain.Asset) (*domain.BatchResult, error) {
	result := &domain.BatchResult{}

	payloads := make([]domain.ImagePayload, 0, len(batch))
	for _, asset := range batch {
		payload, err := e.library.LocalContent(ctx, asset)
		if err != nil {
			logger.Warn("Cannot resolve content for %s: %v", asset.URI, err)
			result.Failures = append(result.Failures, domain.AssetFailure{URI: asset.URI, Err: err})
			continue
		}
		if payload.URI == "" {
			payload.URI = asset.URI
		}
		payloads = append(payloads, *payload)
	}

	if len(payloads) == 0 {
		return result, nil
	}

	uris := make([]string, len(payloads))
	for i := range payloads {
		uris[i] = payloads[i].URI
	}

	reqCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	results, err := e.transport.Extract(reqCtx, payloads)
	metrics.ExtractionBatchSeconds.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			metrics.ExtractionBatchesTotal.WithLabelValues("timeout").Inc()
			if !errors.Is(err, context.DeadlineExceeded) {
				err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
			}
		} else {
			metrics.ExtractionBatchesTotal.WithLabelValues("failed").Inc()
		}
		return nil, &domain.ExtractionError{URIs: uris, Err: err}
	}

	if len(results) != len(payloads) {
		metrics.ExtractionBatchesTotal.WithLabelValues("failed").Inc()
		return nil, &domain.ExtractionError{
			URIs: uris,
			Err:  fmt.Errorf("expected %d results, got %d", len(payloads), len(results)),
		}
	}

	metrics.ExtractionBatchesTotal.WithLabelValues("ok").Inc()
	result.Extractions = make([]domain.Extraction, len(results))
	for i, r := range results {
		result.Extractions[i] = domain.Extraction{
			URI:       uris[i],
			Keywords:  domain.NormaliseKeywords(r.Keywords),
			Embedding: r.Embedding,
		}
	}
	return result, nil
}
