package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent failures at component boundaries.
// Adapters convert driver and transport errors into these.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPermissionDenied indicates media library access was refused.
	// It is terminal for a sync pass and requires user action.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrStorageUnavailable indicates the persistent store could not be opened.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrStorageIO indicates a read or write against the store failed.
	ErrStorageIO = errors.New("storage I/O error")

	// ErrExtractionFailed indicates a feature extraction batch failed.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrContentUnavailable indicates an asset could not be resolved to bytes.
	ErrContentUnavailable = errors.New("content unavailable")

	// ErrMalformedRecord indicates persisted data could not be parsed.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrSyncInProgress indicates a sync is already running.
	ErrSyncInProgress = errors.New("sync in progress")
)

// ExtractionError reports a whole-batch extraction failure.
// Every URI in the batch is left unprocessed.
type ExtractionError struct {
	// URIs lists the assets that were sent in the failed batch.
	URIs []string

	// Err is the underlying cause.
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %d assets: %v", len(e.URIs), e.Err)
}

// Unwrap exposes both the sentinel and the cause to errors.Is.
func (e *ExtractionError) Unwrap() []error {
	return []error{ErrExtractionFailed, e.Err}
}

// AssetFailure reports a single asset excluded from an otherwise successful batch.
type AssetFailure struct {
	URI string
	Err error
}

func (e *AssetFailure) Error() string {
	return fmt.Sprintf("asset %s: %v", e.URI, e.Err)
}

func (e *AssetFailure) Unwrap() error {
	return e.Err
}

// PermissionError wraps ErrPermissionDenied with a remediation the user can act on.
type PermissionError struct {
	// Remediation tells the user how to grant access.
	Remediation string
}

func (e *PermissionError) Error() string {
	var b strings.Builder
	b.WriteString(ErrPermissionDenied.Error())
	if e.Remediation != "" {
		b.WriteString(": ")
		b.WriteString(e.Remediation)
	}
	return b.String()
}

func (e *PermissionError) Unwrap() error {
	return ErrPermissionDenied
}
