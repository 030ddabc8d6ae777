package domain

import "time"

// SyncPhase is a state of the sync pass state machine.
type SyncPhase string

// Sync phases in the order a successful pass visits them.
const (
	SyncIdle                 SyncPhase = "idle"
	SyncRequestingPermission SyncPhase = "requesting_permission"
	SyncPaging               SyncPhase = "paging"
	SyncProcessing           SyncPhase = "processing"
	SyncReconciling          SyncPhase = "reconciling"
	SyncComplete             SyncPhase = "complete"
	SyncFailed               SyncPhase = "failed"
)

// IsActive returns true while a pass is running.
func (p SyncPhase) IsActive() bool {
	switch p {
	case SyncRequestingPermission, SyncPaging, SyncProcessing, SyncReconciling:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for phases that end a pass.
func (p SyncPhase) IsTerminal() bool {
	return p == SyncComplete || p == SyncFailed
}

// SyncState is the transient, process-wide progress of a sync pass.
// It is reset at the start of each pass and never persisted.
type SyncState struct {
	// PassID identifies the pass in logs.
	PassID string

	// Phase is the current state machine phase.
	Phase SyncPhase

	// Progress is 0-100, non-decreasing within a pass.
	Progress float64

	// Complete is set once the pass reaches SyncComplete.
	Complete bool

	// Cursor is the last page cursor received from the library.
	Cursor string

	// Fetched is the number of assets listed so far.
	Fetched int

	// Total is the library size reported by the first page.
	Total int

	// Extracted is the number of assets stored this pass.
	Extracted int

	// Skipped is the number of assets already stored.
	Skipped int

	// Failed is the number of assets left unprocessed this pass.
	Failed int

	// Removed is the number of stale records reconciled away.
	Removed int

	// Err is the failure reason when Phase is SyncFailed.
	Err error

	StartedAt  time.Time
	FinishedAt time.Time
}
