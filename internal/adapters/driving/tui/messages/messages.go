// Package messages defines Bubbletea message types for the TUI.
// Messages represent events that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/pixdex/internal/core/domain"
)

// Tick asks the model to poll sync status.
type Tick struct{}

// StatusPolled carries a sync state snapshot.
type StatusPolled struct {
	State domain.SyncState
}

// SyncFinished is sent when the sync pass returns.
type SyncFinished struct {
	Err error
}
