// Package tui provides the interactive sync progress view for pixdex.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"errors"

	"github.com/custodia-labs/pixdex/internal/core/ports/driving"
)

// ErrMissingSyncOrchestrator is returned by NewApp when Ports.Sync is nil.
var ErrMissingSyncOrchestrator = errors.New("tui: sync orchestrator is required")

// Ports aggregates the driving ports the progress view needs.
type Ports struct {
	// Sync runs the pass being displayed and reports its state.
	Sync driving.SyncOrchestrator
}

// Validate reports whether the progress view can run with these ports.
func (p *Ports) Validate() error {
	if p == nil || p.Sync == nil {
		return ErrMissingSyncOrchestrator
	}
	return nil
}
