// Package progress renders the state of a sync pass.
package progress

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/pixdex/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/pixdex/internal/core/domain"
)

const (
	defaultWidth = 60
	maxWidth     = 80
	padding      = 4
)

var phaseLabels = map[domain.SyncPhase]string{
	domain.SyncIdle:                 "Waiting",
	domain.SyncRequestingPermission: "Requesting library access",
	domain.SyncPaging:               "Listing photos",
	domain.SyncProcessing:           "Extracting features",
	domain.SyncReconciling:          "Removing deleted photos",
	domain.SyncComplete:             "Complete",
	domain.SyncFailed:               "Failed",
}

// PhaseLabel returns a human readable phase name.
func PhaseLabel(phase domain.SyncPhase) string {
	if label, ok := phaseLabels[phase]; ok {
		return label
	}
	return string(phase)
}

// View shows the progress bar, phase and counters of one pass.
type View struct {
	styles *styles.Styles
	bar    progress.Model
	state  domain.SyncState
	err    error
	done   bool
}

// NewView creates a progress view.
func NewView(s *styles.Styles) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	theme := s.Theme()
	bar := progress.New(
		progress.WithGradient(string(theme.Primary), string(theme.Secondary)),
		progress.WithWidth(defaultWidth),
	)
	return &View{styles: s, bar: bar}
}

// SetState records a polled sync state.
func (v *View) SetState(state domain.SyncState) {
	v.state = state
}

// State returns the last recorded state.
func (v *View) State() domain.SyncState {
	return v.state
}

// Finish marks the pass as returned with err.
func (v *View) Finish(err error) {
	v.done = true
	v.err = err
}

// Done reports whether the pass has returned.
func (v *View) Done() bool {
	return v.done
}

// SetWidth fits the bar to the terminal.
func (v *View) SetWidth(width int) {
	v.bar.Width = max(10, min(width-padding, maxWidth))
}

// Update handles window resizes.
func (v *View) Update(msg tea.Msg) tea.Cmd {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		v.SetWidth(size.Width)
	}
	return nil
}

// View renders the pass.
func (v *View) View() string {
	var b strings.Builder
	s := v.state

	b.WriteString(v.styles.Title.Render("pixdex sync"))
	if s.PassID != "" {
		b.WriteString(v.styles.Muted.Render("  " + shortID(s.PassID)))
	}
	b.WriteString("\n\n")

	b.WriteString(v.bar.ViewAs(s.Progress / 100))
	b.WriteString("\n")
	b.WriteString(v.styles.ForPhase(s.Phase).Render(PhaseLabel(s.Phase)))
	b.WriteString("\n\n")

	b.WriteString(v.row("Listed", fmt.Sprintf("%d / %d", s.Fetched, s.Total)))
	b.WriteString(v.row("Extracted", fmt.Sprintf("%d", s.Extracted)))
	b.WriteString(v.row("Skipped", fmt.Sprintf("%d", s.Skipped)))
	if s.Failed > 0 {
		b.WriteString(v.styles.Label.Render("Failed") + v.styles.Warning.Render(fmt.Sprintf("%d", s.Failed)) + "\n")
	} else {
		b.WriteString(v.row("Failed", "0"))
	}
	b.WriteString(v.row("Removed", fmt.Sprintf("%d", s.Removed)))

	if v.done {
		b.WriteString("\n")
		b.WriteString(v.summary())
		b.WriteString("\n")
	}

	return v.styles.Border.Render(b.String())
}

func (v *View) row(label, value string) string {
	return v.styles.Label.Render(label) + v.styles.Value.Render(value) + "\n"
}

func (v *View) summary() string {
	err := v.err
	if err == nil {
		err = v.state.Err
	}
	var perm *domain.PermissionError
	switch {
	case err == nil:
		return v.styles.Success.Render("Library is up to date.")
	case errors.As(err, &perm):
		return v.styles.Error.Render("Library access denied.") + "\n" + v.styles.Muted.Render(perm.Remediation)
	default:
		return v.styles.Error.Render("Sync failed: " + err.Error())
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
