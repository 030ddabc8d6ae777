package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/pixdex/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/pixdex/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/pixdex/internal/adapters/driving/tui/progress"
	"github.com/custodia-labs/pixdex/internal/adapters/driving/tui/styles"
)

// DefaultPollInterval is how often sync status is polled.
const DefaultPollInterval = 100 * time.Millisecond

// App runs one sync pass and renders its progress.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	cancel context.CancelFunc

	styles   *styles.Styles
	keys     *keymap.KeyMap
	help     help.Model
	view     *progress.View
	interval time.Duration

	showHelp   bool
	cancelling bool
	err        error
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a sync progress app with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	h := help.New()
	h.Styles.ShortDesc = s.Help
	h.Styles.FullDesc = s.Help
	h.Styles.ShortSeparator = s.Muted

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		ports:    ports,
		ctx:      ctx,
		cancel:   cancel,
		styles:   s,
		keys:     keymap.DefaultKeyMap(),
		help:     h,
		view:     progress.NewView(s),
		interval: DefaultPollInterval,
	}, nil
}

// WithContext derives the pass context from ctx.
func (a *App) WithContext(ctx context.Context) *App {
	a.cancel()
	a.ctx, a.cancel = context.WithCancel(ctx)
	return a
}

// WithPollInterval overrides the status poll interval.
func (a *App) WithPollInterval(d time.Duration) *App {
	if d > 0 {
		a.interval = d
	}
	return a
}

// Err returns the error the sync pass returned.
func (a *App) Err() error {
	return a.err
}

// Init starts the pass and the status poll.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.runSync(), a.tick())
}

func (a *App) runSync() tea.Cmd {
	ctx, sync := a.ctx, a.ports.Sync
	return func() tea.Msg {
		return messages.SyncFinished{Err: sync.Sync(ctx)}
	}
}

func (a *App) tick() tea.Cmd {
	return tea.Tick(a.interval, func(time.Time) tea.Msg {
		return messages.Tick{}
	})
}

// Update handles messages and returns the updated model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.Tick:
		if a.view.Done() {
			return a, nil
		}
		sync := a.ports.Sync
		return a, tea.Batch(
			func() tea.Msg { return messages.StatusPolled{State: sync.Status()} },
			a.tick(),
		)

	case messages.StatusPolled:
		if !a.view.Done() {
			a.view.SetState(msg.State)
		}
		return a, nil

	case messages.SyncFinished:
		a.err = msg.Err
		a.view.SetState(a.ports.Sync.Status())
		a.view.Finish(msg.Err)
		a.keys.AfterPass()
		a.cancel()
		return a, tea.Quit

	case tea.KeyMsg:
		return a.handleKey(msg)

	case tea.WindowSizeMsg:
		a.help.Width = msg.Width
		return a, a.view.Update(msg)
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		if a.view.Done() {
			return a, tea.Quit
		}
		// The pass observes cancellation and reports SyncFinished.
		a.cancelling = true
		a.cancel()
		return a, nil
	case key.Matches(msg, a.keys.Help):
		a.showHelp = !a.showHelp
	}
	return a, nil
}

// View renders the progress box and help line.
func (a *App) View() string {
	var b strings.Builder
	b.WriteString(a.view.View())
	b.WriteString("\n")

	switch {
	case a.view.Done():
	case a.cancelling:
		b.WriteString(a.styles.Warning.Render("Cancelling..."))
		b.WriteString("\n")
	default:
		a.help.ShowAll = a.showHelp
		b.WriteString(a.help.View(a.keys))
		b.WriteString("\n")
	}
	return b.String()
}
