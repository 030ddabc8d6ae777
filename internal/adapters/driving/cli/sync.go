package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/pixdex/internal/adapters/driving/tui"
	"github.com/custodia-labs/pixdex/internal/core/domain"
	"github.com/custodia-labs/pixdex/internal/core/ports/driving"
)

var (
	syncTUI          bool
	syncPollInterval = 500 * time.Millisecond
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Index new photos and drop deleted ones",
	Long: `Runs one synchronisation pass over the photo library.
New photos are sent to the extraction service in batches and their keywords
and embeddings stored. Photos no longer in the library are removed from the
index. Press Ctrl+C to cancel; work already stored is kept.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncTUI, "tui", false, "show an interactive progress view")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	if syncOrchestrator == nil {
		return errors.New("sync service not configured")
	}

	ctx := cmd.Context()
	if syncTUI && isTerminal(cmd.OutOrStdout()) {
		return runSyncTUI(ctx, cmd)
	}

	cmd.Println("Synchronising library...")
	if err := syncWithProgress(ctx, cmd, syncOrchestrator); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	printSyncSummary(cmd, syncOrchestrator.Status())
	return nil
}

func runSyncTUI(ctx context.Context, cmd *cobra.Command) error {
	app, err := tui.NewApp(&tui.Ports{Sync: syncOrchestrator})
	if err != nil {
		return err
	}
	app = app.WithContext(ctx)

	program := tea.NewProgram(app,
		tea.WithContext(ctx),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("progress view: %w", err)
	}
	if err := app.Err(); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	return nil
}

// syncWithProgress runs a pass while printing phase and progress changes.
func syncWithProgress(ctx context.Context, cmd *cobra.Command, syncOrch driving.SyncOrchestrator) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- syncOrch.Sync(ctx)
	}()

	ticker := time.NewTicker(syncPollInterval)
	defer ticker.Stop()

	var lastPhase domain.SyncPhase
	lastPercent := -1
	for {
		select {
		case err := <-errCh:
			if lastPercent >= 0 {
				cmd.Println()
			}
			return err
		case <-ticker.C:
			state := syncOrch.Status()
			percent := int(state.Progress)
			if state.Phase == lastPhase && percent == lastPercent {
				continue
			}
			cmd.Printf("\r%-22s %3d%%  %d/%d", state.Phase, percent, state.Fetched, state.Total)
			lastPhase, lastPercent = state.Phase, percent
		}
	}
}

func printSyncSummary(cmd *cobra.Command, state domain.SyncState) {
	cmd.Printf("Extracted %d, skipped %d, failed %d, removed %d.\n",
		state.Extracted, state.Skipped, state.Failed, state.Removed)
	if !state.FinishedAt.IsZero() && !state.StartedAt.IsZero() {
		cmd.Printf("Finished in %s.\n", state.FinishedAt.Sub(state.StartedAt).Round(time.Millisecond))
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
