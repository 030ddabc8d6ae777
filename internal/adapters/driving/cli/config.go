package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pixdex/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Aliases: []string{"settings"},
	Short:   "Show or change settings",
	Long: `Shows or changes persisted settings. Values set here are stored in the
config file and may be overridden by PIXDEX_* environment variables and
command line flags.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Long: `Changes one setting and saves it. Keys are dotted, for example:

  pixdex config set extraction.base_url http://gpu-box:5000
  pixdex config set sync.interval 1h
  pixdex config set index.threshold 0.8`,
	Args:              cobra.ExactArgs(2),
	RunE:              runConfigSet,
	ValidArgsFunction: completeSettingKeys,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Library]")
	cmd.Printf("  Root: %s\n", valueOrUnset(settings.Library.Root))
	cmd.Println()

	cmd.Println("[Extraction]")
	cmd.Printf("  Base URL: %s\n", settings.Extraction.BaseURL)
	cmd.Printf("  Batch size: %d\n", settings.Extraction.BatchSize)
	cmd.Printf("  Concurrency: %d\n", settings.Extraction.Concurrency)
	cmd.Printf("  Timeout: %s\n", settings.Extraction.Timeout)
	cmd.Printf("  Rate limit: %g req/s (burst %d)\n",
		settings.Extraction.RequestsPerSecond, settings.Extraction.Burst)
	cmd.Println()

	cmd.Println("[Sync]")
	cmd.Printf("  Page size: %d\n", settings.Sync.PageSize)
	cmd.Printf("  Check concurrency: %d\n", settings.Sync.CheckConcurrency)
	cmd.Printf("  Watch debounce: %s\n", settings.Sync.WatchDebounce)
	if settings.Sync.Interval > 0 {
		cmd.Printf("  Interval: %s\n", settings.Sync.Interval)
	} else {
		cmd.Println("  Interval: off")
	}
	cmd.Println()

	cmd.Println("[Index]")
	if settings.Index.Bits > 0 {
		cmd.Printf("  Bits: %d\n", settings.Index.Bits)
	} else {
		cmd.Println("  Bits: auto")
	}
	cmd.Printf("  Threshold: %g\n", settings.Index.Threshold)
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Printf("  Data dir: %s\n", valueOrUnset(settings.Storage.DataDir))
	cmd.Println()

	if err := settings.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'pixdex config set <key> <value>' to fix it.")
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return fmt.Errorf("%w\nvalid keys: %s", err, strings.Join(domain.SettingKeys, ", "))
		}
		return fmt.Errorf("failed to save setting: %w", err)
	}
	cmd.Printf("Set %s = %s\n", key, value)
	return nil
}

func completeSettingKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return domain.SettingKeys, cobra.ShellCompDirectiveNoFileComp
}

func valueOrUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
