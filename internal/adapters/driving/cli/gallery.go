package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var galleryJSON bool

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Browse the cached photo list",
	Long: `Shows the photo list cached by the last completed sync, grouped by
month or year. Available before a new sync finishes.`,
}

var galleryMonthsCmd = &cobra.Command{
	Use:   "months",
	Short: "Group cached photos by month",
	Args:  cobra.NoArgs,
	RunE:  runGalleryMonths,
}

var galleryYearsCmd = &cobra.Command{
	Use:   "years",
	Short: "Group cached photos by year",
	Args:  cobra.NoArgs,
	RunE:  runGalleryYears,
}

func init() {
	galleryCmd.PersistentFlags().BoolVar(&galleryJSON, "json", false, "output groups as JSON")
	galleryCmd.AddCommand(galleryMonthsCmd)
	galleryCmd.AddCommand(galleryYearsCmd)
	rootCmd.AddCommand(galleryCmd)
}

func runGalleryMonths(cmd *cobra.Command, _ []string) error {
	if galleryService == nil {
		return errors.New("gallery service not configured")
	}

	groups, err := galleryService.Months(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load gallery: %w", err)
	}

	if galleryJSON {
		return outputJSON(cmd, groups)
	}
	if len(groups) == 0 {
		cmd.Println("No cached photos. Run 'pixdex sync' first.")
		return nil
	}
	for _, g := range groups {
		cmd.Printf("%-10s %5d\n", g.Label(), len(g.Assets))
	}
	return nil
}

func runGalleryYears(cmd *cobra.Command, _ []string) error {
	if galleryService == nil {
		return errors.New("gallery service not configured")
	}

	groups, err := galleryService.Years(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load gallery: %w", err)
	}

	if galleryJSON {
		return outputJSON(cmd, groups)
	}
	if len(groups) == 0 {
		cmd.Println("No cached photos. Run 'pixdex sync' first.")
		return nil
	}
	for _, g := range groups {
		cmd.Printf("%-10d %5d\n", g.Year, len(g.Assets))
	}
	return nil
}
