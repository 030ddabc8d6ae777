package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pixdex/internal/core/domain"
)

var (
	similarLimit  int
	similarJSON   bool
	similarScores bool
)

var similarCmd = &cobra.Command{
	Use:   "similar <photo>",
	Short: "Find photos that look like a given photo",
	Long: `Lists photos whose embedding is close to the given photo's, best match
first. The photo may be a path or an asset URI. Photos that have not been
synced yet have no embedding and produce no results.`,
	Args: cobra.ExactArgs(1),
	RunE: runSimilar,
}

func init() {
	similarCmd.Flags().IntVarP(&similarLimit, "limit", "n", 0, "maximum number of results (0 = all)")
	similarCmd.Flags().BoolVar(&similarJSON, "json", false, "output results as JSON")
	similarCmd.Flags().BoolVar(&similarScores, "scores", false, "include similarity scores")
	rootCmd.AddCommand(similarCmd)
}

func runSimilar(cmd *cobra.Command, args []string) error {
	if similarityService == nil {
		return errors.New("similarity service not configured")
	}

	uri, err := assetURI(args[0])
	if err != nil {
		return err
	}

	results, err := similarityService.Similar(cmd.Context(), uri)
	if err != nil {
		return fmt.Errorf("similarity query failed: %w", err)
	}
	if similarLimit > 0 && len(results) > similarLimit {
		results = results[:similarLimit]
	}

	if similarJSON {
		return outputSimilarJSON(cmd, results)
	}

	if len(results) == 0 {
		cmd.Println("No similar photos found.")
		return nil
	}
	for _, r := range results {
		if similarScores {
			cmd.Printf("%.4f  %s\n", r.Score, r.URI)
			continue
		}
		cmd.Println(r.URI)
	}
	return nil
}

func outputSimilarJSON(cmd *cobra.Command, results []domain.SimilarAsset) error {
	var payload any = results
	if !similarScores {
		uris := make([]string, len(results))
		for i, r := range results {
			uris[i] = r.URI
		}
		payload = uris
	}
	return outputJSON(cmd, payload)
}
