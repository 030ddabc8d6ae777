package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var searchJSON bool

var searchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "List photos tagged with a keyword",
	Long: `Lists photos the extraction service tagged with the given keyword.
Keywords are matched case-insensitively.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

var keywordsJSON bool

var keywordsCmd = &cobra.Command{
	Use:   "keywords <photo>",
	Short: "Show the keywords of a photo",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeywords,
}

func init() {
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	keywordsCmd.Flags().BoolVar(&keywordsJSON, "json", false, "output keywords as JSON")
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(keywordsCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if keywordService == nil {
		return errors.New("keyword service not configured")
	}

	uris, err := keywordService.Search(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		if uris == nil {
			uris = []string{}
		}
		return outputJSON(cmd, uris)
	}
	if len(uris) == 0 {
		cmd.Printf("No photos tagged %q.\n", args[0])
		return nil
	}
	for _, uri := range uris {
		cmd.Println(uri)
	}
	return nil
}

func runKeywords(cmd *cobra.Command, args []string) error {
	if keywordService == nil {
		return errors.New("keyword service not configured")
	}

	uri, err := assetURI(args[0])
	if err != nil {
		return err
	}

	keywords, err := keywordService.KeywordsFor(cmd.Context(), uri)
	if err != nil {
		return fmt.Errorf("keyword lookup failed: %w", err)
	}

	if keywordsJSON {
		if keywords == nil {
			keywords = []string{}
		}
		return outputJSON(cmd, keywords)
	}
	if len(keywords) == 0 {
		cmd.Println("No keywords.")
		return nil
	}
	for _, kw := range keywords {
		cmd.Println(kw)
	}
	return nil
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
