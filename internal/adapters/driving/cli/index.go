package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect or rebuild the similarity index",
}

var indexStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the similarity index is current",
	Args:  cobra.NoArgs,
	RunE:  runIndexStatus,
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the similarity index from stored embeddings",
	Args:  cobra.NoArgs,
	RunE:  runIndexRebuild,
}

func init() {
	indexCmd.AddCommand(indexStatusCmd)
	indexCmd.AddCommand(indexRebuildCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexStatus(cmd *cobra.Command, _ []string) error {
	if similarityService == nil {
		return errors.New("similarity service not configured")
	}

	status, err := similarityService.IndexStatus(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read index status: %w", err)
	}

	cmd.Printf("Embeddings:  %d\n", status.Count)
	cmd.Printf("Bucket bits: %d\n", status.Bits)
	cmd.Printf("Generation:  %d (store %d)\n", status.Generation, status.StoreGeneration)
	if status.Stale {
		cmd.Println("Status:      stale, rebuilt on next query")
	} else {
		cmd.Println("Status:      current")
	}
	return nil
}

func runIndexRebuild(cmd *cobra.Command, _ []string) error {
	if similarityService == nil {
		return errors.New("similarity service not configured")
	}

	if err := similarityService.Rebuild(cmd.Context()); err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}

	status, err := similarityService.IndexStatus(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read index status: %w", err)
	}
	cmd.Printf("Index rebuilt: %d embeddings in %d-bit buckets.\n", status.Count, status.Bits)
	return nil
}
