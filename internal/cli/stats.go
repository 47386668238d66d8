package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show vector repository statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	svc, closer, err := buildService(context.Background())
	if err != nil {
		return err
	}
	defer closer()

	stats, err := svc.GetIndexStats(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Model:  %s\n", stats.Model)
	fmt.Printf("Files:  %d\n", stats.Files)
	fmt.Printf("Chunks: %d\n", stats.Chunks)
	return nil
}
