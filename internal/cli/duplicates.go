package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/semsearchd/internal/graph"
)

var duplicatesThreshold float64

var duplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "Find pairs of files whose content centroids are near-identical",
	RunE:  runDuplicates,
}

func init() {
	rootCmd.AddCommand(duplicatesCmd)
	duplicatesCmd.Flags().Float64Var(&duplicatesThreshold, "threshold", graph.DefaultDuplicateThreshold, "minimum cosine similarity to report")
}

func runDuplicates(cmd *cobra.Command, args []string) error {
	svc, closer, err := buildService(context.Background())
	if err != nil {
		return err
	}
	defer closer()

	pairs, err := svc.GetDuplicateContent(context.Background(), duplicatesThreshold)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		fmt.Println("No duplicates found.")
		return nil
	}
	for _, p := range pairs {
		fmt.Printf("[%.4f] %s <-> %s\n", p.Similarity, p.A, p.B)
	}
	return nil
}
