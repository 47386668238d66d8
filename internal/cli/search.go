package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	searchN      int
	searchFolder string
	searchSource string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a one-off semantic search against the vector repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVarP(&searchN, "n", "n", 10, "number of results")
	searchCmd.Flags().StringVar(&searchFolder, "folder", "", "restrict results to one folder (exact match)")
	searchCmd.Flags().StringVar(&searchSource, "source", "", "restrict results to one configured source")
}

func runSearch(cmd *cobra.Command, args []string) error {
	svc, closer, err := buildService(context.Background())
	if err != nil {
		return err
	}
	defer closer()

	hits, err := svc.SemanticSearch(context.Background(), args[0], searchN, searchFolder, searchSource, nil)
	if err != nil {
		return err
	}

	if len(hits) == 0 {
		fmt.Println("No results.")
		return nil
	}
	for i, h := range hits {
		fmt.Printf("%d. [%.3f] %s/%s\n", i+1, h.Similarity, h.Metadata["source_id"], h.Metadata["relative_path"])
		fmt.Printf("   %s\n", truncate(h.Text, 160))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
