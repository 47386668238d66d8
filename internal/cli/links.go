package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	linksN             int
	linksMinSimilarity float64
	mostLinkedN        int
)

// linksCmd is the parent for the two link-analytics subcommands that need
// an argument shape cobra can't flatten onto one command: suggestions for a
// single file, and a ranking across every file.
var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "Link-graph analytics: suggestions and most-linked ranking",
}

var linksSuggestCmd = &cobra.Command{
	Use:   "suggest <path>",
	Short: "Suggest outbound links for a file based on semantic similarity",
	Args:  cobra.ExactArgs(1),
	RunE:  runLinksSuggest,
}

var linksMostLinkedCmd = &cobra.Command{
	Use:   "most-linked",
	Short: "Rank files by inbound link count",
	RunE:  runLinksMostLinked,
}

func init() {
	rootCmd.AddCommand(linksCmd)
	linksCmd.AddCommand(linksSuggestCmd)
	linksCmd.AddCommand(linksMostLinkedCmd)

	linksSuggestCmd.Flags().IntVarP(&linksN, "n", "n", 5, "number of suggestions")
	linksSuggestCmd.Flags().Float64Var(&linksMinSimilarity, "min-similarity", 0, "minimum combined similarity score")

	linksMostLinkedCmd.Flags().IntVarP(&mostLinkedN, "n", "n", 20, "number of files to show")
}

func runLinksSuggest(cmd *cobra.Command, args []string) error {
	svc, closer, err := buildService(context.Background())
	if err != nil {
		return err
	}
	defer closer()

	candidates, err := svc.SuggestLinks(context.Background(), args[0], linksN, linksMinSimilarity)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		fmt.Println("No suggestions.")
		return nil
	}
	for _, c := range candidates {
		fmt.Printf("[%.3f] %s", c.Score, c.RelativePath)
		if c.HeaderContext != "" {
			fmt.Printf("  (%s)", c.HeaderContext)
		}
		fmt.Println()
	}
	return nil
}

func runLinksMostLinked(cmd *cobra.Command, args []string) error {
	svc, closer, err := buildService(context.Background())
	if err != nil {
		return err
	}
	defer closer()

	counts, err := svc.GetMostLinkedNotes(mostLinkedN)
	if err != nil {
		return err
	}
	for _, c := range counts {
		fmt.Printf("%4d  %s\n", c.Count, c.Title)
	}
	return nil
}
