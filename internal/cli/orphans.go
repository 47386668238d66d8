package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var orphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "List files that no other file links to",
	RunE:  runOrphans,
}

func init() {
	rootCmd.AddCommand(orphansCmd)
}

func runOrphans(cmd *cobra.Command, args []string) error {
	svc, closer, err := buildService(context.Background())
	if err != nil {
		return err
	}
	defer closer()

	orphans, err := svc.GetOrphanedNotes()
	if err != nil {
		return err
	}
	if len(orphans) == 0 {
		fmt.Println("No orphaned files.")
		return nil
	}
	for _, o := range orphans {
		fmt.Println(o)
	}
	return nil
}
