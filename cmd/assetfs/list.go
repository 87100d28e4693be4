package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"assetfs/internal/utils"
	"github.com/spf13/cobra"
)

var listVerbose bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every resolvable asset key across all search roots",
	Long: `List enumerates the keys reachable through the registered search roots,
with shadowing applied: when several roots carry the same key, only the
winning (highest-priority) entry is shown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := buildTable()
		if err != nil {
			return err
		}
		defer table.Close()

		entries, err := table.Entries()
		if err != nil {
			return fmt.Errorf("listing assets: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		var total int64
		for _, e := range entries {
			total += e.UncompressedSize
			if listVerbose {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					e.Key, utils.Bytes(e.UncompressedSize), e.Method, e.Priority, e.Source)
			} else {
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.Key, utils.Bytes(e.UncompressedSize), e.Method)
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "%s assets, %s\n", utils.Number(int64(len(entries))), utils.Bytes(total))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVarP(&listVerbose, "verbose", "v", false, "also show the priority and search root claiming each key")
}
