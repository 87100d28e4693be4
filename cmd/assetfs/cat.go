package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var catCmd = &cobra.Command{
	Use:   "cat KEY [KEY...]",
	Short: "Resolve asset keys and stream their contents to stdout",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := buildTable()
		if err != nil {
			return err
		}
		defer table.Close()

		for _, key := range args {
			f, err := table.Open(key)
			if err != nil {
				return err
			}
			_, err = io.Copy(os.Stdout, f)
			f.Close()
			if err != nil {
				return fmt.Errorf("reading %s: %w", key, err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catCmd)
}
