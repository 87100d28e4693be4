package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"assetfs/internal/asset"
	"assetfs/internal/utils"
	"github.com/spf13/cobra"
)

var extractOut string

var extractCmd = &cobra.Command{
	Use:   "extract [KEY...]",
	Short: "Copy resolved assets out to a directory tree",
	Long: `Extract resolves each given key (or, with no arguments, every key any
search root carries) and writes the decoded bytes under the output
directory, recreating the key's path structure. Compressed archive
entries are decompressed on the way out.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()

		table, err := buildTable()
		if err != nil {
			return err
		}
		defer table.Close()

		keys := args
		if len(keys) == 0 {
			entries, err := table.Entries()
			if err != nil {
				return fmt.Errorf("listing assets: %w", err)
			}
			for _, e := range entries {
				keys = append(keys, e.Key)
			}
		}

		progress := utils.NewProgress(len(keys), !noProgress)
		var written int64
		for i, key := range keys {
			progress.Update(i, key)
			n, err := extractOne(table, key, extractOut)
			if err != nil {
				return err
			}
			written += n
		}
		progress.Update(len(keys), "done")
		progress.Finish()

		slog.Info("Extraction complete",
			"assets", utils.Number(int64(len(keys))),
			"bytes", utils.Bytes(written),
			"duration", utils.Duration(time.Since(start)))
		return nil
	},
}

func extractOne(table *asset.Table, key, out string) (int64, error) {
	src, err := table.Open(key)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	target := filepath.Join(out, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("creating output directory for %s: %w", key, err)
	}

	dst, err := os.Create(target)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", target, err)
	}
	defer dst.Close()

	n, err := io.Copy(dst, src)
	if err != nil {
		return n, fmt.Errorf("extracting %s: %w", key, err)
	}
	return n, nil
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringVarP(&extractOut, "out", "o", "extracted", "output directory")
}
