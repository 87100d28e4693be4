package main

import (
	"context"
	"fmt"
	"log/slog"

	"assetfs/internal/database"
	"assetfs/internal/utils"
	"github.com/spf13/cobra"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Write the resolved asset table into a SQLite database",
	Long: `Manifest walks every search root, applies shadowing, and records the
winning entry per key (source, priority, compression method, size) into
a SQLite database so external tooling can query the asset namespace
without touching the archives.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		table, err := buildTable()
		if err != nil {
			return err
		}
		defer table.Close()

		entries, err := table.Entries()
		if err != nil {
			return fmt.Errorf("listing assets: %w", err)
		}

		db, err := database.NewDatabase(database.DefaultDatabaseOptions(cfg.Database))
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		if err := database.NewManifestWriter(db).Write(ctx, entries); err != nil {
			return fmt.Errorf("writing manifest: %w", err)
		}

		slog.Info("Manifest written",
			"database", cfg.Database,
			"assets", utils.Number(int64(len(entries))))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(manifestCmd)
}
