package main

import (
	"fmt"
	"os"

	"assetfs/internal/asset"
	"assetfs/internal/config"
	"assetfs/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfg     *config.Config
	cfgFile string

	dirs       []string
	zips       []string
	dbPath     string
	logLevel   string
	logFormat  string
	noProgress bool
)

var rootCmd = &cobra.Command{
	Use:   "assetfs",
	Short: "Virtual asset resolution over directories and ZIP archives",
	Long: `assetfs maps logical asset keys to byte streams that may live as loose
files on disk or as entries inside ZIP archives, possibly compressed.

Search roots are consulted in ascending priority order, so a user override
directory can transparently shadow a bundled archive. Roots come from the
config file (assetfs.yaml) or from the --dir/--zip flags; flag roots are
searched before configured ones, directories before archives.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		if cmd.Flags().Changed("database") {
			cfg.Database = dbPath
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			cfg.LogFormat = logFormat
		}

		return logging.Setup(cfg.LogLevel, cfg.LogFormat, cfg.LogDir)
	},
}

// buildTable registers every search root eagerly, flag roots first at
// negative priorities so they shadow the configured ones.
func buildTable() (*asset.Table, error) {
	table := asset.NewTable()

	priority := -(len(dirs) + len(zips))
	for _, dir := range dirs {
		if err := table.AddDirectory(priority, dir); err != nil {
			table.Close()
			return nil, err
		}
		priority++
	}
	for _, archive := range zips {
		if err := table.AddArchive(priority, archive); err != nil {
			table.Close()
			return nil, err
		}
		priority++
	}

	for _, root := range cfg.Roots {
		var err error
		switch root.Kind {
		case "dir":
			err = table.AddDirectory(root.Priority, root.Path)
		case "zip":
			err = table.AddArchive(root.Priority, root.Path)
		}
		if err != nil {
			table.Close()
			return nil, err
		}
	}

	return table, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is assetfs.yaml in pwd)")
	rootCmd.PersistentFlags().StringSliceVar(&dirs, "dir", []string{}, "directory search root, searched before configured roots (repeatable)")
	rootCmd.PersistentFlags().StringSliceVar(&zips, "zip", []string{}, "ZIP archive search root, searched before configured roots (repeatable)")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "database", "d", "", "manifest database file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json)")
	rootCmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "disable progress bar")
}
