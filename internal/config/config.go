package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Root describes one search root in the configuration file: where the
// assets live and the priority at which the root is consulted (lower is
// tried first).
type Root struct {
	Priority int    `mapstructure:"priority"`
	Kind     string `mapstructure:"kind"`
	Path     string `mapstructure:"path"`
}

type Config struct {
	Roots     []Root `mapstructure:"roots"`
	Database  string `mapstructure:"database"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	LogDir    string `mapstructure:"log_dir"`
}

// Load initializes and loads configuration from file
func Load(cfgFile string) (*Config, error) {
	// Set defaults
	viper.SetDefault("database", "assets.db")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "text")

	// Config file handling
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName("assetfs")
		viper.SetConfigType("yaml")
	}

	// Read config file (optional)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateRoots(cfg.Roots); err != nil {
		return nil, fmt.Errorf("invalid root configuration: %w", err)
	}

	return &cfg, nil
}

// validateRoots ensures every configured root names a path and a known
// source kind before any source construction is attempted.
func validateRoots(roots []Root) error {
	for i, root := range roots {
		if root.Path == "" {
			return fmt.Errorf("root %d has no path", i)
		}
		switch root.Kind {
		case "dir", "zip":
		default:
			return fmt.Errorf("root %d (%s) has unknown kind %q (want dir or zip)", i, root.Path, root.Kind)
		}
		if root.Priority < 0 {
			return fmt.Errorf("root %d (%s) has negative priority %d", i, root.Path, root.Priority)
		}
	}
	return nil
}
