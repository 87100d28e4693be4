package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	slogmulti "github.com/samber/slog-multi"
)

// Setup configures the process-default slog logger. Console output goes
// to stderr as colored text (tint) or JSON depending on format. When
// logDir is non-empty, a timestamped JSON log file in that directory
// receives a copy of every record.
func Setup(level, format, logDir string) error {
	lvl := parseLevel(level)

	var console slog.Handler
	if format == "json" {
		console = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	} else {
		console = tint.NewHandler(os.Stderr, &tint.Options{Level: lvl})
	}

	if logDir == "" {
		slog.SetDefault(slog.New(console))
		return nil
	}

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	name := fmt.Sprintf("assetfs_%s.log", time.Now().Format("20060102_150405"))
	file, err := os.OpenFile(filepath.Join(logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("creating log file: %w", err)
	}

	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(slogmulti.Fanout(console, fileHandler)))
	return nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
