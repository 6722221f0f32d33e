// Package cli implements the assetlist commands.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/star/assetlist/internal/config"
)

var (
	upstreamFlag string
	logLevelFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "assetlist",
	Short: "Browse the space-object catalog",
	Long:  "Serves a filterable, sortable space-object catalog browser, or prints one page of it to the terminal.",
}

func init() {
	RootCmd.PersistentFlags().StringVar(&upstreamFlag, "upstream", "", "Catalog API base URL (default: $ASSETLIST_UPSTREAM_URL)")
	RootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn or error (default: $ASSETLIST_LOG_LEVEL)")
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig() (config.Config, error) {
	var cfg config.Config
	if err := config.ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	if upstreamFlag != "" {
		cfg.Upstream.BaseURL = upstreamFlag
	}
	if logLevelFlag != "" {
		cfg.Log.Level = logLevelFlag
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
