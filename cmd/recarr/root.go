package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vmunix/recarr/internal/config"
)

var version = "dev"

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "recarr",
	Short: "Search, resolve and snatch recommended releases",
	Long: `recarr - music recommendation acquisition engine

Resolves scraped recommendations against a Gazelle-style torrent index
through a ranked list of format preferences, keeps downloads within the
account's ratio budget, and snatches the matches.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: discover)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("recarr {{.Version}}\n")
}

// loadConfig loads the configured or discovered config file.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		discovered, err := config.Discover()
		if err != nil {
			return nil, err
		}
		path = discovered
	}
	return config.Load(path)
}

// setupLogger builds the process logger at the effective level.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func printConfigErrors(e *config.Error) {
	if len(e.Missing) > 0 {
		fmt.Println("Missing environment variables:")
		for _, m := range e.Missing {
			fmt.Printf("  - %s\n", m)
		}
		fmt.Println()
	}
	if len(e.Errors) > 0 {
		fmt.Println("Validation errors:")
		for _, v := range e.Errors {
			fmt.Printf("  - %s\n", v)
		}
	}
}
