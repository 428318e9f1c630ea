package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vmunix/recarr/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configTestCmd = &cobra.Command{
	Use:   "test [path]",
	Short: "Validate configuration file",
	Long:  "Validates config.toml syntax, required fields, preference entries, and environment variable substitution.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigTest,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configTestCmd, configShowCmd)
}

func runConfigTest(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		configPath = args[0]
	}

	cfg, err := loadConfig()
	if err != nil {
		var configErr *config.Error
		if errors.As(err, &configErr) {
			printConfigErrors(configErr)
			return fmt.Errorf("configuration invalid")
		}
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Printf("Preferences: %d\n", len(cfg.Search.Preferences))
	fmt.Println("Configuration valid!")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("log_level:                %s\n", cfg.LogLevel)
	fmt.Printf("index.user_id:            %d\n", cfg.Index.UserID)
	fmt.Printf("cache.dir:                %s\n", cfg.Cache.Dir)
	fmt.Printf("cache.api:                %t\n", cfg.Cache.API)
	fmt.Printf("snatch.enabled:           %t\n", cfg.Snatch.Enabled)
	fmt.Printf("snatch.directory:         %s\n", cfg.Snatch.Directory)
	fmt.Printf("snatch.use_fl_tokens:     %t\n", cfg.Snatch.UseFLTokens)
	fmt.Printf("search.max_size_gb:       %g\n", cfg.Search.MaxSizeGB)
	fmt.Printf("search.min_allowed_ratio: %g\n", cfg.Search.MinAllowedRatio)

	prefs, err := cfg.FormatPreferences()
	if err != nil {
		return err
	}
	fmt.Println("\nPreference order:")
	fmt.Print(prefs)
	return nil
}
