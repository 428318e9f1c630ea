package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vmunix/recarr/internal/cache"
)

var scraperCache bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Run-cache management",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached keys",
	RunE:  runCacheList,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache size and expiry",
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all cached entries",
	RunE:  runCacheClear,
}

var cacheCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a consistency check on the cache database",
	RunE:  runCacheCheck,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.PersistentFlags().BoolVar(&scraperCache, "scraper", false, "Operate on the scraper cache instead of the API cache")
	cacheCmd.AddCommand(cacheListCmd, cacheStatsCmd, cacheClearCmd, cacheCheckCmd)
}

// openCache opens the selected cache as enabled so the maintenance
// commands work regardless of the run configuration.
func openCache() (*cache.RunCache, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	purpose := cache.PurposeAPI
	if scraperCache {
		purpose = cache.PurposeScraper
	}
	return cache.Open(cfg.Cache.Dir, purpose, true)
}

func runCacheList(cmd *cobra.Command, args []string) error {
	rc, err := openCache()
	if err != nil {
		return err
	}
	defer rc.Close()

	keys, err := rc.Keys()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Println("Cache is empty.")
		return nil
	}
	for _, k := range keys {
		fmt.Println(k)
	}
	return nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	rc, err := openCache()
	if err != nil {
		return err
	}
	defer rc.Close()

	keys, err := rc.Keys()
	if err != nil {
		return err
	}
	_, _, bytesUsed := rc.Stats()
	fmt.Printf("Entries:    %d\n", len(keys))
	fmt.Printf("Disk usage: %s\n", humanize.IBytes(uint64(bytesUsed)))
	fmt.Printf("Expires:    %s\n", rc.ExpiresAt().Format("2006-01-02 15:04:05"))
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	rc, err := openCache()
	if err != nil {
		return err
	}
	defer rc.Close()

	n, err := rc.Clear()
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d entries.\n", n)
	return nil
}

func runCacheCheck(cmd *cobra.Command, args []string) error {
	rc, err := openCache()
	if err != nil {
		return err
	}
	defer rc.Close()

	warnings, err := rc.Check()
	if err != nil {
		return err
	}
	if len(warnings) == 0 {
		fmt.Println("Cache is consistent.")
		return nil
	}
	for _, w := range warnings {
		fmt.Printf("warning: %s\n", w)
	}
	return fmt.Errorf("cache check reported %d warnings", len(warnings))
}
