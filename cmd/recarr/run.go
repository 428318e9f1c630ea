package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vmunix/recarr/internal/account"
	"github.com/vmunix/recarr/internal/budget"
	"github.com/vmunix/recarr/internal/cache"
	"github.com/vmunix/recarr/internal/config"
	"github.com/vmunix/recarr/internal/history"
	"github.com/vmunix/recarr/internal/recs"
	"github.com/vmunix/recarr/internal/report"
	"github.com/vmunix/recarr/internal/search"
	"github.com/vmunix/recarr/internal/snatch"
	"github.com/vmunix/recarr/pkg/gazelle"
	"github.com/vmunix/recarr/pkg/lastfm"
	"github.com/vmunix/recarr/pkg/musicbrainz"
)

var (
	recsFile   string
	summaryDir string
	dryRun     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Search the index for recommendations and snatch matches",
	Long: `Loads a recommendation file, resolves each entry against the index
through the ranked format preferences, trims the matches to the account's
download budget, and snatches the rest.

With --dry-run the search and budget selection run in full but nothing is
downloaded.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&recsFile, "recs", "", "Recommendation JSON file (required)")
	runCmd.Flags().StringVar(&summaryDir, "summary-dir", "", "Directory for TSV summary exports")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Search and select but do not snatch")
	runCmd.MarkFlagRequired("recs")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := setupLogger(cfg)
	ctx := cmd.Context()

	byKind, err := recs.LoadFile(recsFile)
	if err != nil {
		return err
	}
	albums, tracks := byKind[recs.KindAlbum], byKind[recs.KindTrack]
	if len(albums)+len(tracks) == 0 {
		log.Warn("recommendation file holds no entries, nothing to do", "path", recsFile)
		return nil
	}

	prefs, err := cfg.ParsedPreferences()
	if err != nil {
		return err
	}

	rc, err := cache.Open(cfg.Cache.Dir, cache.PurposeAPI, cfg.Cache.API, cache.WithLogger(log))
	if err != nil {
		return fmt.Errorf("opening run cache: %w", err)
	}
	defer rc.Close()

	index := gazelle.New(cfg.Index.APIKey, cfg.Index.Throttle(), cfg.Index.MaxRetries,
		cfg.Index.RetryWait(), rc, gazelle.WithBaseURL(indexBaseURL(cfg)), gazelle.WithLogger(log))
	recMeta := lastfm.New(cfg.LastFM.APIKey, cfg.LastFM.Throttle(), cfg.LastFM.MaxRetries,
		cfg.LastFM.RetryWait(), rc, lastfm.WithLogger(log))
	registry := musicbrainz.New(cfg.MusicBrainz.Throttle(), cfg.MusicBrainz.MaxRetries,
		cfg.MusicBrainz.RetryWait(), rc, musicbrainz.WithLogger(log))

	snap, err := account.Fetch(ctx, index, cfg.Index.UserID, log)
	if err != nil {
		return fmt.Errorf("fetching account snapshot: %w", err)
	}
	maxAllowed := snap.MaxAllowedBytes(cfg.Search.MinAllowedRatio)
	log.Info("run budget computed", "max_allowed_bytes", maxAllowed,
		"ratio", snap.Profile.Ratio, "tokens", snap.Profile.Tokens)

	opts, err := searchOptions(cfg, prefs)
	if err != nil {
		return err
	}
	pipeline, err := search.New(index, recMeta, registry, snap, opts, log)
	if err != nil {
		return err
	}

	store, err := history.Open(cfg.History.Path, log)
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer store.Close()
	runID, err := store.StartRun(len(albums), len(tracks))
	if err != nil {
		return err
	}

	var items []*search.Item
	for _, batch := range [][]recs.Recommendation{albums, tracks} {
		batchItems, err := pipeline.Run(ctx, batch)
		if err != nil {
			return err
		}
		items = append(items, batchItems...)
	}

	accepted := budget.Select(items, maxAllowed, log)

	var results []snatch.Result
	switch {
	case dryRun:
		log.Info("dry run, skipping snatches", "accepted", len(accepted))
	case !cfg.Snatch.Enabled:
		log.Warn("snatching disabled in config, matches are reported only")
	case len(accepted) == 0:
		log.Warn("no matches to snatch, consider adjusting the search preferences")
	default:
		sc := gazelle.NewSnatchClient(cfg.Index.APIKey, cfg.Snatch.Throttle(),
			cfg.Snatch.UseFLTokens, rc,
			gazelle.WithBaseURL(indexBaseURL(cfg)), gazelle.WithLogger(log))
		ex := snatch.NewExecutor(sc, cfg.Snatch.Directory, cfg.Snatch.UseFLTokens,
			snap.Profile.Tokens, log)
		results, err = ex.Run(ctx, accepted)
		if err != nil {
			return err
		}
	}

	rep := report.Build(items, results, index.SiteURL())
	rep.Render(os.Stdout)
	if summaryDir != "" {
		if err := rep.WriteTSV(summaryDir); err != nil {
			log.Error("writing summary TSVs failed", "error", err)
		}
	}

	return recordRun(store, runID, items, results)
}

func indexBaseURL(cfg *config.Config) string {
	if cfg.Index.BaseURL != "" {
		return cfg.Index.BaseURL
	}
	return "https://redacted.sh/ajax.php"
}

func searchOptions(cfg *config.Config, prefs []gazelle.Preference) (search.Options, error) {
	opts := search.Options{
		Preferences:       prefs,
		MaxSizeBytes:      cfg.Search.MaxSizeBytes(),
		SkipPriorSnatches: cfg.Search.SkipPriorSnatches,
		AllowLibraryItems: cfg.Search.AllowLibraryItems,
	}
	var err error
	if opts.Year, err = search.ParseFieldMode(cfg.Search.Year); err != nil {
		return opts, err
	}
	if opts.ReleaseType, err = search.ParseFieldMode(cfg.Search.ReleaseType); err != nil {
		return opts, err
	}
	if opts.RecordLabel, err = search.ParseFieldMode(cfg.Search.RecordLabel); err != nil {
		return opts, err
	}
	if opts.CatalogueNumber, err = search.ParseFieldMode(cfg.Search.CatalogueNumber); err != nil {
		return opts, err
	}
	return opts, nil
}

// recordRun writes one outcome row per item plus the run totals.
func recordRun(store *history.Store, runID int64, items []*search.Item, results []snatch.Result) error {
	resultByItem := make(map[*search.Item]snatch.Result, len(results))
	for _, r := range results {
		resultByItem[r.Item] = r
	}

	var snatched, skipped, failed int
	var bytesSnatched int64
	for _, it := range items {
		o := history.Outcome{
			RunID:   runID,
			Kind:    string(it.Rec.Kind),
			Context: string(it.Rec.Context),
			Artist:  it.Rec.Artist,
			Release: it.ReleaseName,
			Track:   it.TrackName(),
		}
		if it.Match != nil {
			o.TorrentID = it.Match.TorrentID
		}
		switch res, ok := resultByItem[it]; {
		case ok && res.Err != nil:
			failed++
			o.Status = history.StatusFailed
			o.Detail = string(res.Failure)
		case ok:
			snatched++
			bytesSnatched += it.Match.Size
			o.Status = history.StatusSnatched
			o.TokenUsed = res.TokenUsed
			o.Path = res.Path
		case it.Skip != search.SkipNone:
			skipped++
			o.Status = history.StatusSkipped
			o.Detail = string(it.Skip)
		default:
			// Matched but not snatched (dry run or snatching disabled).
			o.Status = history.StatusSkipped
			o.Detail = "not_snatched"
			skipped++
		}
		if err := store.RecordOutcome(o); err != nil {
			return err
		}
	}
	return store.FinishRun(runID, snatched, skipped, failed, bytesSnatched)
}
