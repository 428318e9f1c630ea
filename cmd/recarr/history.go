package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/vmunix/recarr/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect past runs",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show every outcome of one run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of runs to list")
	historyCmd.AddCommand(historyListCmd, historyShowCmd)
}

func openHistory() (*history.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return history.Open(cfg.History.Path, setupLogger(cfg))
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs(historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "Started", "Albums", "Tracks", "Snatched", "Skipped", "Failed", "Downloaded"})
	for _, r := range runs {
		tw.AppendRow(table.Row{
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.AlbumRecs, r.TrackRecs,
			r.Snatched, r.Skipped, r.Failed,
			humanize.IBytes(uint64(r.BytesSnatched)),
		})
	}
	tw.Render()
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	runID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid run id %q", args[0])
	}

	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	outcomes, err := store.Outcomes(runID)
	if err != nil {
		return err
	}
	if len(outcomes) == 0 {
		fmt.Printf("No outcomes recorded for run %d.\n", runID)
		return nil
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Kind", "Artist", "Release", "Track", "Torrent ID", "Status", "Detail", "Token"})
	for _, o := range outcomes {
		tid := "-"
		if o.TorrentID != 0 {
			tid = strconv.FormatInt(o.TorrentID, 10)
		}
		token := ""
		if o.TokenUsed {
			token = "yes"
		}
		tw.AppendRow(table.Row{o.Kind, o.Artist, o.Release, o.Track, tid, o.Status, o.Detail, token})
	}
	tw.Render()
	return nil
}
