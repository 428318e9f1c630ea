// Package report renders the end-of-run summary tables and their TSV
// exports: what was snatched, what was skipped and why, and what failed.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/vmunix/recarr/internal/search"
	"github.com/vmunix/recarr/internal/snatch"
)

// placeholder fills cells with no value, such as the track column of an
// album rec.
const placeholder = "-"

var (
	snatchedHeader = []string{"Type", "Context", "Artist", "Release", "Track Rec", "Torrent ID", "Media", "Size", "FL Token", "Path"}
	skippedHeader  = []string{"Type", "Context", "Artist", "Release", "Track Rec", "Torrent ID", "Skip Reason"}
	failedHeader   = []string{"Permalink", "Release MBID", "Failure Reason"}
)

// Report holds the raw summary rows for one run.
type Report struct {
	Snatched [][]string
	Skipped  [][]string
	Failed   [][]string
}

// Build assembles the report from the pipeline items and the executor
// results. baseSite is the index site root used for permalinks.
func Build(items []*search.Item, results []snatch.Result, baseSite string) *Report {
	r := &Report{}

	for _, it := range items {
		if it.Skip != search.SkipNone {
			r.Skipped = append(r.Skipped, skippedRow(it))
		}
	}
	for _, res := range results {
		if res.Err != nil {
			r.Failed = append(r.Failed, failedRow(res, baseSite))
			continue
		}
		r.Snatched = append(r.Snatched, snatchedRow(res))
	}
	return r
}

func trackCell(it *search.Item) string {
	if name := it.TrackName(); name != "" {
		return name
	}
	return placeholder
}

func torrentIDCell(it *search.Item) string {
	if it.Match == nil {
		return placeholder
	}
	return strconv.FormatInt(it.Match.TorrentID, 10)
}

func skippedRow(it *search.Item) []string {
	return []string{
		string(it.Rec.Kind),
		string(it.Rec.Context),
		it.Rec.Artist,
		it.ReleaseName,
		trackCell(it),
		torrentIDCell(it),
		it.Skip.Description(),
	}
}

func snatchedRow(res snatch.Result) []string {
	it := res.Item
	token := "no"
	if res.TokenUsed {
		token = "yes"
	}
	return []string{
		string(it.Rec.Kind),
		string(it.Rec.Context),
		it.Rec.Artist,
		it.ReleaseName,
		trackCell(it),
		strconv.FormatInt(it.Match.TorrentID, 10),
		string(it.Match.Media),
		humanize.IBytes(uint64(it.Match.Size)),
		token,
		res.Path,
	}
}

func failedRow(res snatch.Result, baseSite string) []string {
	it := res.Item
	mbid := it.ReleaseMBID
	if mbid == "" {
		mbid = placeholder
	}
	return []string{
		it.Match.PermalinkURL(baseSite),
		mbid,
		string(res.Failure),
	}
}

// Render writes the three summary tables to w. Empty sections are noted in
// one line instead of an empty table.
func (r *Report) Render(w io.Writer) {
	renderSection(w, "Snatched Recs", snatchedHeader, r.Snatched)
	renderSection(w, "Unsnatched / Skipped Recs", skippedHeader, r.Skipped)
	renderSection(w, "Failed Downloads", failedHeader, r.Failed)
}

func renderSection(w io.Writer, title string, header []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintf(w, "%s: none\n", title)
		return
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle(title)

	hdr := make(table.Row, len(header))
	for i, h := range header {
		hdr[i] = h
	}
	tw.AppendHeader(hdr)
	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, cell := range row {
			tr[i] = cell
		}
		tw.AppendRow(tr)
	}
	fmt.Fprintln(w, tw.Render())
}

// WriteTSV exports each non-empty section as a TSV file under dir.
func (r *Report) WriteTSV(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating summary directory: %w", err)
	}
	sections := []struct {
		name   string
		header []string
		rows   [][]string
	}{
		{"snatched.tsv", snatchedHeader, r.Snatched},
		{"skipped.tsv", skippedHeader, r.Skipped},
		{"failed.tsv", failedHeader, r.Failed},
	}
	for _, s := range sections {
		if len(s.rows) == 0 {
			continue
		}
		if err := writeTSVFile(filepath.Join(dir, s.name), s.header, s.rows); err != nil {
			return err
		}
	}
	return nil
}

func writeTSVFile(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	cw.Comma = '\t'

	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.ReplaceAll(h, " ", "_")
	}
	if err := cw.Write(cols); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
