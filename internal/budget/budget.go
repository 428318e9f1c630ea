// Package budget selects which matched items fit the run's download
// allowance. Matches are taken largest-first so limited-use freeleech
// tokens, spent in the same order, cover the most volume.
package budget

import (
	"log/slog"
	"sort"

	"github.com/vmunix/recarr/internal/search"
)

// Select returns the matched items to snatch, in descending size order,
// whose cumulative size stays within maxAllowed bytes. Items that do not
// fit are marked with the ratio-limit skip reason but later, smaller items
// are still tried against the remaining headroom. The greedy pass keeps the
// budget honored; it does not try to maximize utilization.
func Select(items []*search.Item, maxAllowed int64, log *slog.Logger) []*search.Item {
	if log == nil {
		log = slog.Default()
	}

	matched := make([]*search.Item, 0, len(items))
	for _, it := range items {
		if it.Matched() {
			matched = append(matched, it)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Match.Size > matched[j].Match.Size
	})

	var accepted []*search.Item
	var total int64
	for _, it := range matched {
		size := it.Match.Size
		if total+size <= maxAllowed {
			accepted = append(accepted, it)
			total += size
			continue
		}
		log.Info("skipping snatch, would drop ratio below the configured floor",
			"torrent_id", it.Match.TorrentID, "size", size,
			"accepted_total", total, "max_allowed", maxAllowed)
		it.MarkSkipped(search.SkipMinRatioLimit)
	}

	log.Debug("budget selection complete",
		"matched", len(matched), "accepted", len(accepted), "total", total)
	return accepted
}
