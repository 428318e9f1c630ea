// Package search resolves recommendations against the torrent index: it
// pre-filters them against the account snapshot, recovers origin releases
// for track recs, optionally pulls refinement attributes from the metadata
// registry, and walks the ranked preference list until a candidate within
// the size cap is found.
package search

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vmunix/recarr/internal/recs"
	"github.com/vmunix/recarr/pkg/gazelle"
	"github.com/vmunix/recarr/pkg/lastfm"
	"github.com/vmunix/recarr/pkg/musicbrainz"
)

// ErrNoPreferences is returned when the pipeline is built without a ranked
// preference list.
var ErrNoPreferences = errors.New("no format preferences configured")

// ErrMixedKinds is returned when one batch mixes album and track recs.
var ErrMixedKinds = errors.New("all recommendations in a batch must share one kind")

// IndexBrowser is the subset of the index client the pipeline searches with.
type IndexBrowser interface {
	Browse(ctx context.Context, q gazelle.BrowseQuery) ([]gazelle.Group, error)
}

// RecMetadata resolves recommendation names to external ids and, for
// tracks, origin releases.
type RecMetadata interface {
	AlbumInfo(ctx context.Context, artist, album string) (*lastfm.AlbumInfo, error)
	TrackInfo(ctx context.Context, artist, track string) (*lastfm.TrackInfo, error)
}

// Registry is the metadata registry the refinement attributes come from.
type Registry interface {
	Release(ctx context.Context, mbid string) (*musicbrainz.Release, error)
	FindTrackOrigin(ctx context.Context, track, artistMBID, artistName string) (*musicbrainz.TrackOrigin, error)
}

// AccountView is the prior-snatch knowledge the filters consult.
// *account.Snapshot satisfies it.
type AccountView interface {
	HasSnatchedRelease(artist, release string) bool
	HasSnatchedTorrent(torrentID int64) bool
}

// Options carries the per-run search settings.
type Options struct {
	Preferences []gazelle.Preference

	// MaxSizeBytes caps candidate size. Zero means no cap.
	MaxSizeBytes int64

	SkipPriorSnatches bool
	AllowLibraryItems bool

	Year            FieldMode
	ReleaseType     FieldMode
	RecordLabel     FieldMode
	CatalogueNumber FieldMode
}

func (o Options) refinementsEnabled() bool {
	return o.Year.enabled() || o.ReleaseType.enabled() ||
		o.RecordLabel.enabled() || o.CatalogueNumber.enabled()
}

// Pipeline runs recommendations through resolution and index search. Not
// safe for concurrent use; it accumulates the torrent ids selected during
// the run so two recs cannot match the same torrent.
type Pipeline struct {
	index    IndexBrowser
	recMeta  RecMetadata
	registry Registry
	snapshot AccountView
	opts     Options
	log      *slog.Logger

	selected map[int64]struct{}
}

// New builds a pipeline. The preference list must be non-empty.
func New(index IndexBrowser, recMeta RecMetadata, registry Registry, snap AccountView, opts Options, log *slog.Logger) (*Pipeline, error) {
	if len(opts.Preferences) == 0 {
		return nil, ErrNoPreferences
	}
	if err := gazelle.ValidatePreferences(opts.Preferences); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		index:    index,
		recMeta:  recMeta,
		registry: registry,
		snapshot: snap,
		opts:     opts,
		log:      log.With("component", "search"),
		selected: make(map[int64]struct{}),
	}, nil
}

// SelectedTorrentIDs returns the torrent ids matched so far in this run.
func (p *Pipeline) SelectedTorrentIDs() map[int64]struct{} {
	return p.selected
}

// Run processes one batch of same-kind recommendations and returns an item
// per recommendation. Every returned item either carries a match or a
// terminal skip reason.
func (p *Pipeline) Run(ctx context.Context, batch []recs.Recommendation) ([]*Item, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	kind := batch[0].Kind
	for _, rec := range batch {
		if rec.Kind != kind {
			return nil, ErrMixedKinds
		}
	}

	start := time.Now()
	items := make([]*Item, 0, len(batch))
	for _, rec := range batch {
		it := NewItem(rec)
		p.process(ctx, it)
		items = append(items, it)
	}

	matched := 0
	for _, it := range items {
		if it.Matched() {
			matched++
		}
	}
	p.log.Info("batch searched", "kind", string(kind), "recs", len(batch),
		"matched", matched, "duration_ms", time.Since(start).Milliseconds())
	return items, nil
}

func (p *Pipeline) process(ctx context.Context, it *Item) {
	if !p.preFilter(it) {
		return
	}
	if it.Rec.Kind == recs.KindTrack {
		if !p.resolveTrackOrigin(ctx, it) {
			it.skip(SkipNoSourceRelease)
			return
		}
	}
	if p.opts.refinementsEnabled() {
		p.resolveRefinements(ctx, it)
		if missing := p.missingRequiredFields(it); len(missing) > 0 {
			p.log.Debug("required refinement fields unresolved",
				"artist", it.Rec.Artist, "release", it.ReleaseName, "fields", missing)
			it.skip(SkipUnresolvedFields)
			return
		}
	}
	p.searchPreferences(ctx, it)
	if it.Match == nil {
		if it.AboveMaxSizeSeen {
			it.skip(SkipAboveMaxSize)
		} else {
			it.skip(SkipNoMatchFound)
		}
		return
	}
	p.postFilter(it)
}

// preFilter rejects items the account snapshot already covers, and library
// items when those are disallowed. Returns false when the item was skipped.
func (p *Pipeline) preFilter(it *Item) bool {
	if p.opts.SkipPriorSnatches && p.snapshot.HasSnatchedRelease(it.Rec.Artist, it.ReleaseName) {
		p.log.Debug("skipping prior snatch", "artist", it.Rec.Artist, "release", it.ReleaseName)
		it.skip(SkipAlreadySnatched)
		return false
	}
	if !p.opts.AllowLibraryItems && it.Rec.Context == recs.ContextInLibrary {
		p.log.Debug("skipping in-library rec", "artist", it.Rec.Artist, "entity", it.Rec.Entity)
		it.skip(SkipContextFiltering)
		return false
	}
	return true
}

// resolveTrackOrigin recovers the release a track rec came from: first from
// the recommendation-metadata service, then from the registry's free-text
// recording search. Returns false when no origin release could be found.
func (p *Pipeline) resolveTrackOrigin(ctx context.Context, it *Item) bool {
	info, err := p.recMeta.TrackInfo(ctx, it.Rec.Artist, it.Rec.Entity)
	if err != nil {
		p.log.Debug("track info lookup failed", "artist", it.Rec.Artist,
			"track", it.Rec.Entity, "error", err)
		info = nil
	}
	if info != nil {
		it.ArtistMBID = info.ArtistMBID
		if info.Album != nil && info.Album.Title != "" {
			it.ReleaseName = info.Album.Title
			it.ReleaseMBID = info.Album.MBID
			return true
		}
	}

	origin, err := p.registry.FindTrackOrigin(ctx, it.Rec.Entity, it.ArtistMBID, it.Rec.Artist)
	if err != nil {
		p.log.Debug("registry track origin lookup failed", "artist", it.Rec.Artist,
			"track", it.Rec.Entity, "error", err)
		return false
	}
	if origin == nil || origin.ReleaseName == "" {
		return false
	}
	it.ReleaseName = origin.ReleaseName
	it.ReleaseMBID = origin.ReleaseMBID
	return true
}

// resolveRefinements fills the optional browse attributes from the registry.
// Failures leave the fields unresolved; the required-field check decides
// whether that is terminal.
func (p *Pipeline) resolveRefinements(ctx context.Context, it *Item) {
	if it.ReleaseMBID == "" && it.Rec.Kind == recs.KindAlbum {
		info, err := p.recMeta.AlbumInfo(ctx, it.Rec.Artist, it.Rec.Entity)
		if err != nil {
			p.log.Debug("album info lookup failed", "artist", it.Rec.Artist,
				"album", it.Rec.Entity, "error", err)
		} else if info != nil {
			it.ReleaseMBID = info.ReleaseMBID
		}
	}
	if it.ReleaseMBID == "" {
		p.log.Debug("no mbid to resolve refinements from",
			"artist", it.Rec.Artist, "release", it.ReleaseName)
		return
	}

	rel, err := p.registry.Release(ctx, it.ReleaseMBID)
	if err != nil {
		p.log.Debug("registry release lookup failed", "mbid", it.ReleaseMBID, "error", err)
		return
	}
	it.Refinements = Refinements{
		ReleaseType:     gazelle.ReleaseTypeValue(rel.PrimaryType),
		FirstYear:       rel.FirstReleaseYear,
		RecordLabel:     rel.Label,
		CatalogueNumber: rel.CatalogueNumber,
	}
}

func (p *Pipeline) missingRequiredFields(it *Item) []string {
	var missing []string
	if p.opts.Year == FieldRequired && it.Refinements.FirstYear == 0 {
		missing = append(missing, "year")
	}
	if p.opts.ReleaseType == FieldRequired && it.Refinements.ReleaseType == 0 {
		missing = append(missing, "release_type")
	}
	if p.opts.RecordLabel == FieldRequired && it.Refinements.RecordLabel == "" {
		missing = append(missing, "record_label")
	}
	if p.opts.CatalogueNumber == FieldRequired && it.Refinements.CatalogueNumber == "" {
		missing = append(missing, "catalogue_number")
	}
	return missing
}

func (p *Pipeline) browseQuery(it *Item, pref gazelle.Preference) gazelle.BrowseQuery {
	q := gazelle.BrowseQuery{
		Artist:   it.Rec.Artist,
		Release:  it.ReleaseName,
		Format:   pref.Format,
		Encoding: pref.Encoding,
		Media:    pref.Media,
	}
	if p.opts.Year.enabled() {
		q.FirstYear = it.Refinements.FirstYear
	}
	if p.opts.ReleaseType.enabled() {
		q.ReleaseType = it.Refinements.ReleaseType
	}
	if p.opts.RecordLabel.enabled() {
		q.RecordLabel = it.Refinements.RecordLabel
	}
	if p.opts.CatalogueNumber.enabled() {
		q.CatalogueNumber = it.Refinements.CatalogueNumber
	}
	return q
}

// searchPreferences walks the ranked preference list and records the first
// within-cap candidate. A browse failure for one preference is logged and
// treated as no results for that preference.
func (p *Pipeline) searchPreferences(ctx context.Context, it *Item) {
	for _, pref := range p.opts.Preferences {
		q := p.browseQuery(it, pref)
		groups, err := p.index.Browse(ctx, q)
		if err != nil {
			p.log.Error("browse failed, trying next preference",
				"artist", it.Rec.Artist, "release", it.ReleaseName,
				"preference", pref.Key(), "error", err)
			continue
		}
		for _, group := range groups {
			for i := range group.Torrents {
				t := group.Torrents[i]
				if p.opts.MaxSizeBytes > 0 && t.Size > p.opts.MaxSizeBytes {
					it.AboveMaxSizeSeen = true
					continue
				}
				p.log.Debug("match found", "artist", it.Rec.Artist,
					"release", it.ReleaseName, "torrent_id", t.TorrentID,
					"variant", t.PreferenceKey(), "preference", pref.Key())
				it.Match = &t
				return
			}
		}
	}
}

// postFilter drops a found candidate that duplicates another rec's match or
// a prior snatch.
func (p *Pipeline) postFilter(it *Item) {
	tid := it.Match.TorrentID
	if _, dup := p.selected[tid]; dup {
		it.skip(SkipDupeOfAnotherRec)
		return
	}
	if p.snapshot.HasSnatchedTorrent(tid) {
		it.skip(SkipAlreadySnatched)
		return
	}
	p.selected[tid] = struct{}{}
}
