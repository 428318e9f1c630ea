package search_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vmunix/recarr/internal/recs"
	"github.com/vmunix/recarr/internal/search"
	"github.com/vmunix/recarr/internal/search/mocks"
	"github.com/vmunix/recarr/pkg/gazelle"
	"github.com/vmunix/recarr/pkg/lastfm"
	"github.com/vmunix/recarr/pkg/musicbrainz"
)

// testLogger returns a discard logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const gb = int64(1024 * 1024 * 1024)

var (
	prefWeb = gazelle.Preference{Format: gazelle.FormatFLAC, Encoding: gazelle.EncodingLossless, Media: gazelle.MediaWEB}
	prefMP3 = gazelle.Preference{Format: gazelle.FormatMP3, Encoding: gazelle.Encoding320, Media: gazelle.MediaWEB}
)

type deps struct {
	index    *mocks.MockIndexBrowser
	recMeta  *mocks.MockRecMetadata
	registry *mocks.MockRegistry
	snapshot *mocks.MockAccountView
}

func newDeps(t *testing.T) deps {
	ctrl := gomock.NewController(t)
	return deps{
		index:    mocks.NewMockIndexBrowser(ctrl),
		recMeta:  mocks.NewMockRecMetadata(ctrl),
		registry: mocks.NewMockRegistry(ctrl),
		snapshot: mocks.NewMockAccountView(ctrl),
	}
}

// cleanAccount stubs a snapshot with no prior snatches.
func (d deps) cleanAccount() {
	d.snapshot.EXPECT().HasSnatchedRelease(gomock.Any(), gomock.Any()).Return(false).AnyTimes()
	d.snapshot.EXPECT().HasSnatchedTorrent(gomock.Any()).Return(false).AnyTimes()
}

func (d deps) pipeline(t *testing.T, opts search.Options) *search.Pipeline {
	t.Helper()
	if opts.Preferences == nil {
		opts.Preferences = []gazelle.Preference{prefWeb}
	}
	p, err := search.New(d.index, d.recMeta, d.registry, d.snapshot, opts, testLogger())
	require.NoError(t, err)
	return p
}

func groupWith(torrents ...gazelle.Torrent) []gazelle.Group {
	return []gazelle.Group{{GroupID: 1, GroupName: "Amber", Artist: "Autechre", Torrents: torrents}}
}

func albumRec() recs.Recommendation {
	return recs.Recommendation{Artist: "Autechre", Entity: "Amber", Kind: recs.KindAlbum}
}

func TestPipeline_AlbumMatch(t *testing.T) {
	d := newDeps(t)
	d.cleanAccount()
	d.index.EXPECT().
		Browse(gomock.Any(), gomock.Any()).
		Return(groupWith(gazelle.Torrent{TorrentID: 101, Size: 1 * gb}), nil)

	p := d.pipeline(t, search.Options{MaxSizeBytes: 5 * gb, SkipPriorSnatches: true})
	items, err := p.Run(context.Background(), []recs.Recommendation{albumRec()})
	require.NoError(t, err)
	require.Len(t, items, 1)

	require.True(t, items[0].Matched())
	assert.Equal(t, int64(101), items[0].Match.TorrentID)
	assert.Contains(t, p.SelectedTorrentIDs(), int64(101))
}

func TestPipeline_PreferenceFallbackOnBrowseError(t *testing.T) {
	d := newDeps(t)
	d.cleanAccount()

	// First preference's browse call fails; the search moves on instead of
	// propagating the error.
	first := d.index.EXPECT().
		Browse(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("transport down"))
	d.index.EXPECT().
		Browse(gomock.Any(), gomock.Any()).
		Return(groupWith(gazelle.Torrent{TorrentID: 202, Size: 1 * gb}), nil).
		After(first)

	p := d.pipeline(t, search.Options{
		Preferences:  []gazelle.Preference{prefWeb, prefMP3},
		MaxSizeBytes: 5 * gb,
	})
	items, err := p.Run(context.Background(), []recs.Recommendation{albumRec()})
	require.NoError(t, err)
	require.True(t, items[0].Matched())
	assert.Equal(t, int64(202), items[0].Match.TorrentID)
}

func TestPipeline_AboveMaxSize(t *testing.T) {
	d := newDeps(t)
	d.cleanAccount()
	d.index.EXPECT().
		Browse(gomock.Any(), gomock.Any()).
		Return(groupWith(gazelle.Torrent{TorrentID: 1, Size: 10 * gb}), nil).
		Times(2)

	p := d.pipeline(t, search.Options{
		Preferences:  []gazelle.Preference{prefWeb, prefMP3},
		MaxSizeBytes: 5 * gb,
	})
	items, err := p.Run(context.Background(), []recs.Recommendation{albumRec()})
	require.NoError(t, err)

	assert.False(t, items[0].Matched())
	assert.Equal(t, search.SkipAboveMaxSize, items[0].Skip)
}

func TestPipeline_OversizeThenSmallerInSameResult(t *testing.T) {
	d := newDeps(t)
	d.cleanAccount()
	d.index.EXPECT().
		Browse(gomock.Any(), gomock.Any()).
		Return(groupWith(
			gazelle.Torrent{TorrentID: 1, Size: 10 * gb},
			gazelle.Torrent{TorrentID: 2, Size: 2 * gb},
		), nil)

	p := d.pipeline(t, search.Options{MaxSizeBytes: 5 * gb})
	items, err := p.Run(context.Background(), []recs.Recommendation{albumRec()})
	require.NoError(t, err)

	require.True(t, items[0].Matched())
	assert.Equal(t, int64(2), items[0].Match.TorrentID)
}

func TestPipeline_NoMatchFound(t *testing.T) {
	d := newDeps(t)
	d.cleanAccount()
	d.index.EXPECT().Browse(gomock.Any(), gomock.Any()).Return(nil, nil)

	p := d.pipeline(t, search.Options{MaxSizeBytes: 5 * gb})
	items, err := p.Run(context.Background(), []recs.Recommendation{albumRec()})
	require.NoError(t, err)

	assert.Equal(t, search.SkipNoMatchFound, items[0].Skip)
}

func TestPipeline_NoSizeCap(t *testing.T) {
	d := newDeps(t)
	d.cleanAccount()
	d.index.EXPECT().
		Browse(gomock.Any(), gomock.Any()).
		Return(groupWith(gazelle.Torrent{TorrentID: 7, Size: 500 * gb}), nil)

	p := d.pipeline(t, search.Options{})
	items, err := p.Run(context.Background(), []recs.Recommendation{albumRec()})
	require.NoError(t, err)
	assert.True(t, items[0].Matched())
}

func TestPipeline_PreFilterPriorSnatch(t *testing.T) {
	d := newDeps(t)
	d.snapshot.EXPECT().HasSnatchedRelease("Autechre", "Amber").Return(true)

	p := d.pipeline(t, search.Options{SkipPriorSnatches: true})
	items, err := p.Run(context.Background(), []recs.Recommendation{albumRec()})
	require.NoError(t, err)

	assert.Equal(t, search.SkipAlreadySnatched, items[0].Skip)
	assert.Nil(t, items[0].Match)
}

func TestPipeline_PreFilterLibraryContext(t *testing.T) {
	rec := albumRec()
	rec.Context = recs.ContextInLibrary

	t.Run("disallowed", func(t *testing.T) {
		d := newDeps(t)
		p := d.pipeline(t, search.Options{})
		items, err := p.Run(context.Background(), []recs.Recommendation{rec})
		require.NoError(t, err)
		assert.Equal(t, search.SkipContextFiltering, items[0].Skip)
	})

	t.Run("allowed", func(t *testing.T) {
		d := newDeps(t)
		d.cleanAccount()
		d.index.EXPECT().
			Browse(gomock.Any(), gomock.Any()).
			Return(groupWith(gazelle.Torrent{TorrentID: 9, Size: gb}), nil)

		p := d.pipeline(t, search.Options{AllowLibraryItems: true})
		items, err := p.Run(context.Background(), []recs.Recommendation{rec})
		require.NoError(t, err)
		assert.True(t, items[0].Matched())
	})
}

func TestPipeline_TrackOriginFromRecMetadata(t *testing.T) {
	d := newDeps(t)
	d.cleanAccount()
	d.recMeta.EXPECT().
		TrackInfo(gomock.Any(), "Plaid", "Eyen").
		Return(&lastfm.TrackInfo{
			Track:      "Eyen",
			ArtistMBID: "artist-mbid",
			Album:      &lastfm.AlbumRef{Title: "Not for Threes", MBID: "release-mbid"},
		}, nil)
	d.index.EXPECT().
		Browse(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, q gazelle.BrowseQuery) ([]gazelle.Group, error) {
			assert.Equal(t, "Not for Threes", q.Release, "search uses the origin release, not the track")
			return groupWith(gazelle.Torrent{TorrentID: 33, Size: gb}), nil
		})

	p := d.pipeline(t, search.Options{MaxSizeBytes: 5 * gb})
	items, err := p.Run(context.Background(), []recs.Recommendation{
		{Artist: "Plaid", Entity: "Eyen", Kind: recs.KindTrack},
	})
	require.NoError(t, err)

	require.True(t, items[0].Matched())
	assert.Equal(t, "Not for Threes", items[0].ReleaseName)
	assert.Equal(t, "release-mbid", items[0].ReleaseMBID)
}

func TestPipeline_TrackOriginRegistryFallback(t *testing.T) {
	d := newDeps(t)
	d.cleanAccount()
	d.recMeta.EXPECT().
		TrackInfo(gomock.Any(), "Plaid", "Eyen").
		Return(&lastfm.TrackInfo{Track: "Eyen", ArtistMBID: "artist-mbid"}, nil)
	d.registry.EXPECT().
		FindTrackOrigin(gomock.Any(), "Eyen", "artist-mbid", "Plaid").
		Return(&musicbrainz.TrackOrigin{ReleaseMBID: "mb-release", ReleaseName: "Not for Threes"}, nil)
	d.index.EXPECT().
		Browse(gomock.Any(), gomock.Any()).
		Return(groupWith(gazelle.Torrent{TorrentID: 44, Size: gb}), nil)

	p := d.pipeline(t, search.Options{MaxSizeBytes: 5 * gb})
	items, err := p.Run(context.Background(), []recs.Recommendation{
		{Artist: "Plaid", Entity: "Eyen", Kind: recs.KindTrack},
	})
	require.NoError(t, err)

	require.True(t, items[0].Matched())
	assert.Equal(t, "Not for Threes", items[0].ReleaseName)
}

func TestPipeline_TrackOriginUnresolved(t *testing.T) {
	d := newDeps(t)
	d.cleanAccount()
	d.recMeta.EXPECT().
		TrackInfo(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("service unavailable"))
	d.registry.EXPECT().
		FindTrackOrigin(gomock.Any(), "Eyen", "", "Plaid").
		Return(nil, nil)

	p := d.pipeline(t, search.Options{})
	items, err := p.Run(context.Background(), []recs.Recommendation{
		{Artist: "Plaid", Entity: "Eyen", Kind: recs.KindTrack},
	})
	require.NoError(t, err)

	assert.Equal(t, search.SkipNoSourceRelease, items[0].Skip)
}

func TestPipeline_RefinementsAppliedToQuery(t *testing.T) {
	d := newDeps(t)
	d.cleanAccount()
	d.recMeta.EXPECT().
		AlbumInfo(gomock.Any(), "Autechre", "Amber").
		Return(&lastfm.AlbumInfo{Name: "Amber", ReleaseMBID: "amber-mbid"}, nil)
	d.registry.EXPECT().
		Release(gomock.Any(), "amber-mbid").
		Return(&musicbrainz.Release{
			PrimaryType:      "Album",
			FirstReleaseYear: 1994,
			Label:            "Warp",
			CatalogueNumber:  "WARP CD17",
		}, nil)
	d.index.EXPECT().
		Browse(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, q gazelle.BrowseQuery) ([]gazelle.Group, error) {
			assert.Equal(t, 1994, q.FirstYear)
			assert.Equal(t, gazelle.ReleaseTypeValue("Album"), q.ReleaseType)
			assert.Empty(t, q.RecordLabel, "label refinement is off")
			return groupWith(gazelle.Torrent{TorrentID: 55, Size: gb}), nil
		})

	p := d.pipeline(t, search.Options{
		MaxSizeBytes: 5 * gb,
		Year:         search.FieldOn,
		ReleaseType:  search.FieldOn,
	})
	items, err := p.Run(context.Background(), []recs.Recommendation{albumRec()})
	require.NoError(t, err)
	assert.True(t, items[0].Matched())
}

func TestPipeline_RequiredRefinementUnresolved(t *testing.T) {
	d := newDeps(t)
	d.cleanAccount()
	d.recMeta.EXPECT().
		AlbumInfo(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&lastfm.AlbumInfo{Name: "Amber"}, nil) // no mbid

	p := d.pipeline(t, search.Options{Year: search.FieldRequired})
	items, err := p.Run(context.Background(), []recs.Recommendation{albumRec()})
	require.NoError(t, err)

	assert.Equal(t, search.SkipUnresolvedFields, items[0].Skip)
}

func TestPipeline_OptionalRefinementUnresolvedStillSearches(t *testing.T) {
	d := newDeps(t)
	d.cleanAccount()
	d.recMeta.EXPECT().
		AlbumInfo(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("not found"))
	d.index.EXPECT().
		Browse(gomock.Any(), gomock.Any()).
		Return(groupWith(gazelle.Torrent{TorrentID: 66, Size: gb}), nil)

	p := d.pipeline(t, search.Options{MaxSizeBytes: 5 * gb, Year: search.FieldOn})
	items, err := p.Run(context.Background(), []recs.Recommendation{albumRec()})
	require.NoError(t, err)
	assert.True(t, items[0].Matched())
}

func TestPipeline_PostFilterDupeOfAnotherRec(t *testing.T) {
	d := newDeps(t)
	d.cleanAccount()
	// Both recs resolve to the same torrent id.
	d.index.EXPECT().
		Browse(gomock.Any(), gomock.Any()).
		Return(groupWith(gazelle.Torrent{TorrentID: 77, Size: gb}), nil).
		Times(2)

	p := d.pipeline(t, search.Options{MaxSizeBytes: 5 * gb})
	items, err := p.Run(context.Background(), []recs.Recommendation{
		albumRec(),
		{Artist: "Autechre", Entity: "Amber (Reissue)", Kind: recs.KindAlbum},
	})
	require.NoError(t, err)

	assert.True(t, items[0].Matched())
	assert.Equal(t, search.SkipDupeOfAnotherRec, items[1].Skip)
}

func TestPipeline_PostFilterPriorSnatchedTorrent(t *testing.T) {
	d := newDeps(t)
	d.snapshot.EXPECT().HasSnatchedRelease(gomock.Any(), gomock.Any()).Return(false)
	d.snapshot.EXPECT().HasSnatchedTorrent(int64(88)).Return(true)
	d.index.EXPECT().
		Browse(gomock.Any(), gomock.Any()).
		Return(groupWith(gazelle.Torrent{TorrentID: 88, Size: gb}), nil)

	p := d.pipeline(t, search.Options{MaxSizeBytes: 5 * gb, SkipPriorSnatches: true})
	items, err := p.Run(context.Background(), []recs.Recommendation{albumRec()})
	require.NoError(t, err)

	assert.Equal(t, search.SkipAlreadySnatched, items[0].Skip)
}

func TestPipeline_MixedKindsRejected(t *testing.T) {
	d := newDeps(t)
	p := d.pipeline(t, search.Options{})
	_, err := p.Run(context.Background(), []recs.Recommendation{
		{Artist: "A", Entity: "B", Kind: recs.KindAlbum},
		{Artist: "A", Entity: "C", Kind: recs.KindTrack},
	})
	assert.ErrorIs(t, err, search.ErrMixedKinds)
}

func TestPipeline_EmptyBatch(t *testing.T) {
	d := newDeps(t)
	p := d.pipeline(t, search.Options{})
	items, err := p.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestNew_RequiresPreferences(t *testing.T) {
	d := newDeps(t)
	_, err := search.New(d.index, d.recMeta, d.registry, d.snapshot, search.Options{}, testLogger())
	assert.ErrorIs(t, err, search.ErrNoPreferences)
}

// Every item leaves the pipeline in exactly one terminal state: matched or
// skipped, never both, never neither.
func TestPipeline_ExactlyOneTerminalState(t *testing.T) {
	d := newDeps(t)
	d.cleanAccount()
	gomock.InOrder(
		d.index.EXPECT().Browse(gomock.Any(), gomock.Any()).
			Return(groupWith(gazelle.Torrent{TorrentID: 1, Size: gb}), nil),
		d.index.EXPECT().Browse(gomock.Any(), gomock.Any()).
			Return(nil, nil),
		d.index.EXPECT().Browse(gomock.Any(), gomock.Any()).
			Return(groupWith(gazelle.Torrent{TorrentID: 3, Size: 20 * gb}), nil),
	)

	p := d.pipeline(t, search.Options{MaxSizeBytes: 5 * gb})
	items, err := p.Run(context.Background(), []recs.Recommendation{
		{Artist: "A", Entity: "One", Kind: recs.KindAlbum},
		{Artist: "B", Entity: "Two", Kind: recs.KindAlbum},
		{Artist: "C", Entity: "Three", Kind: recs.KindAlbum},
	})
	require.NoError(t, err)

	for _, it := range items {
		skipped := it.Skip != search.SkipNone
		assert.True(t, it.Matched() != skipped, "item %s: matched=%t skipped=%t", it.Rec, it.Matched(), skipped)
	}
}

func TestParseFieldMode(t *testing.T) {
	for in, want := range map[string]search.FieldMode{
		"off": search.FieldOff, "": search.FieldOff,
		"on": search.FieldOn, "required": search.FieldRequired,
	} {
		got, err := search.ParseFieldMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := search.ParseFieldMode("maybe")
	assert.Error(t, err)
}

func TestSkipReasonDescription(t *testing.T) {
	assert.NotEmpty(t, search.SkipAboveMaxSize.Description())
	assert.NotEqual(t, string(search.SkipAboveMaxSize), search.SkipAboveMaxSize.Description())
}
