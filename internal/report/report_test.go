package report

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/recarr/internal/recs"
	"github.com/vmunix/recarr/internal/search"
	"github.com/vmunix/recarr/internal/snatch"
	"github.com/vmunix/recarr/pkg/gazelle"
)

const testSite = "https://example.org"

func matchedItem(tid int64) *search.Item {
	it := search.NewItem(recs.Recommendation{
		Artist: "Autechre", Entity: "Amber", Kind: recs.KindAlbum, Context: recs.ContextSimilarArtist,
	})
	it.Match = &gazelle.Torrent{TorrentID: tid, Media: string(gazelle.MediaWEB), Size: 1 << 30}
	return it
}

func TestBuild(t *testing.T) {
	ok := matchedItem(1)
	failed := matchedItem(2)
	failed.ReleaseMBID = "some-mbid"

	skipped := search.NewItem(recs.Recommendation{
		Artist: "Plaid", Entity: "Eyen", Kind: recs.KindTrack,
	})
	skipped.MarkSkipped(search.SkipNoSourceRelease)

	r := Build(
		[]*search.Item{ok, failed, skipped},
		[]snatch.Result{
			{Item: ok, Path: "/snatched/1.torrent", TokenUsed: true},
			{Item: failed, Err: errors.New("boom"), Failure: snatch.FailureAPI},
		},
		testSite,
	)

	require.Len(t, r.Snatched, 1)
	assert.Equal(t, "yes", r.Snatched[0][8])
	assert.Equal(t, "1.0 GiB", r.Snatched[0][7])
	assert.Equal(t, "-", r.Snatched[0][4], "album recs have no track cell")

	require.Len(t, r.Skipped, 1)
	assert.Equal(t, "Eyen", r.Skipped[0][4], "track recs carry the track name")
	assert.Equal(t, "-", r.Skipped[0][5], "no torrent id before a match")
	assert.Equal(t, search.SkipNoSourceRelease.Description(), r.Skipped[0][6])

	require.Len(t, r.Failed, 1)
	assert.Contains(t, r.Failed[0][0], testSite)
	assert.Equal(t, "some-mbid", r.Failed[0][1])
	assert.Equal(t, "api", r.Failed[0][2])
}

func TestBuildSkippedKeepsMatchedTorrentID(t *testing.T) {
	it := matchedItem(42)
	it.MarkSkipped(search.SkipMinRatioLimit)

	r := Build([]*search.Item{it}, nil, testSite)
	require.Len(t, r.Skipped, 1)
	assert.Equal(t, "42", r.Skipped[0][5])
}

func TestRender(t *testing.T) {
	ok := matchedItem(1)
	r := Build([]*search.Item{ok}, []snatch.Result{{Item: ok, Path: "/x/1.torrent"}}, testSite)

	var buf bytes.Buffer
	r.Render(&buf)
	out := buf.String()

	assert.Contains(t, out, "Snatched Recs")
	assert.Contains(t, out, "Autechre")
	assert.Contains(t, out, "Unsnatched / Skipped Recs: none")
	assert.Contains(t, out, "Failed Downloads: none")
}

func TestWriteTSV(t *testing.T) {
	ok := matchedItem(1)
	skipped := matchedItem(2)
	skipped.MarkSkipped(search.SkipMinRatioLimit)

	r := Build([]*search.Item{ok, skipped}, []snatch.Result{{Item: ok, Path: "/x/1.torrent"}}, testSite)

	dir := t.TempDir()
	require.NoError(t, r.WriteTSV(dir))

	data, err := os.ReadFile(filepath.Join(dir, "snatched.tsv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Type\tContext\tArtist\tRelease\tTrack_Rec\tTorrent_ID\tMedia\tSize\tFL_Token\tPath", lines[0])
	assert.Contains(t, lines[1], "Autechre")

	_, err = os.Stat(filepath.Join(dir, "failed.tsv"))
	assert.True(t, os.IsNotExist(err), "empty sections are not exported")
}
