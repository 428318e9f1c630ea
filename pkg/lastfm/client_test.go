package lastfm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/recarr/internal/cache"
	"github.com/vmunix/recarr/internal/client"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	rc, err := cache.Open(t.TempDir(), cache.PurposeAPI, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })
	return New("lfm-key", 0, 0, time.Millisecond, rc, WithBaseURL(srv.URL+"/"))
}

func TestClient_AlbumInfo(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "lfm-key", q.Get("api_key"))
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "Low", q.Get("artist"))
		fmt.Fprint(w, `{"album": {"artist": "Low", "name": "Secret Name", "url": "https://last.fm/x", "mbid": "abc-123"}}`)
	}))

	info, err := c.AlbumInfo(context.Background(), "Low", "Secret Name")
	require.NoError(t, err)
	assert.Equal(t, "abc-123", info.ReleaseMBID)
	assert.Equal(t, "Secret Name", info.Name)
}

func TestClient_TrackInfo_WithAlbum(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"track": {
			"name": "Laser Beam",
			"url": "https://last.fm/t",
			"artist": {"name": "Low", "mbid": "artist-mbid"},
			"album": {"title": "Things We Lost in the Fire", "mbid": "rel-mbid"}
		}}`)
	}))

	info, err := c.TrackInfo(context.Background(), "Low", "Laser Beam")
	require.NoError(t, err)
	assert.Equal(t, "artist-mbid", info.ArtistMBID)
	require.NotNil(t, info.Album)
	assert.Equal(t, "Things We Lost in the Fire", info.Album.Title)
	assert.Equal(t, "rel-mbid", info.Album.MBID)
}

func TestClient_TrackInfo_NoAlbum(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"track": {"name": "Orphan Track", "artist": {"name": "Low", "mbid": ""}}}`)
	}))

	info, err := c.TrackInfo(context.Background(), "Low", "Orphan Track")
	require.NoError(t, err)
	assert.Nil(t, info.Album)
}

func TestClient_InBandError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error": 6, "message": "Track not found"}`)
	}))

	_, err := c.TrackInfo(context.Background(), "Low", "Unknown")
	require.Error(t, err)

	var perr *client.ProtocolError
	require.True(t, errors.As(err, &perr))
	assert.Contains(t, perr.Error(), "Track not found")
}

func TestClient_MissingEnvelopeKey(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"unexpected": {}}`)
	}))

	_, err := c.AlbumInfo(context.Background(), "Low", "Secret Name")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing "album" key`)
}
