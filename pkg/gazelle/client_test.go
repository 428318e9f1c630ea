package gazelle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/recarr/internal/cache"
	"github.com/vmunix/recarr/internal/client"
)

func testCache(t *testing.T) *cache.RunCache {
	t.Helper()
	rc, err := cache.Open(t.TempDir(), cache.PurposeAPI, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })
	return rc
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New("key", 0, 0, time.Millisecond, testCache(t), WithBaseURL(srv.URL))
}

const browseBody = `{
	"status": "success",
	"response": {
		"results": [
			{
				"groupId": 7070,
				"groupName": "Things We Lost in the Fire",
				"artist": "Low",
				"releaseType": "Album",
				"groupYear": 2001,
				"torrents": [
					{
						"torrentId": 101,
						"media": "CD",
						"format": "FLAC",
						"encoding": "Lossless",
						"size": 423014032,
						"scene": false,
						"trumpable": false,
						"hasSnatched": false,
						"hasLog": true,
						"logScore": 100,
						"hasCue": true,
						"canUseToken": true
					},
					{
						"torrentId": 102,
						"media": "CD",
						"format": "MP3",
						"encoding": "320",
						"size": 120014032,
						"canUseToken": false
					}
				]
			}
		]
	}
}`

func TestClient_Browse(t *testing.T) {
	var gotPath string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.String()
		assert.Equal(t, "key", r.Header.Get("Authorization"))
		fmt.Fprint(w, browseBody)
	}))

	groups, err := c.Browse(context.Background(), BrowseQuery{
		Artist:   "Low",
		Release:  "Things We Lost in the Fire",
		Format:   FormatFLAC,
		Encoding: EncodingLossless,
		Media:    MediaCD,
	})
	require.NoError(t, err)

	require.Len(t, groups, 1)
	assert.Equal(t, int64(7070), groups[0].GroupID)
	require.Len(t, groups[0].Torrents, 2)
	first := groups[0].Torrents[0]
	assert.Equal(t, int64(101), first.TorrentID)
	assert.True(t, first.CanUseToken)
	assert.Equal(t, "FLAC|Lossless|CD|haslog=100&hascue=1", first.PreferenceKey())

	assert.Contains(t, gotPath, "action=browse")
	assert.Contains(t, gotPath, "artistname=Low")
	assert.Contains(t, gotPath, "group_results=1")
	assert.Contains(t, gotPath, "order_by=seeders")
}

func TestClient_Browse_RefinementParams(t *testing.T) {
	q := BrowseQuery{
		Artist:          "Low",
		Release:         "Secret Name",
		Format:          FormatFLAC,
		Encoding:        EncodingLossless,
		Media:           MediaCD,
		ReleaseType:     1,
		FirstYear:       1999,
		RecordLabel:     "Kranky",
		CatalogueNumber: "KRANK034",
	}
	v := q.Values()
	assert.Equal(t, "1", v.Get("releasetype"))
	assert.Equal(t, "1999", v.Get("year"))
	assert.Equal(t, "Kranky", v.Get("recordlabel"))
	assert.Equal(t, "KRANK034", v.Get("cataloguenumber"))

	// Refinements are omitted, not sent empty.
	v = BrowseQuery{Artist: "Low"}.Values()
	assert.False(t, v.Has("releasetype"))
	assert.False(t, v.Has("year"))
	assert.False(t, v.Has("recordlabel"))
}

func TestClient_Browse_InBandError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "failure", "error": "rate limit exceeded"}`)
	}))

	_, err := c.Browse(context.Background(), BrowseQuery{Artist: "Low"})
	require.Error(t, err)

	var perr *client.ProtocolError
	require.True(t, errors.As(err, &perr))
	assert.Contains(t, perr.Error(), "rate limit exceeded")
}

func TestClient_UserProfile(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"status": "success",
			"response": {
				"stats": {"uploaded": 100, "downloaded": 40, "buffer": 30, "ratio": 2.5, "requiredRatio": 0.6},
				"personal": {"giftTokens": 2, "meritTokens": 3}
			}
		}`)
	}))

	profile, err := c.UserProfile(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(100), profile.Uploaded)
	assert.Equal(t, int64(40), profile.Downloaded)
	assert.Equal(t, int64(30), profile.Buffer)
	assert.InDelta(t, 2.5, profile.Ratio, 0.001)
	assert.Equal(t, 5, profile.Tokens)
}

func TestClient_SnatchedTorrents_Paginates(t *testing.T) {
	var offsets []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offsets = append(offsets, r.URL.Query().Get("offset"))
		if r.URL.Query().Get("offset") == "0" {
			// A full page forces a second request.
			fmt.Fprint(w, `{"status": "success", "response": {"snatched": [`)
			for i := 0; i < userTorrentsPage; i++ {
				if i > 0 {
					fmt.Fprint(w, ",")
				}
				fmt.Fprintf(w, `{"torrentId": %d, "groupId": 1, "artistName": "A", "name": "R", "torrentSize": 10}`, i+1)
			}
			fmt.Fprint(w, `]}}`)
			return
		}
		fmt.Fprint(w, `{"status": "success", "response": {"snatched": [{"torrentId": 9001, "groupId": 2, "artistName": "B", "name": "S", "torrentSize": 20}]}}`)
	}))

	snatched, err := c.SnatchedTorrents(context.Background(), 42, userTorrentsPage+1)
	require.NoError(t, err)
	assert.Len(t, snatched, userTorrentsPage+1)
	assert.Equal(t, []string{"0", "500"}, offsets)
}

func TestClient_InvalidEndpointRejected(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request should be issued")
	}))

	_, err := c.base.Call(context.Background(), "addtocollage", "", "http://unused", client.Identity)
	assert.True(t, errors.Is(err, client.ErrInvalidEndpoint))
}

func newTestSnatchClient(t *testing.T, useTokens bool, handler http.Handler) *SnatchClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewSnatchClient("key", 0, useTokens, testCache(t), WithBaseURL(srv.URL))
}

func TestSnatchClient_PlainDownload(t *testing.T) {
	c := newTestSnatchClient(t, false, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("usetoken"))
		_, _ = w.Write([]byte("torrent-bytes"))
	}))

	body, err := c.Snatch(context.Background(), 101, true)
	require.NoError(t, err)
	assert.Equal(t, []byte("torrent-bytes"), body)
	assert.False(t, c.SnatchedWithToken(101))
}

func TestSnatchClient_TokenSuccess(t *testing.T) {
	c := newTestSnatchClient(t, true, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("usetoken"))
		_, _ = w.Write([]byte("torrent-bytes"))
	}))

	body, err := c.Snatch(context.Background(), 101, true)
	require.NoError(t, err)
	assert.Equal(t, []byte("torrent-bytes"), body)
	assert.True(t, c.SnatchedWithToken(101))
}

func TestSnatchClient_TokenFailureFallsBackWithoutToken(t *testing.T) {
	var attempts []string
	c := newTestSnatchClient(t, true, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts = append(attempts, r.URL.Query().Get("usetoken"))
		if r.URL.Query().Get("usetoken") == "1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("torrent-bytes"))
	}))

	body, err := c.Snatch(context.Background(), 101, true)
	require.NoError(t, err)
	assert.Equal(t, []byte("torrent-bytes"), body)
	assert.Equal(t, []string{"1", ""}, attempts, "token attempt then one plain attempt")
	assert.False(t, c.SnatchedWithToken(101), "failed token attempt must not be counted")
}

func TestSnatchClient_FailureNeverRetried(t *testing.T) {
	var attempts atomic.Int32
	c := newTestSnatchClient(t, false, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := c.Snatch(context.Background(), 101, false)
	require.Error(t, err)
	assert.Equal(t, int32(1), attempts.Load(), "download transport must not retry")
}

func TestSnatchClient_IneligibleTorrentSkipsToken(t *testing.T) {
	var attempts []string
	c := newTestSnatchClient(t, true, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts = append(attempts, r.URL.Query().Get("usetoken"))
		_, _ = w.Write([]byte("x"))
	}))

	_, err := c.Snatch(context.Background(), 55, false)
	require.NoError(t, err)
	assert.Equal(t, []string{""}, attempts)
}
