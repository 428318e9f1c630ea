// Package lastfm implements the recommendation-metadata client: album and
// track lookups that map a scraped recommendation onto MBIDs and, for
// tracks, the release they originate from.
package lastfm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vmunix/recarr/internal/cache"
	"github.com/vmunix/recarr/internal/client"
)

const defaultBaseURL = "https://ws.audioscrobbler.com/2.0/"

var apiEndpoints = []string{"album.getinfo", "track.getinfo"}

// Client calls the recommendation-metadata API through the throttled base.
type Client struct {
	base    *client.Client
	baseURL string
	apiKey  string
	log     *slog.Logger
}

// Option configures a Client.
type Option func(*options)

type options struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// WithBaseURL sets a custom API URL (for testing).
func WithBaseURL(u string) Option {
	return func(o *options) {
		o.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithLogger sets a logger for debug output.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// New creates a recommendation-metadata client.
func New(apiKey string, throttle time.Duration, maxRetries int, retryWait time.Duration, rc *cache.RunCache, opts ...Option) *Client {
	o := options{baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(&o)
	}

	var baseOpts []client.Option
	if o.httpClient != nil {
		baseOpts = append(baseOpts, client.WithHTTPClient(o.httpClient))
	}
	if o.log != nil {
		baseOpts = append(baseOpts, client.WithLogger(o.log.With("component", "lastfm")))
	}

	u, err := url.Parse(o.baseURL)
	domain := o.baseURL
	if err == nil && u.Host != "" {
		domain = u.Host
	}

	base := client.New(client.Config{
		Domain:     domain,
		Throttle:   throttle,
		MaxRetries: maxRetries,
		RetryWait:  retryWait,
		Endpoints:  apiEndpoints,
		Header:     http.Header{"Accept": []string{"application/json"}},
	}, rc, baseOpts...)

	c := &Client{base: base, baseURL: o.baseURL, apiKey: apiKey}
	if o.log != nil {
		c.log = o.log.With("component", "lastfm")
	}
	return c
}

// unwrapMethod returns an Unwrap that surfaces in-band error payloads and
// strips the response envelope: the payload lives under the top-level key
// named by the method's prefix before the dot ("album.getinfo" → "album").
func unwrapMethod(method string) client.Unwrap {
	topKey, _, _ := strings.Cut(method, ".")
	return func(body []byte) ([]byte, error) {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("decode envelope: %w", err)
		}
		if rawErr, ok := envelope["error"]; ok {
			var probe struct {
				Message string `json:"message"`
			}
			_ = json.Unmarshal(body, &probe)
			return nil, fmt.Errorf("api error %s: %s", rawErr, probe.Message)
		}
		payload, ok := envelope[topKey]
		if !ok {
			return nil, fmt.Errorf("response missing %q key", topKey)
		}
		return payload, nil
	}
}

func (c *Client) call(ctx context.Context, method string, params url.Values) ([]byte, error) {
	// The cache key omits the API key so cached entries survive key rotation.
	cacheParams := params.Encode()
	params.Set("api_key", c.apiKey)
	params.Set("format", "json")
	rawURL := c.baseURL + "?method=" + method + "&" + params.Encode()
	return c.base.Call(ctx, method, cacheParams, rawURL, unwrapMethod(method))
}

// AlbumInfo looks up an album's registry MBID.
func (c *Client) AlbumInfo(ctx context.Context, artist, album string) (*AlbumInfo, error) {
	params := url.Values{}
	params.Set("artist", artist)
	params.Set("album", album)
	payload, err := c.call(ctx, "album.getinfo", params)
	if err != nil {
		return nil, err
	}

	var resp albumResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("decode album info: %w", err)
	}
	return &AlbumInfo{
		Artist:      resp.Artist,
		Name:        resp.Name,
		URL:         resp.URL,
		ReleaseMBID: resp.MBID,
	}, nil
}

// TrackInfo looks up a track, including the album it belongs to when the
// service knows one. Album is nil when unknown.
func (c *Client) TrackInfo(ctx context.Context, artist, track string) (*TrackInfo, error) {
	params := url.Values{}
	params.Set("artist", artist)
	params.Set("track", track)
	payload, err := c.call(ctx, "track.getinfo", params)
	if err != nil {
		return nil, err
	}

	var resp trackResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("decode track info: %w", err)
	}

	info := &TrackInfo{
		Track:      resp.Name,
		URL:        resp.URL,
		ArtistName: resp.Artist.Name,
		ArtistMBID: resp.Artist.MBID,
	}
	if resp.Album != nil {
		info.Album = &AlbumRef{Title: resp.Album.Title, MBID: resp.Album.MBID}
	}
	if c.log != nil {
		c.log.Debug("track info resolved", "track", track, "has_album", info.Album != nil)
	}
	return info, nil
}
