package gazelle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vmunix/recarr/internal/cache"
	"github.com/vmunix/recarr/internal/client"
)

const defaultBaseURL = "https://redacted.sh/ajax.php"

// Endpoint names accepted by the API client. The account-snapshot endpoints
// are non-cacheable: budget arithmetic must always see fresh numbers.
var (
	apiEndpoints     = []string{"browse", "torrentgroup", "user", "community_stats", "user_torrents"}
	apiNonCacheable  = []string{"user", "community_stats", "user_torrents"}
	snatchEndpoints  = []string{"download"}
	userTorrentsPage = 500
)

// Client calls the index's JSON API through the throttled base.
type Client struct {
	base    *client.Client
	baseURL string
	log     *slog.Logger
}

// Option configures a Client or SnatchClient.
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

func buildOptions(opts []Option) options {
	o := options{baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func baseOptions(o options, component string) []client.Option {
	var out []client.Option
	if o.httpClient != nil {
		out = append(out, client.WithHTTPClient(o.httpClient))
	}
	if o.log != nil {
		out = append(out, client.WithLogger(o.log.With("component", component)))
	}
	return out
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}

// New creates the index API client. throttle is the minimum interval between
// calls; maxRetries bounds transient-failure retries.
func New(apiKey string, throttle time.Duration, maxRetries int, retryWait time.Duration, rc *cache.RunCache, opts ...Option) *Client {
	o := buildOptions(opts)
	base := client.New(client.Config{
		Domain:       domainOf(o.baseURL),
		Throttle:     throttle,
		MaxRetries:   maxRetries,
		RetryWait:    retryWait,
		Endpoints:    apiEndpoints,
		NonCacheable: apiNonCacheable,
		Header:       http.Header{"Authorization": []string{apiKey}},
	}, rc, baseOptions(o, "gazelle")...)

	c := &Client{base: base, baseURL: o.baseURL}
	if o.log != nil {
		c.log = o.log.With("component", "gazelle")
	}
	return c
}

// SiteURL returns the site root for building permalinks.
func (c *Client) SiteURL() string {
	return strings.TrimSuffix(c.baseURL, "/ajax.php")
}

// unwrapEnvelope strips the {"status", "response"} envelope, surfacing the
// in-band error string on failure statuses.
func unwrapEnvelope(body []byte) ([]byte, error) {
	var envelope struct {
		Status   string          `json:"status"`
		Error    string          `json:"error"`
		Response json.RawMessage `json:"response"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if envelope.Status != "success" {
		if envelope.Error != "" {
			return nil, fmt.Errorf("api error: %s", envelope.Error)
		}
		return nil, fmt.Errorf("api status %q", envelope.Status)
	}
	return envelope.Response, nil
}

func (c *Client) call(ctx context.Context, action string, params url.Values) ([]byte, error) {
	encoded := params.Encode()
	rawURL := c.baseURL + "?action=" + action + "&" + encoded
	return c.base.Call(ctx, action, encoded, rawURL, unwrapEnvelope)
}

// Values encodes the browse query parameters. Results are grouped and
// ordered by seeders so the first within-cap variant is the best available.
func (q BrowseQuery) Values() url.Values {
	v := url.Values{}
	v.Set("artistname", q.Artist)
	v.Set("groupname", q.Release)
	v.Set("format", string(q.Format))
	v.Set("encoding", string(q.Encoding))
	v.Set("media", string(q.Media))
	v.Set("group_results", "1")
	v.Set("order_by", "seeders")
	v.Set("order_way", "desc")
	if q.ReleaseType > 0 {
		v.Set("releasetype", strconv.Itoa(q.ReleaseType))
	}
	if q.FirstYear > 0 {
		v.Set("year", strconv.Itoa(q.FirstYear))
	}
	if q.RecordLabel != "" {
		v.Set("recordlabel", q.RecordLabel)
	}
	if q.CatalogueNumber != "" {
		v.Set("cataloguenumber", q.CatalogueNumber)
	}
	return v
}

// Browse searches the index for release groups matching the query. The
// result order is the index's own ranking.
func (c *Client) Browse(ctx context.Context, q BrowseQuery) ([]Group, error) {
	start := time.Now()
	payload, err := c.call(ctx, "browse", q.Values())
	if err != nil {
		return nil, err
	}

	var resp browseResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("decode browse response: %w", err)
	}
	if c.log != nil {
		c.log.Debug("browse complete", "artist", q.Artist, "release", q.Release,
			"groups", len(resp.Results), "duration_ms", time.Since(start).Milliseconds())
	}
	return resp.Results, nil
}

// UserProfile fetches the account's upload/download/buffer/ratio stats and
// the available token count.
func (c *Client) UserProfile(ctx context.Context, userID int64) (*UserProfile, error) {
	params := url.Values{}
	params.Set("id", strconv.FormatInt(userID, 10))
	payload, err := c.call(ctx, "user", params)
	if err != nil {
		return nil, err
	}

	var resp userResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("decode user response: %w", err)
	}
	return &UserProfile{
		Uploaded:      resp.Stats.Uploaded,
		Downloaded:    resp.Stats.Downloaded,
		Buffer:        resp.Stats.Buffer,
		Ratio:         resp.Stats.Ratio,
		RequiredRatio: resp.Stats.RequiredRatio,
		Tokens:        resp.Personal.GiftTokens + resp.Personal.MeritTokens,
	}, nil
}

// SnatchedCount fetches the account's total snatch count.
func (c *Client) SnatchedCount(ctx context.Context, userID int64) (int, error) {
	params := url.Values{}
	params.Set("userid", strconv.FormatInt(userID, 10))
	payload, err := c.call(ctx, "community_stats", params)
	if err != nil {
		return 0, err
	}

	var resp communityStatsResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return 0, fmt.Errorf("decode community_stats response: %w", err)
	}
	return resp.Snatched, nil
}

// SnatchedTorrents pages through the account's snatched list until total
// entries have been collected.
func (c *Client) SnatchedTorrents(ctx context.Context, userID int64, total int) ([]SnatchedTorrent, error) {
	var all []SnatchedTorrent
	for offset := 0; ; offset += userTorrentsPage {
		params := url.Values{}
		params.Set("id", strconv.FormatInt(userID, 10))
		params.Set("type", "snatched")
		params.Set("limit", strconv.Itoa(userTorrentsPage))
		params.Set("offset", strconv.Itoa(offset))
		payload, err := c.call(ctx, "user_torrents", params)
		if err != nil {
			return nil, err
		}

		var resp userTorrentsResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			return nil, fmt.Errorf("decode user_torrents response: %w", err)
		}
		all = append(all, resp.Snatched...)
		if len(resp.Snatched) == 0 || (total > 0 && len(all) >= total) {
			break
		}
	}
	return all, nil
}
