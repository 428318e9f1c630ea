// Package musicbrainz implements the metadata-registry client used to
// enrich index searches: release lookups by MBID and free-text recording
// searches that recover the origin release of a track.
package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/hbollon/go-edlib"

	"github.com/vmunix/recarr/internal/cache"
	"github.com/vmunix/recarr/internal/client"
)

const defaultBaseURL = "https://musicbrainz.org/ws/2/"

var apiEndpoints = []string{"release", "recording"}

// firstYearPattern extracts the leading year of a first-release-date value,
// which may be YYYY, YYYY-MM, or YYYY-MM-DD.
var firstYearPattern = regexp.MustCompile(`^([0-9]{4})`)

// Client calls the registry through the throttled base. The registry
// requires a courteous request rate; the throttle period comes from config.
type Client struct {
	base    *client.Client
	baseURL string
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

// New creates a registry client.
func New(throttle time.Duration, maxRetries int, retryWait time.Duration, rc *cache.RunCache, opts ...Option) *Client {
	o := options{baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(&o)
	}

	var baseOpts []client.Option
	if o.httpClient != nil {
		baseOpts = append(baseOpts, client.WithHTTPClient(o.httpClient))
	}
	if o.log != nil {
		baseOpts = append(baseOpts, client.WithLogger(o.log.With("component", "musicbrainz")))
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

	c := &Client{base: base, baseURL: o.baseURL}
	if o.log != nil {
		c.log = o.log.With("component", "musicbrainz")
	}
	return c
}

// unwrap surfaces the registry's in-band {"error": "..."} payloads.
func unwrap(body []byte) ([]byte, error) {
	var probe struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if probe.Error != "" {
		return nil, fmt.Errorf("registry error: %s", probe.Error)
	}
	return body, nil
}

// Release fetches full release attributes by MBID.
func (c *Client) Release(ctx context.Context, mbid string) (*Release, error) {
	params := "inc=artist-credits+labels+release-groups&fmt=json"
	rawURL := c.baseURL + "release/" + url.PathEscape(mbid) + "?" + params
	payload, err := c.base.Call(ctx, "release", mbid, rawURL, unwrap)
	if err != nil {
		return nil, err
	}

	var resp releaseResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("decode release response: %w", err)
	}

	rel := &Release{
		MBID:             resp.ID,
		Title:            resp.Title,
		Date:             resp.Date,
		PrimaryType:      resp.ReleaseGroup.PrimaryType,
		ReleaseGroupMBID: resp.ReleaseGroup.ID,
		FirstReleaseYear: parseFirstYear(resp.ReleaseGroup.FirstReleaseDate),
	}
	if len(resp.ArtistCredit) > 0 {
		rel.Artist = resp.ArtistCredit[0].Name
	}
	if len(resp.LabelInfo) > 0 {
		rel.Label = resp.LabelInfo[0].Label.Name
		rel.CatalogueNumber = resp.LabelInfo[0].CatalogNumber
	}

	if c.log != nil {
		c.log.Debug("resolved release", "mbid", mbid, "title", rel.Title, "year", rel.FirstReleaseYear)
	}
	return rel, nil
}

func parseFirstYear(date string) int {
	m := firstYearPattern.FindStringSubmatch(date)
	if m == nil {
		return 0
	}
	year, _ := strconv.Atoi(m[1])
	return year
}

// FindTrackOrigin searches the registry's recording index for the release a
// track originates from. The query narrows by artist MBID when available,
// else by artist name. Among the returned recordings the one whose title is
// closest to the track name (Jaro-Winkler) supplies the origin release.
// Returns nil when nothing usable comes back.
func (c *Client) FindTrackOrigin(ctx context.Context, track, artistMBID, artistName string) (*TrackOrigin, error) {
	query := fmt.Sprintf("recording:%q", track)
	switch {
	case artistMBID != "":
		query += fmt.Sprintf(" AND arid:%s", artistMBID)
	case artistName != "":
		query += fmt.Sprintf(" AND artist:%q", artistName)
	}

	params := "query=" + url.QueryEscape(query) + "&fmt=json"
	rawURL := c.baseURL + "recording?" + params
	payload, err := c.base.Call(ctx, "recording", query, rawURL, unwrap)
	if err != nil {
		return nil, err
	}

	var resp recordingSearchResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("decode recording search: %w", err)
	}

	best := pickRecording(track, resp.Recordings)
	if best == nil || len(best.Releases) == 0 {
		if c.log != nil {
			c.log.Debug("no origin release resolved", "track", track, "artist", artistName)
		}
		return nil, nil
	}

	origin := best.Releases[0]
	return &TrackOrigin{ReleaseMBID: origin.ID, ReleaseName: origin.Title}, nil
}

// pickRecording selects the recording whose title best matches the track
// name, skipping recordings without any attached release.
func pickRecording(track string, recordings []recording) *recording {
	var best *recording
	bestScore := float32(-1)
	for i := range recordings {
		r := &recordings[i]
		if len(r.Releases) == 0 {
			continue
		}
		score := edlib.JaroWinklerSimilarity(track, r.Title)
		if score > bestScore {
			best = r
			bestScore = score
		}
	}
	return best
}
