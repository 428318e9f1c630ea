package gazelle

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/vmunix/recarr/internal/cache"
	"github.com/vmunix/recarr/internal/client"
)

// SnatchClient downloads torrent payloads. It is a separate client instance
// so the download transport can run with zero retries: a transient failure
// after a token may already have been spent server-side must surface, not be
// silently retried and double-charged.
type SnatchClient struct {
	base      *client.Client
	baseURL   string
	useTokens bool
	log       *slog.Logger

	mu        sync.Mutex
	tokenUsed map[int64]struct{}
}

// NewSnatchClient creates the download client. useTokens enables the
// token-first download attempt for eligible torrents.
func NewSnatchClient(apiKey string, throttle time.Duration, useTokens bool, rc *cache.RunCache, opts ...Option) *SnatchClient {
	o := buildOptions(opts)
	base := client.New(client.Config{
		Domain:       domainOf(o.baseURL),
		Throttle:     throttle,
		MaxRetries:   0, // never retry downloads
		Endpoints:    snatchEndpoints,
		NonCacheable: snatchEndpoints,
		Header:       http.Header{"Authorization": []string{apiKey}},
	}, rc, baseOptions(o, "gazelle-snatch")...)

	c := &SnatchClient{
		base:      base,
		baseURL:   o.baseURL,
		useTokens: useTokens,
		tokenUsed: make(map[int64]struct{}),
	}
	if o.log != nil {
		c.log = o.log.With("component", "gazelle-snatch")
	}
	return c
}

func (c *SnatchClient) download(ctx context.Context, params string) ([]byte, error) {
	rawURL := c.baseURL + "?action=download&" + params
	return c.base.Call(ctx, "download", params, rawURL, client.Identity)
}

// Snatch downloads the torrent payload for id. When tokens are enabled and
// the torrent is token-eligible, the first attempt spends a token; any
// failure of that attempt falls back to a single plain attempt after
// re-throttling. The two attempts are distinct requests, not a retry.
func (c *SnatchClient) Snatch(ctx context.Context, id int64, canUseToken bool) ([]byte, error) {
	params := "id=" + strconv.FormatInt(id, 10)

	if c.useTokens && canUseToken {
		body, err := c.download(ctx, params+"&usetoken=1")
		if err == nil {
			c.mu.Lock()
			c.tokenUsed[id] = struct{}{}
			c.mu.Unlock()
			return body, nil
		}
		if c.log != nil {
			c.log.Warn("token snatch failed, retrying without token", "torrent_id", id, "error", err)
		}
	}

	return c.download(ctx, params)
}

// SnatchedWithToken reports whether the snatch of id consumed a token.
func (c *SnatchClient) SnatchedWithToken(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.tokenUsed[id]
	return ok
}
