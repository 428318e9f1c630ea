// Package client implements the throttled, caching, retrying HTTP base that
// every external API call passes through. Each external domain gets its own
// Client instance with its own rate limiter, so independent domains never
// throttle one another.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"github.com/vmunix/recarr/internal/cache"
)

// ErrInvalidEndpoint is returned for endpoints outside a client's allow-list.
// It is never retried and never cached.
var ErrInvalidEndpoint = errors.New("invalid endpoint")

// ProtocolError wraps a malformed response, an in-band provider error, or a
// transport failure that survived all retries. It names the domain so
// per-item failures stay attributable in the logs.
type ProtocolError struct {
	Domain   string
	Endpoint string
	Err      error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Domain, e.Endpoint, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Unwrap extracts the payload the caller cares about from a raw response
// body, surfacing in-band provider errors. The returned payload is what gets
// cached.
type Unwrap func(body []byte) ([]byte, error)

// Identity is an Unwrap that passes the body through untouched.
func Identity(body []byte) ([]byte, error) {
	return body, nil
}

// Config describes one external domain.
type Config struct {
	// Domain prefixes cache keys and log lines, e.g. "redacted.sh".
	Domain string
	// Throttle is the minimum interval between outbound calls. Zero disables
	// throttling.
	Throttle time.Duration
	// MaxRetries is the number of additional attempts after the first.
	// The download endpoint must use zero.
	MaxRetries int
	// RetryWait is the fixed wait between attempts.
	RetryWait time.Duration
	// Endpoints is the allow-list of valid endpoint names.
	Endpoints []string
	// NonCacheable endpoints bypass the cache in both directions.
	NonCacheable []string
	// Header holds static headers (auth, accept) applied to every request.
	Header http.Header
}

// Client is the throttled base a domain-specific client embeds.
type Client struct {
	domain       string
	limiter      *rate.Limiter
	httpClient   *http.Client
	runCache     *cache.RunCache
	valid        map[string]struct{}
	nonCacheable map[string]struct{}
	maxRetries   int
	retryWait    time.Duration
	header       http.Header
	log          *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets a logger for debug output.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		c.log = log.With("component", "client", "domain", c.domain)
	}
}

// New creates a throttled client for one external domain. The run cache may
// be disabled; reads then always miss and writes are skipped.
func New(cfg Config, rc *cache.RunCache, opts ...Option) *Client {
	limit := rate.Inf
	if cfg.Throttle > 0 {
		limit = rate.Every(cfg.Throttle)
	}
	c := &Client{
		domain:       cfg.Domain,
		limiter:      rate.NewLimiter(limit, 1),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		runCache:     rc,
		valid:        make(map[string]struct{}, len(cfg.Endpoints)),
		nonCacheable: make(map[string]struct{}, len(cfg.NonCacheable)),
		maxRetries:   cfg.MaxRetries,
		retryWait:    cfg.RetryWait,
		header:       cfg.Header,
	}
	for _, e := range cfg.Endpoints {
		c.valid[e] = struct{}{}
	}
	for _, e := range cfg.NonCacheable {
		c.nonCacheable[e] = struct{}{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CacheKey builds the cache key for an endpoint/params pair on this domain.
func (c *Client) CacheKey(endpoint, params string) string {
	return c.domain + "/" + endpoint + "?" + params
}

// Call performs a throttled, cached, retried GET against rawURL.
//
// The endpoint must be in the allow-list. Cacheable endpoints consult the run
// cache first; a hit returns without throttling or a network call. On a miss
// the call blocks on the limiter, issues the request through the retrying
// transport, unwraps the body, and writes the payload through to the cache.
func (c *Client) Call(ctx context.Context, endpoint, params, rawURL string, unwrap Unwrap) ([]byte, error) {
	if _, ok := c.valid[endpoint]; !ok {
		return nil, fmt.Errorf("%w: %q on %s", ErrInvalidEndpoint, endpoint, c.domain)
	}

	_, skipCache := c.nonCacheable[endpoint]
	key := c.CacheKey(endpoint, params)
	if !skipCache {
		if payload, ok := c.runCache.Get(key); ok {
			if c.log != nil {
				c.log.Debug("cache hit", "endpoint", endpoint)
			}
			return payload, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	body, err := c.fetch(ctx, rawURL)
	if err != nil {
		return nil, &ProtocolError{Domain: c.domain, Endpoint: endpoint, Err: err}
	}

	payload, err := unwrap(body)
	if err != nil {
		return nil, &ProtocolError{Domain: c.domain, Endpoint: endpoint, Err: err}
	}

	if c.log != nil {
		c.log.Debug("call complete", "endpoint", endpoint, "bytes", len(payload), "duration_ms", time.Since(start).Milliseconds())
	}

	if !skipCache && c.runCache.Enabled() {
		if err := c.runCache.Set(key, payload); err != nil {
			if c.log != nil {
				c.log.Warn("cache write failed", "endpoint", endpoint, "error", err)
			}
		}
	}
	return payload, nil
}

// fetch issues the GET with bounded retry. Network failures and 5xx/429
// responses are retried with a fixed wait; other statuses fail immediately.
func (c *Client) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	backoff := retry.WithMaxRetries(uint64(c.maxRetries), retry.NewConstant(c.retryWaitOrDefault()))

	var body []byte
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		for k, vals := range c.header {
			for _, v := range vals {
				req.Header.Add(k, v)
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			return retry.RetryableError(fmt.Errorf("unexpected status: %s", resp.Status))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status: %s", resp.Status)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	return body, err
}

func (c *Client) retryWaitOrDefault() time.Duration {
	if c.retryWait > 0 {
		return c.retryWait
	}
	return time.Second
}
