// Package cache provides the on-disk run cache that sits beneath every
// external API call. Entries written during one run share a single expiry
// deadline so that a rerun on the same day reuses responses, while the next
// day starts clean.
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// Purpose scopes a RunCache instance to one cache file.
type Purpose string

const (
	// PurposeAPI caches external API responses.
	PurposeAPI Purpose = "api"
	// PurposeScraper caches scraped recommendation lists.
	PurposeScraper Purpose = "scraper"
)

// ErrDisabled is returned by write operations on a disabled cache.
// Callers that must have caching should check Enabled first.
var ErrDisabled = errors.New("cache disabled")

const schema = `
CREATE TABLE IF NOT EXISTS run_cache (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	expires_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_run_cache_expires_at ON run_cache(expires_at);
`

// RunCache is a SQLite-backed key/value store with one shared expiry
// deadline per instance.
type RunCache struct {
	db        *sql.DB
	purpose   Purpose
	enabled   bool
	expiresAt time.Time
	now       func() time.Time
	log       *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// Option configures a RunCache.
type Option func(*RunCache)

// WithLogger sets a logger for debug output.
func WithLogger(log *slog.Logger) Option {
	return func(c *RunCache) {
		c.log = log.With("component", "cache", "purpose", string(c.purpose))
	}
}

// WithClock sets the time source. Used by tests to pin the expiry deadline.
func WithClock(now func() time.Time) Option {
	return func(c *RunCache) {
		c.now = now
	}
}

// Open opens (creating if needed) the cache file for the given purpose under
// dir. A disabled cache opens no file: reads always miss and writes return
// ErrDisabled. Expired entries left over from prior runs are purged.
func Open(dir string, purpose Purpose, enabled bool, opts ...Option) (*RunCache, error) {
	c := &RunCache{
		purpose: purpose,
		enabled: enabled,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if !enabled {
		return c, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	path := filepath.Join(dir, string(purpose)+"_cache.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}
	c.db = db
	c.expiresAt = nextExpiry(c.now())

	res, err := db.Exec("DELETE FROM run_cache WHERE expires_at < ?", c.now())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("purge expired entries: %w", err)
	}
	if c.log != nil {
		purged, _ := res.RowsAffected()
		c.log.Debug("cache opened", "path", path, "purged", purged, "expires_at", c.expiresAt)
	}
	return c, nil
}

// nextExpiry returns the upcoming local midnight. Construction inside the
// final 20 minutes of a day pushes the deadline one further midnight out, so
// entries written just before midnight do not expire almost immediately.
func nextExpiry(now time.Time) time.Time {
	days := 1
	if now.Hour() == 23 && now.Minute() >= 40 {
		days = 2
	}
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, days)
}

// Enabled reports whether this cache was opened with caching on.
func (c *RunCache) Enabled() bool {
	return c.enabled
}

// ExpiresAt returns the shared expiry deadline for entries written by this
// instance. Zero when disabled.
func (c *RunCache) ExpiresAt() time.Time {
	return c.expiresAt
}

// Get retrieves a cached value. A disabled cache, a missing key, and an
// expired entry all report a miss.
func (c *RunCache) Get(key string) ([]byte, bool) {
	if !c.enabled {
		c.misses.Add(1)
		return nil, false
	}

	var value []byte
	var expiresAt time.Time
	err := c.db.QueryRow(
		"SELECT value, expires_at FROM run_cache WHERE key = ?", key,
	).Scan(&value, &expiresAt)
	if err != nil || c.now().After(expiresAt) {
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	return value, true
}

// Set stores a value under key with the instance's shared expiry. Returns
// ErrDisabled when the cache is disabled.
func (c *RunCache) Set(key string, value []byte) error {
	if !c.enabled {
		return fmt.Errorf("%s cache: %w", c.purpose, ErrDisabled)
	}

	_, err := c.db.Exec(
		`INSERT INTO run_cache (key, value, expires_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, c.expiresAt,
	)
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Clear removes all entries and returns the number removed.
func (c *RunCache) Clear() (int64, error) {
	if !c.enabled {
		return 0, fmt.Errorf("%s cache: %w", c.purpose, ErrDisabled)
	}
	res, err := c.db.Exec("DELETE FROM run_cache")
	if err != nil {
		return 0, fmt.Errorf("cache clear: %w", err)
	}
	return res.RowsAffected()
}

// Keys returns all current cache keys, for the cache CLI.
func (c *RunCache) Keys() ([]string, error) {
	if !c.enabled {
		return nil, fmt.Errorf("%s cache: %w", c.purpose, ErrDisabled)
	}
	rows, err := c.db.Query("SELECT key FROM run_cache ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("cache keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan cache key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Check runs a SQLite integrity check and returns any warnings. An empty
// slice means the cache file is consistent.
func (c *RunCache) Check() ([]string, error) {
	if !c.enabled {
		return nil, fmt.Errorf("%s cache: %w", c.purpose, ErrDisabled)
	}
	rows, err := c.db.Query("PRAGMA quick_check")
	if err != nil {
		return nil, fmt.Errorf("cache check: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var warnings []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("scan check result: %w", err)
		}
		if line != "ok" {
			warnings = append(warnings, line)
		}
	}
	if len(warnings) > 0 && c.log != nil {
		c.log.Warn("cache consistency warnings", "count", len(warnings))
	}
	return warnings, rows.Err()
}

// Stats reports hit/miss counters for this instance plus the bytes currently
// stored in the cache file.
func (c *RunCache) Stats() (hits, misses, bytesUsed int64) {
	hits = c.hits.Load()
	misses = c.misses.Load()
	if !c.enabled {
		return hits, misses, 0
	}
	_ = c.db.QueryRow("SELECT COALESCE(SUM(LENGTH(value)), 0) FROM run_cache").Scan(&bytesUsed)
	return hits, misses, bytesUsed
}

// Close closes the underlying database. No-op when disabled.
func (c *RunCache) Close() error {
	if !c.enabled {
		return nil
	}
	return c.db.Close()
}
