// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/vmunix/recarr/pkg/gazelle"
)

// Config is the root configuration structure.
type Config struct {
	LogLevel    string            `toml:"log_level"`
	Index       IndexConfig       `toml:"index"`
	LastFM      LastFMConfig      `toml:"lastfm"`
	MusicBrainz MusicBrainzConfig `toml:"musicbrainz"`
	Cache       CacheConfig       `toml:"cache"`
	Snatch      SnatchConfig      `toml:"snatch"`
	Search      SearchConfig      `toml:"search"`
	History     HistoryConfig     `toml:"history"`
}

// ClientConfig holds the throttle and retry knobs shared by every API client.
type ClientConfig struct {
	ThrottleSeconds  float64 `toml:"throttle_seconds"`
	MaxRetries       int     `toml:"max_retries"`
	RetryWaitSeconds float64 `toml:"retry_wait_seconds"`
}

// Throttle returns the minimum spacing between live requests.
func (c ClientConfig) Throttle() time.Duration {
	return time.Duration(c.ThrottleSeconds * float64(time.Second))
}

// RetryWait returns the fixed wait between retry attempts.
func (c ClientConfig) RetryWait() time.Duration {
	return time.Duration(c.RetryWaitSeconds * float64(time.Second))
}

type IndexConfig struct {
	ClientConfig
	APIKey  string `toml:"api_key"`
	UserID  int64  `toml:"user_id"`
	BaseURL string `toml:"base_url"`
}

type LastFMConfig struct {
	ClientConfig
	APIKey string `toml:"api_key"`
}

type MusicBrainzConfig struct {
	ClientConfig
}

type CacheConfig struct {
	Dir     string `toml:"dir"`
	API     bool   `toml:"api"`
	Scraper bool   `toml:"scraper"`
}

type SnatchConfig struct {
	Enabled         bool    `toml:"enabled"`
	Directory       string  `toml:"directory"`
	UseFLTokens     bool    `toml:"use_fl_tokens"`
	ThrottleSeconds float64 `toml:"throttle_seconds"`
}

// Throttle returns the minimum spacing between torrent downloads.
func (c SnatchConfig) Throttle() time.Duration {
	return time.Duration(c.ThrottleSeconds * float64(time.Second))
}

// Refinement modes for the optional browse filters. "off" omits the filter,
// "on" applies it when the value resolves, "required" skips the
// recommendation when the value cannot be resolved.
const (
	RefinementOff      = "off"
	RefinementOn       = "on"
	RefinementRequired = "required"
)

type SearchConfig struct {
	MaxSizeGB         float64 `toml:"max_size_gb"`
	MinAllowedRatio   float64 `toml:"min_allowed_ratio"`
	SkipPriorSnatches bool    `toml:"skip_prior_snatches"`
	AllowLibraryItems bool    `toml:"allow_library_items"`

	Year            string `toml:"year"`
	ReleaseType     string `toml:"release_type"`
	RecordLabel     string `toml:"record_label"`
	CatalogueNumber string `toml:"catalogue_number"`

	Preferences []PreferenceConfig `toml:"preference"`
}

// MaxSizeBytes converts the size cap to bytes. Zero or negative means no cap.
func (c SearchConfig) MaxSizeBytes() int64 {
	if c.MaxSizeGB <= 0 {
		return 0
	}
	return int64(c.MaxSizeGB * 1024 * 1024 * 1024)
}

// PreferenceConfig is one [[search.preference]] entry, in ranked order.
type PreferenceConfig struct {
	Format       string          `toml:"format"`
	Encoding     string          `toml:"encoding"`
	Media        string          `toml:"media"`
	CDOnlyExtras *CDExtrasConfig `toml:"cd_only_extras"`
}

type CDExtrasConfig struct {
	LogScore int  `toml:"log_score"`
	HasCue   bool `toml:"has_cue"`
}

// Parse converts the entry to a validated preference.
func (p PreferenceConfig) Parse() (gazelle.Preference, error) {
	var logScore *int
	var hasCue *bool
	if p.CDOnlyExtras != nil {
		logScore = &p.CDOnlyExtras.LogScore
		hasCue = &p.CDOnlyExtras.HasCue
	}
	return gazelle.ParsePreference(p.Format, p.Encoding, p.Media, logScore, hasCue)
}

// FormatPreferences renders the ranked preference list as the same
// [[search.preference]] TOML that Load reads, so the output can be pasted
// back into a config file unchanged.
func (c *Config) FormatPreferences() (string, error) {
	var doc struct {
		Search struct {
			Preferences []PreferenceConfig `toml:"preference"`
		} `toml:"search"`
	}
	doc.Search.Preferences = c.Search.Preferences
	out, err := toml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("rendering preferences: %w", err)
	}
	return string(out), nil
}

type HistoryConfig struct {
	Path string `toml:"path"`
}

// Load reads and parses the configuration file. Validation errors and
// unresolved environment variables are reported together as an *Error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	content, missing := substituteEnvVars(string(data))

	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()

	cerr := &Error{Path: path, Missing: missing, Errors: cfg.Validate()}
	if cerr.HasErrors() {
		return nil, cerr
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	applyClientDefaults(&c.Index.ClientConfig, 2.0)
	applyClientDefaults(&c.LastFM.ClientConfig, 1.0)
	applyClientDefaults(&c.MusicBrainz.ClientConfig, 1.5)
	if c.Cache.Dir == "" {
		c.Cache.Dir = "./cache"
	}
	if c.Snatch.Directory == "" {
		c.Snatch.Directory = "./snatched"
	}
	if c.Snatch.ThrottleSeconds == 0 {
		c.Snatch.ThrottleSeconds = 2.0
	}
	if c.History.Path == "" {
		c.History.Path = "./data/recarr.db"
	}
	for _, mode := range []*string{
		&c.Search.Year, &c.Search.ReleaseType,
		&c.Search.RecordLabel, &c.Search.CatalogueNumber,
	} {
		if *mode == "" {
			*mode = RefinementOff
		}
	}
}

func applyClientDefaults(c *ClientConfig, throttle float64) {
	if c.ThrottleSeconds == 0 {
		c.ThrottleSeconds = throttle
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 2
	}
	if c.RetryWaitSeconds == 0 {
		c.RetryWaitSeconds = 5.0
	}
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
// and returns the names it could not resolve.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func substituteEnvVars(content string) (string, []string) {
	var missing []string
	out := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := match[2 : len(match)-1]
		if value, ok := os.LookupEnv(varName); ok {
			return value
		}
		missing = append(missing, varName)
		return match
	})
	return out, missing
}
