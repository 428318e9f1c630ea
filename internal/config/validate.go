// internal/config/validate.go
package config

import (
	"fmt"

	"github.com/vmunix/recarr/pkg/gazelle"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

var validRefinements = map[string]bool{
	RefinementOff: true, RefinementOn: true, RefinementRequired: true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	if !validLogLevels[c.LogLevel] {
		errs = append(errs, fmt.Sprintf("log_level: must be one of debug, info, warn, error; got %q", c.LogLevel))
	}

	if c.Index.APIKey == "" {
		errs = append(errs, "index.api_key: required")
	}
	if c.Index.UserID <= 0 {
		errs = append(errs, "index.user_id: required")
	}
	if c.LastFM.APIKey == "" {
		errs = append(errs, "lastfm.api_key: required")
	}
	for name, cc := range map[string]ClientConfig{
		"index":       c.Index.ClientConfig,
		"lastfm":      c.LastFM.ClientConfig,
		"musicbrainz": c.MusicBrainz.ClientConfig,
	} {
		if cc.ThrottleSeconds < 0 {
			errs = append(errs, fmt.Sprintf("%s.throttle_seconds: must not be negative", name))
		}
		if cc.MaxRetries < 0 {
			errs = append(errs, fmt.Sprintf("%s.max_retries: must not be negative", name))
		}
	}

	if c.Search.MaxSizeGB < 0 {
		errs = append(errs, fmt.Sprintf("search.max_size_gb: must not be negative, got %g", c.Search.MaxSizeGB))
	}
	if c.Search.MinAllowedRatio < 0 {
		errs = append(errs, fmt.Sprintf("search.min_allowed_ratio: must not be negative, got %g", c.Search.MinAllowedRatio))
	}
	for name, mode := range map[string]string{
		"search.year":             c.Search.Year,
		"search.release_type":     c.Search.ReleaseType,
		"search.record_label":     c.Search.RecordLabel,
		"search.catalogue_number": c.Search.CatalogueNumber,
	} {
		if !validRefinements[mode] {
			errs = append(errs, fmt.Sprintf("%s: must be one of off, on, required; got %q", name, mode))
		}
	}

	if len(c.Search.Preferences) == 0 {
		errs = append(errs, "search.preference: at least one preference must be configured")
	}
	prefs := make([]gazelle.Preference, 0, len(c.Search.Preferences))
	for i, pc := range c.Search.Preferences {
		pref, err := pc.Parse()
		if err != nil {
			errs = append(errs, fmt.Sprintf("search.preference[%d]: %v", i, err))
			continue
		}
		prefs = append(prefs, pref)
	}
	if len(prefs) == len(c.Search.Preferences) && len(prefs) > 0 {
		if err := gazelle.ValidatePreferences(prefs); err != nil {
			errs = append(errs, fmt.Sprintf("search.preference: %v", err))
		}
	}

	return errs
}

// ParsedPreferences returns the ranked preference list. Call after Load has
// validated the configuration.
func (c *Config) ParsedPreferences() ([]gazelle.Preference, error) {
	prefs := make([]gazelle.Preference, 0, len(c.Search.Preferences))
	for i, pc := range c.Search.Preferences {
		pref, err := pc.Parse()
		if err != nil {
			return nil, fmt.Errorf("search.preference[%d]: %w", i, err)
		}
		prefs = append(prefs, pref)
	}
	return prefs, nil
}
