// internal/config/discover.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultPath returns the XDG-compliant default config path.
func DefaultPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "./config.toml"
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "recarr", "config.toml")
}

// Discover finds the config file. RECARR_CONFIG wins when set (and must
// exist); otherwise the current directory, the XDG config directory, and
// /etc/recarr are tried in that order.
func Discover() (string, error) {
	if envPath := os.Getenv("RECARR_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("RECARR_CONFIG=%s: %w", envPath, err)
		}
		return envPath, nil
	}

	paths := []string{"./config.toml", DefaultPath(), "/etc/recarr/config.toml"}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("config not found, checked: %s", strings.Join(paths, ", "))
}
