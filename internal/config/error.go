// internal/config/error.go
package config

import (
	"fmt"
	"strings"
)

// Error aggregates everything wrong with a config file: unresolved
// environment variables and validation failures, reported together so the
// user can fix the file in one pass.
type Error struct {
	Path    string
	Missing []string
	Errors  []string
}

func (e *Error) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing environment variables: %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Errors) > 0 {
		parts = append(parts, "validation failed:")
		for _, err := range e.Errors {
			parts = append(parts, "  - "+err)
		}
	}
	return strings.Join(parts, "\n")
}

// HasErrors reports whether any problem was recorded.
func (e *Error) HasErrors() bool {
	return len(e.Missing) > 0 || len(e.Errors) > 0
}
