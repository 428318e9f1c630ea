// Package recs defines the recommendation values handed to the engine by
// the scraper collaborator, and the file supplier the CLI reads them from.
package recs

import (
	"encoding/json"
	"fmt"
	"os"
)

// Kind distinguishes album and track recommendations.
type Kind string

const (
	KindAlbum Kind = "album"
	KindTrack Kind = "track"
)

// Context is where the recommendation source says the suggestion came from.
type Context string

const (
	ContextNotSet        Context = ""
	ContextInLibrary     Context = "in_library"
	ContextSimilarArtist Context = "similar_artist"
)

// Recommendation is one externally-sourced artist+entity suggestion.
// Read-only once produced.
type Recommendation struct {
	Artist  string  `json:"artist"`
	Entity  string  `json:"entity"`
	Kind    Kind    `json:"kind"`
	Context Context `json:"context,omitempty"`
}

func (r Recommendation) String() string {
	return fmt.Sprintf("%q by %q (%s)", r.Entity, r.Artist, r.Kind)
}

// Validate checks the fields a supplier must fill.
func (r Recommendation) Validate() error {
	if r.Artist == "" || r.Entity == "" {
		return fmt.Errorf("recommendation missing artist or entity: %s", r)
	}
	switch r.Kind {
	case KindAlbum, KindTrack:
	default:
		return fmt.Errorf("unknown recommendation kind %q", r.Kind)
	}
	switch r.Context {
	case ContextNotSet, ContextInLibrary, ContextSimilarArtist:
	default:
		return fmt.Errorf("unknown recommendation context %q", r.Context)
	}
	return nil
}

// LoadFile reads the scraper's JSON drop file and groups recommendations by
// kind, preserving file order within each kind.
func LoadFile(path string) (map[Kind][]Recommendation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recommendations: %w", err)
	}

	var list []Recommendation
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse recommendations: %w", err)
	}

	byKind := make(map[Kind][]Recommendation)
	for i, rec := range list {
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		byKind[rec.Kind] = append(byKind[rec.Kind], rec)
	}
	return byKind, nil
}
