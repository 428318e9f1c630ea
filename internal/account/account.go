// Package account maintains a per-run snapshot of the index account: the
// ratio stats the download budget is computed from and the prior-snatch
// list used to skip already-acquired releases.
package account

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vmunix/recarr/pkg/gazelle"
)

// Index is the subset of the index client the snapshot needs.
type Index interface {
	UserProfile(ctx context.Context, userID int64) (*gazelle.UserProfile, error)
	SnatchedCount(ctx context.Context, userID int64) (int, error)
	SnatchedTorrents(ctx context.Context, userID int64, total int) ([]gazelle.SnatchedTorrent, error)
}

// Snapshot holds account state fetched once at the start of a run.
type Snapshot struct {
	Profile gazelle.UserProfile

	snatchedIDs      map[int64]struct{}
	snatchedReleases map[string]struct{}
}

// Fetch pulls the account profile and the full prior-snatch list.
func Fetch(ctx context.Context, idx Index, userID int64, log *slog.Logger) (*Snapshot, error) {
	if log == nil {
		log = slog.Default()
	}
	start := time.Now()

	count, err := idx.SnatchedCount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetching snatch count: %w", err)
	}
	snatched, err := idx.SnatchedTorrents(ctx, userID, count)
	if err != nil {
		return nil, fmt.Errorf("fetching snatched torrents: %w", err)
	}
	profile, err := idx.UserProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetching user profile: %w", err)
	}

	s := &Snapshot{
		Profile:          *profile,
		snatchedIDs:      make(map[int64]struct{}, len(snatched)),
		snatchedReleases: make(map[string]struct{}, len(snatched)),
	}
	for _, st := range snatched {
		s.snatchedIDs[st.TorrentID] = struct{}{}
		s.snatchedReleases[releaseKey(st.ArtistName, st.Name)] = struct{}{}
	}

	log.Debug("account snapshot ready",
		"snatched", len(snatched),
		"tokens", profile.Tokens,
		"duration_ms", time.Since(start).Milliseconds())
	return s, nil
}

func releaseKey(artist, release string) string {
	return strings.ToLower(artist) + "\x00" + strings.ToLower(release)
}

// HasSnatchedRelease reports whether any prior snatch matches the
// artist+release name pair, case-insensitively.
func (s *Snapshot) HasSnatchedRelease(artist, release string) bool {
	_, ok := s.snatchedReleases[releaseKey(artist, release)]
	return ok
}

// HasSnatchedTorrent reports whether the exact torrent was snatched before.
func (s *Snapshot) HasSnatchedTorrent(torrentID int64) bool {
	_, ok := s.snatchedIDs[torrentID]
	return ok
}

// SnatchedTorrentIDs returns the prior-snatch torrent id set.
func (s *Snapshot) SnatchedTorrentIDs() map[int64]struct{} {
	return s.snatchedIDs
}

// MaxAllowedBytes computes how much the account can download this run
// without dropping below minRatio. A non-positive minRatio disables the
// ratio floor and the whole buffer is available.
func (s *Snapshot) MaxAllowedBytes(minRatio float64) int64 {
	if minRatio <= 0 {
		return s.Profile.Buffer
	}
	allowed := int64(float64(s.Profile.Uploaded)/minRatio) - s.Profile.Downloaded
	if allowed < 0 {
		return 0
	}
	if allowed > s.Profile.Buffer {
		return s.Profile.Buffer
	}
	return allowed
}
