// Package gazelle implements a client for Gazelle-based tracker JSON APIs:
// ranked browse searches, account snapshot calls, and the snatch endpoint.
package gazelle

import (
	"fmt"
	"strings"
)

// Torrent is one downloadable variant of a release.
type Torrent struct {
	TorrentID   int64   `json:"torrentId"`
	Media       string  `json:"media"`
	Format      string  `json:"format"`
	Encoding    string  `json:"encoding"`
	Size        int64   `json:"size"`
	Scene       bool    `json:"scene"`
	Trumpable   bool    `json:"trumpable"`
	Reported    bool    `json:"reported"`
	LossyWeb    bool    `json:"lossyWebApproved"`
	LossyMaster bool    `json:"lossyMasterApproved"`
	HasSnatched bool    `json:"hasSnatched"`
	HasLog      bool    `json:"hasLog"`
	LogScore    float64 `json:"logScore"`
	HasCue      bool    `json:"hasCue"`
	CanUseToken bool    `json:"canUseToken"`
}

// PreferenceKey returns the torrent's (format, encoding, media, CD-extras)
// identity in the same form as Preference.Key. The log component appears
// only for logged CD rips.
func (t Torrent) PreferenceKey() string {
	extras := ""
	if t.Media == string(MediaCD) {
		var parts []string
		if t.HasLog {
			parts = append(parts, fmt.Sprintf("haslog=%d", int(t.LogScore)))
		}
		if t.HasCue {
			parts = append(parts, "hascue=1")
		}
		extras = strings.Join(parts, "&")
	}
	return strings.Join([]string{t.Format, t.Encoding, t.Media, extras}, "|")
}

// PermalinkURL returns the tracker page for this torrent.
func (t Torrent) PermalinkURL(baseSite string) string {
	return fmt.Sprintf("%s/torrents.php?torrentid=%d", baseSite, t.TorrentID)
}

// Group is one release group entry from a browse response, carrying the
// torrent variants that matched the query.
type Group struct {
	GroupID     int64     `json:"groupId"`
	GroupName   string    `json:"groupName"`
	Artist      string    `json:"artist"`
	ReleaseType string    `json:"releaseType"`
	GroupYear   int       `json:"groupYear"`
	Torrents    []Torrent `json:"torrents"`
}

// BrowseQuery names the search parameters for the browse endpoint. Optional
// refinement fields are sent only when non-zero.
type BrowseQuery struct {
	Artist   string
	Release  string
	Format   Format
	Encoding Encoding
	Media    Media

	// Refinements resolved from the metadata registry.
	ReleaseType     int
	FirstYear       int
	RecordLabel     string
	CatalogueNumber string
}

// browseResponse is the unwrapped payload of the browse endpoint.
type browseResponse struct {
	Results []Group `json:"results"`
}

// UserProfile is the account-stats payload the budget arithmetic consumes.
type UserProfile struct {
	Uploaded      int64
	Downloaded    int64
	Buffer        int64
	Ratio         float64
	RequiredRatio float64
	Tokens        int
}

type userResponse struct {
	Stats struct {
		Uploaded      int64   `json:"uploaded"`
		Downloaded    int64   `json:"downloaded"`
		Buffer        int64   `json:"buffer"`
		Ratio         float64 `json:"ratio"`
		RequiredRatio float64 `json:"requiredRatio"`
	} `json:"stats"`
	Personal struct {
		GiftTokens  int `json:"giftTokens"`
		MeritTokens int `json:"meritTokens"`
	} `json:"personal"`
}

// SnatchedTorrent is one entry of the account's prior-snatch list.
type SnatchedTorrent struct {
	GroupID    int64  `json:"groupId"`
	TorrentID  int64  `json:"torrentId"`
	ArtistName string `json:"artistName"`
	Name       string `json:"name"`
	Size       int64  `json:"torrentSize"`
}

type userTorrentsResponse struct {
	Snatched []SnatchedTorrent `json:"snatched"`
}

type communityStatsResponse struct {
	Snatched int `json:"snatched"`
}

// ReleaseType maps the registry's primary-type names to the index's numeric
// releasetype search values.
var releaseTypeValues = map[string]int{
	"album":       1,
	"soundtrack":  3,
	"ep":          5,
	"anthology":   6,
	"compilation": 7,
	"single":      9,
	"live album":  11,
	"remix":       13,
	"bootleg":     14,
	"interview":   15,
	"mixtape":     16,
	"demo":        17,
	"dj-mix":      19,
	"other":       21,
}

// ReleaseTypeValue returns the numeric browse value for a primary-type name,
// or 0 when unknown.
func ReleaseTypeValue(primaryType string) int {
	return releaseTypeValues[strings.ToLower(primaryType)]
}
