package gazelle

import (
	"fmt"
	"strings"
)

// Format is a file format accepted by the browse endpoint.
type Format string

const (
	FormatFLAC Format = "FLAC"
	FormatMP3  Format = "MP3"
)

// Media is a source media accepted by the browse endpoint.
type Media string

const (
	MediaCD       Media = "CD"
	MediaWEB      Media = "WEB"
	MediaVinyl    Media = "Vinyl"
	MediaSACD     Media = "SACD"
	MediaCassette Media = "Cassette"
)

// Encoding is a bitrate/encoding accepted by the browse endpoint.
type Encoding string

const (
	EncodingLossless   Encoding = "Lossless"
	Encoding24Lossless Encoding = "24bit Lossless"
	Encoding320        Encoding = "320"
	EncodingV0         Encoding = "V0 (VBR)"
)

var (
	validFormats = map[Format]struct{}{
		FormatFLAC: {}, FormatMP3: {},
	}
	validMedia = map[Media]struct{}{
		MediaCD: {}, MediaWEB: {}, MediaVinyl: {}, MediaSACD: {}, MediaCassette: {},
	}
	validEncodings = map[Encoding]struct{}{
		EncodingLossless: {}, Encoding24Lossless: {}, Encoding320: {}, EncodingV0: {},
	}
	validLogScores = map[int]struct{}{
		-1: {}, 0: {}, 1: {}, 100: {},
	}
)

// CDExtras holds the CD-only grading fields of a preference entry.
type CDExtras struct {
	LogScore int
	HasCue   bool
}

func (e CDExtras) String() string {
	parts := []string{fmt.Sprintf("haslog=%d", e.LogScore)}
	if e.HasCue {
		parts = append(parts, "hascue=1")
	}
	return strings.Join(parts, "&")
}

// Preference is one ranked entry of the user's accepted release variants.
// CDExtras is required when Media is CD and must be nil otherwise.
type Preference struct {
	Format   Format
	Encoding Encoding
	Media    Media
	CDExtras *CDExtras
}

// Key returns the identity of the preference over all fields. Two
// preferences with equal keys are duplicates.
func (p Preference) Key() string {
	extras := ""
	if p.CDExtras != nil {
		extras = p.CDExtras.String()
	}
	return strings.Join([]string{string(p.Format), string(p.Encoding), string(p.Media), extras}, "|")
}

func (p Preference) String() string {
	s := fmt.Sprintf("%s / %s / %s", p.Format, p.Encoding, p.Media)
	if p.CDExtras != nil {
		s += fmt.Sprintf(" (log=%d, cue=%t)", p.CDExtras.LogScore, p.CDExtras.HasCue)
	}
	return s
}

// ParsePreference validates and builds one preference entry from raw config
// strings. logScore/hasCue may be nil for non-CD media.
func ParsePreference(format, encoding, media string, logScore *int, hasCue *bool) (Preference, error) {
	p := Preference{
		Format:   Format(format),
		Encoding: Encoding(encoding),
		Media:    Media(media),
	}
	if _, ok := validFormats[p.Format]; !ok {
		return Preference{}, fmt.Errorf("unknown format %q", format)
	}
	if _, ok := validEncodings[p.Encoding]; !ok {
		return Preference{}, fmt.Errorf("unknown encoding %q", encoding)
	}
	if _, ok := validMedia[p.Media]; !ok {
		return Preference{}, fmt.Errorf("unknown media %q", media)
	}

	if p.Media == MediaCD {
		if logScore == nil || hasCue == nil {
			return Preference{}, fmt.Errorf("preference with media %s must set cd_only_extras", MediaCD)
		}
		if _, ok := validLogScores[*logScore]; !ok {
			return Preference{}, fmt.Errorf("cd_only_extras.log must be one of -1, 0, 1, 100; got %d", *logScore)
		}
		p.CDExtras = &CDExtras{LogScore: *logScore, HasCue: *hasCue}
	} else if logScore != nil || hasCue != nil {
		return Preference{}, fmt.Errorf("cd_only_extras only applies to media %s", MediaCD)
	}
	return p, nil
}

// ValidatePreferences rejects empty lists and duplicate entries. The engine
// must refuse to run without a usable preference ordering.
func ValidatePreferences(prefs []Preference) error {
	if len(prefs) == 0 {
		return fmt.Errorf("preference list must not be empty")
	}
	seen := make(map[string]struct{}, len(prefs))
	for _, p := range prefs {
		key := p.Key()
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate preference entry: %s", p)
		}
		seen[key] = struct{}{}
	}
	return nil
}
