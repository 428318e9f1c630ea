package search

import (
	"fmt"

	"github.com/vmunix/recarr/internal/recs"
	"github.com/vmunix/recarr/pkg/gazelle"
)

// SkipReason enumerates the terminal skip states an item can end a run in.
// Values are stable identifiers; Description carries the user-facing text
// shown in the run report.
type SkipReason string

const (
	SkipNone             SkipReason = ""
	SkipAlreadySnatched  SkipReason = "already_snatched"
	SkipContextFiltering SkipReason = "context_filtering"
	SkipNoSourceRelease  SkipReason = "no_source_release_found"
	SkipUnresolvedFields SkipReason = "unresolved_required_search_fields"
	SkipAboveMaxSize     SkipReason = "above_max_size"
	SkipNoMatchFound     SkipReason = "no_match_found"
	SkipDupeOfAnotherRec SkipReason = "dupe_of_another_rec"
	SkipMinRatioLimit    SkipReason = "min_ratio_limit"
)

var skipDescriptions = map[SkipReason]string{
	SkipAlreadySnatched:  "Pre-existing snatch found in release group.",
	SkipContextFiltering: "Recs with context 'in_library' ignored when 'allow_library_items' = false.",
	SkipNoSourceRelease:  "No origin release could be resolved for the track rec.",
	SkipUnresolvedFields: "One or more required search refinement fields could not be resolved.",
	SkipAboveMaxSize:     "All index matches' size > 'max_size_gb' config setting.",
	SkipNoMatchFound:     "No index match found.",
	SkipDupeOfAnotherRec: "Torrent already matched by another rec in this run.",
	SkipMinRatioLimit:    "Snatching would drop ratio below 'min_allowed_ratio'.",
}

// Description returns the user-facing text for the reason.
func (r SkipReason) Description() string {
	if d, ok := skipDescriptions[r]; ok {
		return d
	}
	return string(r)
}

// FieldMode controls one optional browse refinement field.
type FieldMode int

const (
	// FieldOff omits the refinement from browse queries.
	FieldOff FieldMode = iota
	// FieldOn applies the refinement when its value resolves.
	FieldOn
	// FieldRequired skips the item when the value cannot be resolved.
	FieldRequired
)

// ParseFieldMode parses the configuration spelling of a FieldMode.
func ParseFieldMode(s string) (FieldMode, error) {
	switch s {
	case "off", "":
		return FieldOff, nil
	case "on":
		return FieldOn, nil
	case "required":
		return FieldRequired, nil
	}
	return FieldOff, fmt.Errorf("unknown refinement mode %q", s)
}

func (m FieldMode) enabled() bool { return m != FieldOff }

// Refinements carries the registry attributes that can narrow a browse query.
// Zero values mean unresolved.
type Refinements struct {
	ReleaseType     int
	FirstYear       int
	RecordLabel     string
	CatalogueNumber string
}

// Item is the unit of work flowing through the pipeline, one per
// recommendation. Created and mutated only by the pipeline; the budget
// accountant and snatch executor read it afterwards.
type Item struct {
	Rec recs.Recommendation

	// ReleaseName starts as the recommended entity and is overwritten with
	// the origin release once track resolution succeeds.
	ReleaseName string
	ReleaseMBID string
	ArtistMBID  string

	Refinements Refinements

	Match            *gazelle.Torrent
	AboveMaxSizeSeen bool
	Skip             SkipReason
}

// NewItem starts an item from a recommendation.
func NewItem(rec recs.Recommendation) *Item {
	return &Item{Rec: rec, ReleaseName: rec.Entity}
}

// TrackName returns the recommended track, or "" for album recs.
func (it *Item) TrackName() string {
	if it.Rec.Kind != recs.KindTrack {
		return ""
	}
	return it.Rec.Entity
}

// Matched reports whether the item ended the pipeline with a usable match.
// A skipped item may still carry its candidate for reporting.
func (it *Item) Matched() bool {
	return it.Match != nil && it.Skip == SkipNone
}

func (it *Item) skip(reason SkipReason) {
	it.Skip = reason
}

// MarkSkipped records a terminal skip reason decided after the pipeline,
// such as the budget accountant's ratio-limit rejection.
func (it *Item) MarkSkipped(reason SkipReason) {
	it.skip(reason)
}
