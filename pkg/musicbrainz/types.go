package musicbrainz

// Release carries the registry attributes the search pipeline can refine
// browse queries with.
type Release struct {
	MBID             string
	Title            string
	Artist           string
	PrimaryType      string
	Date             string
	FirstReleaseYear int
	Label            string
	CatalogueNumber  string
	ReleaseGroupMBID string
}

// TrackOrigin is the release a track recommendation originates from.
type TrackOrigin struct {
	ReleaseMBID string
	ReleaseName string
}

// releaseResponse is the release-lookup API response.
type releaseResponse struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Date         string `json:"date"`
	ArtistCredit []struct {
		Name string `json:"name"`
	} `json:"artist-credit"`
	LabelInfo []struct {
		CatalogNumber string `json:"catalog-number"`
		Label         struct {
			Name string `json:"name"`
		} `json:"label"`
	} `json:"label-info"`
	ReleaseGroup struct {
		ID               string `json:"id"`
		PrimaryType      string `json:"primary-type"`
		FirstReleaseDate string `json:"first-release-date"`
	} `json:"release-group"`
}

// recordingSearchResponse is the recording free-text search response.
type recordingSearchResponse struct {
	Recordings []recording `json:"recordings"`
}

type recording struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Releases []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"releases"`
}
