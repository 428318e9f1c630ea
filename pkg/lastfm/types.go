package lastfm

// AlbumInfo is the album.getinfo payload the pipeline consumes.
type AlbumInfo struct {
	Artist      string
	Name        string
	URL         string
	ReleaseMBID string
}

// AlbumRef names the album a track belongs to.
type AlbumRef struct {
	Title string
	MBID  string
}

// TrackInfo is the track.getinfo payload the pipeline consumes. Album is
// nil when the service has no album for the track.
type TrackInfo struct {
	Track      string
	URL        string
	ArtistName string
	ArtistMBID string
	Album      *AlbumRef
}

type albumResponse struct {
	Artist string `json:"artist"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	MBID   string `json:"mbid"`
}

type trackResponse struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Artist struct {
		Name string `json:"name"`
		MBID string `json:"mbid"`
	} `json:"artist"`
	Album *struct {
		Title string `json:"title"`
		MBID  string `json:"mbid"`
	} `json:"album"`
}
