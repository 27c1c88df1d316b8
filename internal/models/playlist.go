package models

// Playlist represents a remote-owned playlist. The service never creates or deletes playlists.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	OwnerID     string `json:"ownerId,omitempty"`
	TrackCount  int    `json:"trackCount"`
	Public      bool   `json:"public"`
}

// TrackRef is the minimal identity needed to reorder a playlist entry.
type TrackRef struct {
	URI   string `json:"uri"`
	Name  string `json:"name"`
	Local bool   `json:"local,omitempty"` // Spotify local files cannot be re-added by URI
}

// URIs projects tracks to their URIs, preserving order.
func URIs(tracks []TrackRef) []string {
	uris := make([]string, len(tracks))
	for i, t := range tracks {
		uris[i] = t.URI
	}
	return uris
}
