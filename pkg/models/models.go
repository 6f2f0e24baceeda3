package models

// ItemType identifies what a playlist item references
const (
	ItemTypeYouTube = "youtube"
	ItemTypeMP3     = "mp3"
)

// User represents a persisted user account with its owned playlists
type User struct {
	Username     string     `json:"username"`
	PasswordHash string     `json:"passwordHash"`
	FirstName    string     `json:"firstName"`
	ImageURL     string     `json:"imageUrl"`
	Playlists    []Playlist `json:"playlists"`
}

// Public returns the projection of the user that is safe to expose
// to clients and store in sessions. Never includes the password hash.
func (u *User) Public() PublicUser {
	return PublicUser{
		Username:  u.Username,
		FirstName: u.FirstName,
		ImageURL:  u.ImageURL,
	}
}

// PublicUser is the client-facing view of a user
type PublicUser struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	ImageURL  string `json:"imageUrl"`
}

// Playlist represents a named ordered collection of items owned by one user
type Playlist struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"` // RFC3339
	Items     []Item `json:"items"`
}

// SearchResult is one enriched entry returned by the YouTube search proxy
type SearchResult struct {
	VideoID   string `json:"videoId"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	Duration  string `json:"duration"`
	Views     string `json:"views"`
}

// Item is a playable reference inside a playlist: an external video
// or an uploaded audio file, plus a user rating.
type Item struct {
	ItemID string `json:"itemId"`
	Type   string `json:"type"`

	// YouTube items
	VideoID string `json:"videoId,omitempty"`
	Title   string `json:"title,omitempty"`

	// MP3 items
	FileURL      string `json:"fileUrl,omitempty"`
	OriginalName string `json:"originalName,omitempty"`

	Rating int `json:"rating"`
}
