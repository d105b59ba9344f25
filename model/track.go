package model

import "time"

// Track represents an audio track in the music library. Tracks are
// immutable once produced by the catalog.
type Track struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	Album       string    `json:"album,omitempty"`
	TrackNumber int       `json:"trackNumber,omitempty"`
	AudioURL    string    `json:"audioUrl"`
	CoverArtURL string    `json:"coverArtUrl,omitempty"`
	LyricsURL   string    `json:"lyricsUrl,omitempty"`
	Duration    float64   `json:"duration"` // Duration in seconds, 0 when unknown
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
