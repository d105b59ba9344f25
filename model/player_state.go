package model

// PlayerState is the derived snapshot the playback controller exposes
// to its consumers (browser views, WebSocket push, MPRIS). Views only
// read it; all mutation goes through controller methods.
type PlayerState struct {
	CurrentTrack       *Track      `json:"currentTrack"`
	CurrentIndex       int         `json:"currentIndex"` // -1 when no track is selected
	IsPlaying          bool        `json:"isPlaying"`
	CurrentTimeSeconds float64     `json:"currentTimeSeconds"`
	DurationSeconds    float64     `json:"durationSeconds"`
	Volume             float64     `json:"volume"`
	Lyrics             []LyricLine `json:"lyrics"`
	CurrentLyricIndex  int         `json:"currentLyricIndex"` // -1 before the first line's time
}
