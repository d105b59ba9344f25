package model

// LyricLine is one timestamped line of a lyric document. A lyric
// document is an ascending sequence of LyricLine; duplicate timestamps
// keep their document order.
type LyricLine struct {
	TimeSeconds float64 `json:"timeSeconds"`
	Text        string  `json:"text"`
}
