// Package audio wraps the audio decode/output backend behind a small
// engine interface: one underlying output resource, bound to one URI
// at a time, reporting time through periodic ticks while audible.
package audio

// Callbacks carries the events an engine emits to its owner. Any field
// may be nil. OnPlay/OnPause fire only on actual state transitions;
// redundant Play/Pause calls emit nothing.
type Callbacks struct {
	OnLoaded func(durationSeconds float64)
	OnPlay   func()
	OnPause  func()
	OnEnded  func()
	OnSeeked func(timeSeconds float64)

	// OnTick reports the playback position at a fixed interval while
	// the engine is playing. Polling starts on play and stops on
	// pause, end of track, and unload.
	OnTick func(timeSeconds float64)
}

// Engine is the playback clock adapter. Implementations own exactly
// one output resource; Load rebinds it and Unload must release it on
// every exit path.
type Engine interface {
	// Load binds the engine to a new URI and registers the event
	// callbacks. A failed load leaves the engine in a safe zero-duration
	// state; the returned error is informational, not fatal.
	Load(uri string, cb Callbacks) error

	// Play and Pause are idempotent.
	Play()
	Pause()

	// Seek clamps to [0, duration] and reports the clamped position
	// synchronously through OnSeeked.
	Seek(timeSeconds float64)

	// SetVolume clamps to [0,1] and applies immediately, independent of
	// play state.
	SetVolume(v float64)

	Position() float64
	Duration() float64

	// Unload stops playback, stops polling, and releases the resource.
	Unload()
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
