// Package player owns playback truth: the current track pointer into
// the catalog, the single live audio session, and the lyric state
// derived from the playback clock. Views, the WebSocket push and the
// MPRIS bridge all consume the same state snapshots; none of them
// mutate playback directly.
package player

import (
	"context"
	"sync"

	"CadenzaFM/core/audio"
	"CadenzaFM/core/lyrics"
	"CadenzaFM/logger"
	"CadenzaFM/model"
)

// MediaBridge publishes now-playing metadata to a host media-session
// surface (MPRIS on the desktop). The bridge drives the controller
// through its public methods when the host presses transport buttons;
// Publish must never call back into the controller.
type MediaBridge interface {
	Publish(track *model.Track, playing bool)
}

// Controller is the playback controller and track sequencer. All
// methods are safe for concurrent use.
type Controller struct {
	mu      sync.Mutex
	engine  audio.Engine
	fetcher lyrics.Fetcher
	bridge  MediaBridge

	tracks       []model.Track
	currentIndex int

	// generation identifies the live session. Teardown bumps it, so
	// stale engine callbacks and late lyric fetches for a superseded
	// track discard themselves.
	generation    uint64
	sessionCancel context.CancelFunc

	// loaded reports whether the live session has a playable stream;
	// false after a failed load, so transport toggles cannot claim to
	// be playing silence.
	loaded   bool
	playing  bool
	position float64
	duration float64
	volume   float64

	lyricLines []model.LyricLine
	lyricIndex int

	subs   map[chan model.PlayerState]struct{}
	closed bool
}

// New creates a controller around an audio engine and a lyric fetcher.
func New(engine audio.Engine, fetcher lyrics.Fetcher, defaultVolume float64) *Controller {
	if defaultVolume < 0 || defaultVolume > 1 {
		defaultVolume = 1.0
	}
	return &Controller{
		engine:       engine,
		fetcher:      fetcher,
		currentIndex: -1,
		volume:       defaultVolume,
		lyricIndex:   -1,
		subs:         make(map[chan model.PlayerState]struct{}),
	}
}

// SetBridge attaches the media-session bridge.
func (c *Controller) SetBridge(b MediaBridge) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bridge = b
}

// SetTracks replaces the catalog. A current index made stale by the
// new list tears the session down rather than raising.
func (c *Controller) SetTracks(tracks []model.Track) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tracks = tracks
	if c.currentIndex >= len(tracks) {
		c.teardownLocked()
		c.currentIndex = -1
		c.broadcastLocked()
	}
}

// Tracks returns the current catalog.
func (c *Controller) Tracks() []model.Track {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracks
}

// PlayTrack selects the track at index and starts playback. Selecting
// the already-current track toggles play/pause instead of reloading.
// Out-of-range indexes are ignored.
func (c *Controller) PlayTrack(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || len(c.tracks) == 0 {
		return
	}
	if index < 0 || index >= len(c.tracks) {
		logger.Warn("play request for out-of-range track index", logger.Int("index", index))
		return
	}
	if index == c.currentIndex {
		c.togglePlayLocked()
		return
	}

	c.loadTrackLocked(index)
}

// Next advances to the following track, wrapping at the end. Natural
// end of track funnels through this same path.
func (c *Controller) Next() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.advanceLocked(1)
}

// Previous steps back one track, wrapping from the first to the last.
func (c *Controller) Previous() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.advanceLocked(-1)
}

func (c *Controller) advanceLocked(delta int) {
	if c.closed {
		return
	}
	n := len(c.tracks)
	if n == 0 {
		return
	}

	var index int
	if c.currentIndex < 0 {
		// Nothing selected yet: next starts at the head, previous at
		// the tail.
		if delta > 0 {
			index = 0
		} else {
			index = n - 1
		}
	} else {
		index = ((c.currentIndex+delta)%n + n) % n
	}

	c.loadTrackLocked(index)
}

// loadTrackLocked tears down the current session and builds a new one.
// Teardown completes before the new load begins, so two polling loops
// never overlap.
func (c *Controller) loadTrackLocked(index int) {
	c.teardownLocked()

	c.currentIndex = index
	track := c.tracks[index]
	gen := c.generation

	ctx, cancel := context.WithCancel(context.Background())
	c.sessionCancel = cancel

	cb := audio.Callbacks{
		OnLoaded: func(duration float64) { c.handleLoaded(gen, duration) },
		OnEnded:  func() { c.handleEnded(gen) },
		OnTick:   func(t float64) { c.handleTick(gen, t) },
	}

	if err := c.engine.Load(track.AudioURL, cb); err != nil {
		// Non-fatal: the track stays selected in a zero-duration paused
		// state and the user can still navigate away.
		logger.Warn("audio load failed",
			logger.String("trackId", track.ID),
			logger.String("url", track.AudioURL),
			logger.ErrorField(err))
	} else {
		c.loaded = true
		c.engine.SetVolume(c.volume)
		c.duration = c.engine.Duration()
		c.engine.Play()
		c.playing = true
	}

	if track.LyricsURL != "" {
		go c.fetchLyrics(ctx, gen, track)
	}

	c.publishLocked()
	c.broadcastLocked()
}

// teardownLocked destroys the live session: cancels the in-flight
// lyric fetch, unloads the engine (which stops its polling), resets
// per-session state and bumps the generation. Volume survives.
func (c *Controller) teardownLocked() {
	c.generation++
	if c.sessionCancel != nil {
		c.sessionCancel()
		c.sessionCancel = nil
	}
	c.engine.Unload()

	c.loaded = false
	c.playing = false
	c.position = 0
	c.duration = 0
	c.lyricLines = nil
	c.lyricIndex = -1
}

// fetchLyrics loads and parses the track's lyric document off the
// audio path. A failed or superseded fetch leaves the empty sequence.
func (c *Controller) fetchLyrics(ctx context.Context, gen uint64, track model.Track) {
	lines, err := c.fetcher.Fetch(ctx, track.LyricsURL)
	if err != nil {
		logger.Warn("lyrics unavailable",
			logger.String("trackId", track.ID),
			logger.ErrorField(err))
		lines = nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		// A late response for a track that is no longer current.
		return
	}
	c.lyricLines = lines
	c.lyricIndex = lyrics.Locate(lines, c.position)
	c.broadcastLocked()
}

// TogglePlay flips play/pause. A no-op with no current track.
func (c *Controller) TogglePlay() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.togglePlayLocked()
}

func (c *Controller) togglePlayLocked() {
	if c.closed || c.currentIndex < 0 || !c.loaded {
		return
	}

	if c.playing {
		c.engine.Pause()
		c.playing = false
	} else {
		c.engine.Play()
		c.playing = true
	}

	c.publishLocked()
	c.broadcastLocked()
}

// Play resumes playback if paused. Used by transport surfaces that
// have distinct play and pause buttons.
func (c *Controller) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.playing {
		c.togglePlayLocked()
	}
}

// Pause pauses playback if playing.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playing {
		c.togglePlayLocked()
	}
}

// Seek jumps to the given position and recomputes the lyric index
// immediately so the lyric display never lags a scrub.
func (c *Controller) Seek(timeSeconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.currentIndex < 0 {
		return
	}

	c.engine.Seek(timeSeconds)
	if timeSeconds < 0 {
		timeSeconds = 0
	}
	if timeSeconds > c.duration {
		timeSeconds = c.duration
	}
	c.position = timeSeconds
	c.lyricIndex = lyrics.Locate(c.lyricLines, timeSeconds)
	c.broadcastLocked()
}

// SetVolume applies the clamped volume now and to every future
// session; volume is the one field that persists across track changes.
func (c *Controller) SetVolume(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	c.volume = v
	c.engine.SetVolume(v)
	c.broadcastLocked()
}

// handleLoaded records the duration reported by a finished load.
func (c *Controller) handleLoaded(gen uint64, duration float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	c.duration = duration
	c.broadcastLocked()
}

// handleTick advances the clock and re-derives the active lyric line.
func (c *Controller) handleTick(gen uint64, t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	c.position = t
	c.lyricIndex = lyrics.Locate(c.lyricLines, t)
	c.broadcastLocked()
}

// handleEnded auto-advances through the same path as a manual skip, so
// wraparound and lyric reset behave identically.
func (c *Controller) handleEnded(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	c.advanceLocked(1)
}

// State returns the current snapshot.
func (c *Controller) State() model.PlayerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() model.PlayerState {
	state := model.PlayerState{
		CurrentIndex:       c.currentIndex,
		IsPlaying:          c.playing,
		CurrentTimeSeconds: c.position,
		DurationSeconds:    c.duration,
		Volume:             c.volume,
		Lyrics:             c.lyricLines,
		CurrentLyricIndex:  c.lyricIndex,
	}
	if c.currentIndex >= 0 && c.currentIndex < len(c.tracks) {
		track := c.tracks[c.currentIndex]
		state.CurrentTrack = &track
	}
	return state
}

// Subscribe registers a consumer of state snapshots. The channel is
// buffered and slow consumers miss intermediate snapshots rather than
// blocking playback. The returned func unsubscribes.
func (c *Controller) Subscribe() (<-chan model.PlayerState, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan model.PlayerState, 16)
	c.subs[ch] = struct{}{}

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, ch)
	}
	return ch, cancel
}

func (c *Controller) broadcastLocked() {
	snapshot := c.stateLocked()
	for ch := range c.subs {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

func (c *Controller) publishLocked() {
	if c.bridge == nil {
		return
	}
	state := c.stateLocked()
	c.bridge.Publish(state.CurrentTrack, state.IsPlaying)
}

// Close tears down the session and detaches all subscribers.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.teardownLocked()
	c.currentIndex = -1
	for ch := range c.subs {
		delete(c.subs, ch)
	}
}
