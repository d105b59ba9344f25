package player

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"CadenzaFM/core/audio"
	"CadenzaFM/model"
)

// fakeEngine records calls and lets tests emit engine events manually,
// standing in for the asynchronous beep backend.
type fakeEngine struct {
	mu        sync.Mutex
	calls     []string
	loadCount int
	cb        audio.Callbacks
	loaded    bool
	duration  float64
	position  float64
	volume    float64
	loadErr   error
}

func (f *fakeEngine) Load(uri string, cb audio.Callbacks) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "load:"+uri)
	f.loadCount++
	if f.loadErr != nil {
		return f.loadErr
	}
	f.cb = cb
	f.loaded = true
	f.duration = 180
	f.position = 0
	return nil
}

func (f *fakeEngine) Play() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "play")
}

func (f *fakeEngine) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "pause")
}

func (f *fakeEngine) Seek(t float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("seek:%.1f", t))
	if t < 0 {
		t = 0
	}
	if t > f.duration {
		t = f.duration
	}
	f.position = t
}

func (f *fakeEngine) SetVolume(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("volume:%.2f", v))
	f.volume = v
}

func (f *fakeEngine) Position() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.position
}

func (f *fakeEngine) Duration() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.loaded {
		return 0
	}
	return f.duration
}

func (f *fakeEngine) Unload() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "unload")
	f.loaded = false
	f.cb = audio.Callbacks{}
}

func (f *fakeEngine) callbacks() audio.Callbacks {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cb
}

func (f *fakeEngine) callList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeEngine) emitTick(t float64) {
	cb := f.callbacks()
	if cb.OnTick != nil {
		cb.OnTick(t)
	}
}

func (f *fakeEngine) emitEnded() {
	cb := f.callbacks()
	if cb.OnEnded != nil {
		cb.OnEnded()
	}
}

// mapFetcher serves canned lyric sequences by URL.
type mapFetcher struct {
	lines map[string][]model.LyricLine
}

func (m *mapFetcher) Fetch(_ context.Context, url string) ([]model.LyricLine, error) {
	if lines, ok := m.lines[url]; ok {
		return lines, nil
	}
	return nil, fmt.Errorf("no lyrics at %s", url)
}

// blockingFetcher holds every fetch until released, to simulate a slow
// network response arriving after a track change.
type blockingFetcher struct {
	release chan struct{}
	lines   []model.LyricLine
}

func (b *blockingFetcher) Fetch(_ context.Context, _ string) ([]model.LyricLine, error) {
	<-b.release
	return b.lines, nil
}

func testTracks() []model.Track {
	return []model.Track{
		{ID: "a", Title: "Alpha", Artist: "Artist", AudioURL: "http://media/a.mp3"},
		{ID: "b", Title: "Beta", Artist: "Artist", AudioURL: "http://media/b.mp3", LyricsURL: "http://media/b.lrc"},
		{ID: "c", Title: "Gamma", Artist: "Artist", AudioURL: "http://media/c.mp3"},
	}
}

func newTestController(fetcher interface {
	Fetch(context.Context, string) ([]model.LyricLine, error)
}) (*Controller, *fakeEngine) {
	engine := &fakeEngine{}
	c := New(engine, fetcher, 1.0)
	c.SetTracks(testTracks())
	return c, engine
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func TestNextWrapsAround(t *testing.T) {
	c, _ := newTestController(&mapFetcher{})
	defer c.Close()

	c.PlayTrack(1)
	for i := 0; i < 3; i++ {
		c.Next()
	}
	if got := c.State().CurrentIndex; got != 1 {
		t.Errorf("after n calls to Next, index = %d, want 1", got)
	}
}

func TestPreviousWrapsFromZero(t *testing.T) {
	c, _ := newTestController(&mapFetcher{})
	defer c.Close()

	c.PlayTrack(0)
	c.Previous()
	if got := c.State().CurrentIndex; got != 2 {
		t.Errorf("Previous from 0 gave index %d, want 2", got)
	}
}

func TestEmptyCatalogTransportNoOps(t *testing.T) {
	engine := &fakeEngine{}
	c := New(engine, &mapFetcher{}, 1.0)
	defer c.Close()

	c.PlayTrack(0)
	c.Next()
	c.Previous()
	c.TogglePlay()

	state := c.State()
	if state.CurrentIndex != -1 {
		t.Errorf("index = %d, want -1", state.CurrentIndex)
	}
	if engine.loadCount != 0 {
		t.Errorf("engine loaded %d times, want 0", engine.loadCount)
	}
}

func TestOutOfRangeIndexIgnored(t *testing.T) {
	c, engine := newTestController(&mapFetcher{})
	defer c.Close()

	c.PlayTrack(7)
	c.PlayTrack(-3)

	if got := c.State().CurrentIndex; got != -1 {
		t.Errorf("index = %d, want -1", got)
	}
	if engine.loadCount != 0 {
		t.Errorf("engine loaded %d times, want 0", engine.loadCount)
	}
}

func TestReselectTogglesInsteadOfReloading(t *testing.T) {
	c, engine := newTestController(&mapFetcher{})
	defer c.Close()

	c.PlayTrack(0)
	if engine.loadCount != 1 {
		t.Fatalf("loadCount = %d, want 1", engine.loadCount)
	}
	if !c.State().IsPlaying {
		t.Fatal("not playing after PlayTrack")
	}

	c.PlayTrack(0)
	if engine.loadCount != 1 {
		t.Errorf("re-select created a new session: loadCount = %d, want 1", engine.loadCount)
	}
	if c.State().IsPlaying {
		t.Error("re-select did not pause")
	}

	c.PlayTrack(0)
	if !c.State().IsPlaying {
		t.Error("third select did not resume")
	}
	if engine.loadCount != 1 {
		t.Errorf("loadCount = %d, want 1", engine.loadCount)
	}
}

func TestTeardownBeforeSetup(t *testing.T) {
	c, engine := newTestController(&mapFetcher{})
	defer c.Close()

	c.PlayTrack(0)
	c.PlayTrack(1)

	calls := engine.callList()
	loadA, unloadAfterA, loadB := -1, -1, -1
	for i, call := range calls {
		switch {
		case call == "load:http://media/a.mp3":
			loadA = i
		case call == "unload" && loadA >= 0 && unloadAfterA < 0 && i > loadA:
			unloadAfterA = i
		case call == "load:http://media/b.mp3":
			loadB = i
		}
	}
	if loadA < 0 || loadB < 0 {
		t.Fatalf("missing loads in call sequence %v", calls)
	}
	if !(loadA < unloadAfterA && unloadAfterA < loadB) {
		t.Errorf("expected unload of A before load of B, got sequence %v", calls)
	}
}

func TestVolumePersistsAcrossTrackChange(t *testing.T) {
	c, engine := newTestController(&mapFetcher{})
	defer c.Close()

	c.SetVolume(0.2)
	c.PlayTrack(0)
	c.PlayTrack(1)

	if engine.volume != 0.2 {
		t.Errorf("engine volume = %v, want 0.2", engine.volume)
	}
	if got := c.State().Volume; got != 0.2 {
		t.Errorf("state volume = %v, want 0.2", got)
	}
}

func TestSetVolumeClamps(t *testing.T) {
	c, _ := newTestController(&mapFetcher{})
	defer c.Close()

	c.SetVolume(1.8)
	if got := c.State().Volume; got != 1.0 {
		t.Errorf("volume = %v, want 1.0", got)
	}
	c.SetVolume(-0.4)
	if got := c.State().Volume; got != 0 {
		t.Errorf("volume = %v, want 0", got)
	}
}

func TestAutoAdvanceOnEnded(t *testing.T) {
	c, engine := newTestController(&mapFetcher{})
	defer c.Close()

	c.PlayTrack(1)
	engine.emitEnded()
	if got := c.State().CurrentIndex; got != 2 {
		t.Fatalf("after ended, index = %d, want 2", got)
	}

	// End of the last track wraps to the head, like a manual skip.
	engine.emitEnded()
	if got := c.State().CurrentIndex; got != 0 {
		t.Errorf("after ended on last track, index = %d, want 0", got)
	}
}

func TestLyricSynchronizationScenario(t *testing.T) {
	fetcher := &mapFetcher{lines: map[string][]model.LyricLine{
		"http://media/b.lrc": {
			{TimeSeconds: 0.0, Text: "la"},
			{TimeSeconds: 2.5, Text: "la la"},
		},
	}}
	c, engine := newTestController(fetcher)
	defer c.Close()

	c.PlayTrack(1)
	waitFor(t, func() bool { return len(c.State().Lyrics) == 2 }, "lyrics to load")

	engine.emitTick(1.0)
	if got := c.State().CurrentLyricIndex; got != 0 {
		t.Errorf("lyric index at t=1.0 is %d, want 0", got)
	}

	engine.emitTick(2.5)
	if got := c.State().CurrentLyricIndex; got != 1 {
		t.Errorf("lyric index at t=2.5 is %d, want 1", got)
	}

	// Past the last line the final lyric stays active.
	engine.emitTick(170.0)
	if got := c.State().CurrentLyricIndex; got != 1 {
		t.Errorf("lyric index past last line is %d, want 1", got)
	}

	c.Next()
	state := c.State()
	if state.CurrentIndex != 2 {
		t.Errorf("index after Next = %d, want 2", state.CurrentIndex)
	}
	if len(state.Lyrics) != 0 {
		t.Errorf("lyrics not reset on track change: %v", state.Lyrics)
	}
	if state.CurrentLyricIndex != -1 {
		t.Errorf("lyric index after track change = %d, want -1", state.CurrentLyricIndex)
	}
}

func TestStaleLyricFetchDiscarded(t *testing.T) {
	fetcher := &blockingFetcher{
		release: make(chan struct{}),
		lines:   []model.LyricLine{{TimeSeconds: 0, Text: "too late"}},
	}
	c, _ := newTestController(fetcher)
	defer c.Close()

	c.PlayTrack(1) // fetch blocks
	c.Next()       // supersedes the session before the fetch resolves
	close(fetcher.release)

	time.Sleep(50 * time.Millisecond)
	state := c.State()
	if state.CurrentIndex != 2 {
		t.Fatalf("index = %d, want 2", state.CurrentIndex)
	}
	if len(state.Lyrics) != 0 {
		t.Errorf("stale lyric response was applied: %v", state.Lyrics)
	}
	if state.CurrentLyricIndex != -1 {
		t.Errorf("lyric index = %d, want -1", state.CurrentLyricIndex)
	}
}

func TestStaleTickDiscarded(t *testing.T) {
	c, engine := newTestController(&mapFetcher{})
	defer c.Close()

	c.PlayTrack(0)
	oldCallbacks := engine.callbacks()

	c.PlayTrack(1)
	oldCallbacks.OnTick(55.0)

	if got := c.State().CurrentTimeSeconds; got != 0 {
		t.Errorf("stale tick mutated position: %v, want 0", got)
	}
}

func TestSeekRecomputesLyricIndexImmediately(t *testing.T) {
	fetcher := &mapFetcher{lines: map[string][]model.LyricLine{
		"http://media/b.lrc": {
			{TimeSeconds: 0.0, Text: "la"},
			{TimeSeconds: 2.5, Text: "la la"},
		},
	}}
	c, _ := newTestController(fetcher)
	defer c.Close()

	c.PlayTrack(1)
	waitFor(t, func() bool { return len(c.State().Lyrics) == 2 }, "lyrics to load")

	// No tick between seek and assertion: the recompute is part of
	// the seek itself.
	c.Seek(3.0)
	state := c.State()
	if state.CurrentLyricIndex != 1 {
		t.Errorf("lyric index after seek = %d, want 1", state.CurrentLyricIndex)
	}
	if state.CurrentTimeSeconds != 3.0 {
		t.Errorf("position after seek = %v, want 3.0", state.CurrentTimeSeconds)
	}
}

func TestSeekClampsToDuration(t *testing.T) {
	c, _ := newTestController(&mapFetcher{})
	defer c.Close()

	c.PlayTrack(0)
	c.Seek(1e6)
	if got := c.State().CurrentTimeSeconds; got != 180 {
		t.Errorf("position = %v, want 180", got)
	}

	c.Seek(-5)
	if got := c.State().CurrentTimeSeconds; got != 0 {
		t.Errorf("position = %v, want 0", got)
	}
}

func TestLoadFailureLeavesSafeState(t *testing.T) {
	c, engine := newTestController(&mapFetcher{})
	defer c.Close()

	engine.loadErr = fmt.Errorf("connection refused")
	c.PlayTrack(0)

	state := c.State()
	if state.CurrentIndex != 0 {
		t.Errorf("index = %d, want 0", state.CurrentIndex)
	}
	if state.IsPlaying {
		t.Error("playing after failed load")
	}
	if state.DurationSeconds != 0 || state.CurrentTimeSeconds != 0 {
		t.Errorf("expected zero clock, got t=%v d=%v", state.CurrentTimeSeconds, state.DurationSeconds)
	}

	// Navigation must still work once the backend recovers.
	engine.loadErr = nil
	c.Next()
	state = c.State()
	if state.CurrentIndex != 1 || !state.IsPlaying {
		t.Errorf("after recovery: index=%d playing=%v, want 1/true", state.CurrentIndex, state.IsPlaying)
	}
}

func TestTogglePlayAfterFailedLoadStaysSilent(t *testing.T) {
	c, engine := newTestController(&mapFetcher{})
	defer c.Close()

	engine.loadErr = fmt.Errorf("connection refused")
	c.PlayTrack(0)

	// Neither an explicit toggle nor a re-select may claim playback
	// while the session has nothing loaded.
	c.TogglePlay()
	if c.State().IsPlaying {
		t.Error("TogglePlay reported playing with no loaded stream")
	}

	c.PlayTrack(0)
	if c.State().IsPlaying {
		t.Error("re-select reported playing with no loaded stream")
	}

	for _, call := range engine.callList() {
		if call == "play" {
			t.Fatalf("engine received play for a failed session: %v", engine.callList())
		}
	}
}

func TestStaleIndexAfterCatalogRefresh(t *testing.T) {
	c, _ := newTestController(&mapFetcher{})
	defer c.Close()

	c.PlayTrack(2)
	c.SetTracks(testTracks()[:1])

	state := c.State()
	if state.CurrentIndex != -1 {
		t.Errorf("index = %d, want -1 after catalog shrank", state.CurrentIndex)
	}
	if state.IsPlaying {
		t.Error("still playing a track that no longer exists")
	}
}

type recordingBridge struct {
	mu      sync.Mutex
	entries []string
}

func (b *recordingBridge) Publish(track *model.Track, playing bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := "none"
	if track != nil {
		id = track.ID
	}
	b.entries = append(b.entries, fmt.Sprintf("%s/%v", id, playing))
}

func TestBridgeReceivesTrackChanges(t *testing.T) {
	c, _ := newTestController(&mapFetcher{})
	defer c.Close()

	bridge := &recordingBridge{}
	c.SetBridge(bridge)

	c.PlayTrack(0)
	c.TogglePlay()

	bridge.mu.Lock()
	defer bridge.mu.Unlock()
	if len(bridge.entries) != 2 {
		t.Fatalf("bridge got %d publishes, want 2: %v", len(bridge.entries), bridge.entries)
	}
	if bridge.entries[0] != "a/true" {
		t.Errorf("first publish = %q, want %q", bridge.entries[0], "a/true")
	}
	if bridge.entries[1] != "a/false" {
		t.Errorf("second publish = %q, want %q", bridge.entries[1], "a/false")
	}
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	c, _ := newTestController(&mapFetcher{})
	defer c.Close()

	ch, cancel := c.Subscribe()
	defer cancel()

	c.PlayTrack(0)

	select {
	case state := <-ch:
		if state.CurrentIndex != 0 {
			t.Errorf("snapshot index = %d, want 0", state.CurrentIndex)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}
}
