package audio

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"

	"CadenzaFM/logger"
)

const speakerSampleRate = beep.SampleRate(44100)

// SourceReader resolves non-HTTP media URIs to their raw bytes. The
// server installs one that reads catalog URLs from object storage; nil
// falls back to local file reads.
type SourceReader func(uri string) ([]byte, error)

// BeepEngine plays MP3 audio through the system speaker. The source is
// fetched fully into memory before decoding, so network stalls never
// reach the output path.
type BeepEngine struct {
	mu sync.Mutex

	pollInterval time.Duration
	client       *http.Client
	source       SourceReader

	speakerReady bool
	streamer     beep.StreamSeekCloser
	format       beep.Format
	ctrl         *beep.Ctrl
	volume       *effects.Volume

	cb          Callbacks
	playing     bool
	volumeLevel float64
	stopPoll    chan struct{}
}

// NewBeepEngine creates an engine ticking at pollInterval while playing.
func NewBeepEngine(pollInterval time.Duration, source SourceReader) *BeepEngine {
	if pollInterval <= 0 {
		pollInterval = 100 * time.Millisecond
	}
	return &BeepEngine{
		pollInterval: pollInterval,
		client:       &http.Client{Timeout: 30 * time.Second},
		source:       source,
		volumeLevel:  1.0,
	}
}

// Load tears down any current binding, fetches the URI and prepares a
// paused stream. On failure the engine stays in a zero-duration state
// but remains usable for the next Load.
func (e *BeepEngine) Load(uri string, cb Callbacks) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.unloadLocked()
	e.cb = cb

	data, err := e.fetch(uri)
	if err != nil {
		return fmt.Errorf("failed to fetch audio %s: %w", uri, err)
	}

	streamer, format, err := mp3.Decode(nopCloser{bytes.NewReader(data)})
	if err != nil {
		return fmt.Errorf("failed to decode audio %s: %w", uri, err)
	}

	if !e.speakerReady {
		if err := speaker.Init(speakerSampleRate, speakerSampleRate.N(time.Second/10)); err != nil {
			streamer.Close()
			return fmt.Errorf("failed to init speaker: %w", err)
		}
		e.speakerReady = true
	}

	e.streamer = streamer
	e.format = format

	resampled := beep.Resample(4, format.SampleRate, speakerSampleRate, streamer)
	// Start paused; Play flips the ctrl.
	e.ctrl = &beep.Ctrl{Streamer: resampled, Paused: true}
	e.volume = &effects.Volume{
		Streamer: e.ctrl,
		Base:     2,
		Volume:   volumeGain(e.volumeLevel),
		Silent:   e.volumeLevel <= 0,
	}

	speaker.Play(beep.Seq(e.volume, beep.Callback(e.onDrained)))

	if cb.OnLoaded != nil {
		duration := e.durationLocked()
		// Deliver off the caller's stack so Load may run under the
		// owner's lock. OnSeeked alone stays synchronous, per the
		// Engine contract.
		go cb.OnLoaded(duration)
	}
	return nil
}

// fetch reads the full source into memory. Non-HTTP URIs go through
// the installed SourceReader, which knows how to open catalog URLs.
func (e *BeepEngine) fetch(uri string) ([]byte, error) {
	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		resp, err := e.client.Get(uri)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}
	if e.source != nil {
		return e.source(uri)
	}
	return os.ReadFile(uri)
}

// onDrained runs on the speaker goroutine when the stream finishes.
func (e *BeepEngine) onDrained() {
	// Hop off the speaker goroutine before taking locks, otherwise a
	// callback that immediately loads the next track deadlocks.
	go func() {
		e.mu.Lock()
		wasPlaying := e.playing
		e.playing = false
		e.stopPollLocked()
		cb := e.cb
		e.mu.Unlock()

		if wasPlaying && cb.OnEnded != nil {
			cb.OnEnded()
		}
	}()
}

// Play starts playback. A no-op while already playing or with nothing
// loaded.
func (e *BeepEngine) Play() {
	e.mu.Lock()
	if e.ctrl == nil || e.playing {
		e.mu.Unlock()
		return
	}

	speaker.Lock()
	e.ctrl.Paused = false
	speaker.Unlock()
	e.playing = true
	e.startPollLocked()
	cb := e.cb
	e.mu.Unlock()

	if cb.OnPlay != nil {
		go cb.OnPlay()
	}
}

// Pause pauses playback. A no-op while already paused.
func (e *BeepEngine) Pause() {
	e.mu.Lock()
	if e.ctrl == nil || !e.playing {
		e.mu.Unlock()
		return
	}

	speaker.Lock()
	e.ctrl.Paused = true
	speaker.Unlock()
	e.playing = false
	e.stopPollLocked()
	cb := e.cb
	e.mu.Unlock()

	if cb.OnPause != nil {
		go cb.OnPause()
	}
}

// Seek jumps to the clamped position and reports it synchronously so
// the UI never lags a scrub.
func (e *BeepEngine) Seek(timeSeconds float64) {
	e.mu.Lock()
	if e.streamer == nil {
		e.mu.Unlock()
		return
	}

	target := clamp(timeSeconds, 0, e.durationLocked())

	speaker.Lock()
	if err := e.streamer.Seek(e.format.SampleRate.N(secondsToDuration(target))); err != nil {
		logger.Warn("audio seek failed", logger.Float64("target", target), logger.ErrorField(err))
	}
	speaker.Unlock()
	cb := e.cb
	e.mu.Unlock()

	if cb.OnSeeked != nil {
		cb.OnSeeked(target)
	}
}

// SetVolume applies the clamped level immediately and remembers it for
// subsequent loads.
func (e *BeepEngine) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.volumeLevel = clamp(v, 0, 1)
	if e.volume == nil {
		return
	}

	speaker.Lock()
	e.volume.Silent = e.volumeLevel <= 0
	e.volume.Volume = volumeGain(e.volumeLevel)
	speaker.Unlock()
}

// Position returns the current playback position in seconds.
func (e *BeepEngine) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.streamer == nil {
		return 0
	}

	speaker.Lock()
	pos := e.streamer.Position()
	speaker.Unlock()

	return e.format.SampleRate.D(pos).Seconds()
}

// Duration returns the track duration in seconds, 0 when nothing is
// loaded.
func (e *BeepEngine) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.durationLocked()
}

func (e *BeepEngine) durationLocked() float64 {
	if e.streamer == nil {
		return 0
	}
	return e.format.SampleRate.D(e.streamer.Len()).Seconds()
}

// Unload stops playback and releases the stream. Runs on every
// teardown path, including failed loads.
func (e *BeepEngine) Unload() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.unloadLocked()
}

func (e *BeepEngine) unloadLocked() {
	e.stopPollLocked()

	if e.speakerReady {
		speaker.Clear()
	}
	if e.streamer != nil {
		e.streamer.Close()
		e.streamer = nil
	}
	e.ctrl = nil
	e.volume = nil
	e.playing = false
	e.cb = Callbacks{}
}

// startPollLocked starts the tick loop. Caller holds e.mu.
func (e *BeepEngine) startPollLocked() {
	if e.stopPoll != nil {
		return
	}
	stop := make(chan struct{})
	e.stopPoll = stop
	cb := e.cb

	go func() {
		ticker := time.NewTicker(e.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if cb.OnTick != nil {
					cb.OnTick(e.Position())
				}
			}
		}
	}()
}

// stopPollLocked cancels the tick loop. Caller holds e.mu.
func (e *BeepEngine) stopPollLocked() {
	if e.stopPoll != nil {
		close(e.stopPoll)
		e.stopPoll = nil
	}
}

// volumeGain maps the linear [0,1] volume onto beep's exponential
// scale: with Base 2, a Volume of log2(v) yields a gain of exactly v.
func volumeGain(v float64) float64 {
	if v <= 0 {
		return 0 // Silent flag carries the actual muting
	}
	return math.Log2(v)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// nopCloser adapts a bytes.Reader to io.ReadCloser for the decoder.
type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
