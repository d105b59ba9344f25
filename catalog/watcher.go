package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"CadenzaFM/logger"
	"CadenzaFM/model"
)

const rescanDebounce = 2 * time.Second

// Watcher rescans the media directory when files change while the
// server runs. Bursts of events (an album being copied in) collapse
// into one scan via debouncing.
type Watcher struct {
	scanner  *Scanner
	onChange func([]model.Track)
	fsw      *fsnotify.Watcher
	stop     chan struct{}
}

// NewWatcher creates a watcher that calls onChange with the fresh
// catalog after each completed rescan.
func NewWatcher(scanner *Scanner, onChange func([]model.Track)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		scanner:  scanner,
		onChange: onChange,
		fsw:      fsw,
		stop:     make(chan struct{}),
	}, nil
}

// Start registers the media tree and begins watching. Returns after
// spawning the event loop.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addRecursive(w.scanner.cfg.MediaDir); err != nil {
		return err
	}

	go w.loop(ctx)
	logger.Info("watching media directory", logger.String("dir", w.scanner.cfg.MediaDir))
	return nil
}

// Stop shuts the watcher down.
func (w *Watcher) Stop() {
	close(w.stop)
	w.fsw.Close()
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}

func (w *Watcher) loop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			// New directories must join the watch before their files
			// produce events.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(event.Name); err != nil {
						logger.Warn("failed to watch new directory", logger.ErrorField(err))
					}
				}
			}
			if timer == nil {
				timer = time.NewTimer(rescanDebounce)
				timerC = timer.C
			} else {
				timer.Reset(rescanDebounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			w.rescan(ctx)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("media watcher error", logger.ErrorField(err))

		case <-w.stop:
			return

		case <-ctx.Done():
			return
		}
	}
}

// relevant filters events down to media files and directory creation.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	if ext == ".mp3" || ext == ".lrc" || ext == ".jpg" || ext == ".jpeg" || ext == ".png" {
		return true
	}
	// Could be a directory; stat only answers for paths that still exist.
	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		return true
	}
	return false
}

func (w *Watcher) rescan(ctx context.Context) {
	logger.Info("media changed, rescanning")
	tracks, err := w.scanner.Scan(ctx)
	if err != nil {
		logger.Error("rescan failed", logger.ErrorField(err))
		return
	}
	if w.onChange != nil {
		w.onChange(tracks)
	}
}
