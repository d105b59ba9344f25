package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gopxl/beep/v2/mp3"

	"CadenzaFM/cache"
	"CadenzaFM/config"
	"CadenzaFM/logger"
	"CadenzaFM/model"
	"CadenzaFM/repository"
	"CadenzaFM/storage"
)

// ObjectStore is where scanned media ends up; the production
// implementation is MinIO.
type ObjectStore interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader, size int64) (string, error)
	URL(objectPath string) string
}

// IngestCache is the idempotency cache over content hashes: a file
// whose hash is already marked is not uploaded again.
type IngestCache interface {
	Seen(ctx context.Context, contentHash string) (bool, error)
	Mark(ctx context.Context, contentHash string) error
}

// MinioStore implements ObjectStore over the global MinIO client.
type MinioStore struct {
	Cfg *config.Config
}

func (s *MinioStore) Upload(ctx context.Context, objectPath, contentType string, r io.Reader, size int64) (string, error) {
	return storage.UploadObject(ctx, s.Cfg, objectPath, contentType, r, size)
}

func (s *MinioStore) URL(objectPath string) string {
	return storage.PublicURL(s.Cfg, objectPath)
}

// RedisIngestCache implements IngestCache over the catalog ingest set.
type RedisIngestCache struct{}

func (RedisIngestCache) Seen(ctx context.Context, contentHash string) (bool, error) {
	return cache.IsIngested(ctx, contentHash)
}

func (RedisIngestCache) Mark(ctx context.Context, contentHash string) error {
	return cache.MarkIngested(ctx, contentHash)
}

// Scanner walks the media directory, uploads audio, cover art and
// lyric files to the object store, records tracks in the repository
// and regenerates catalog.json.
type Scanner struct {
	cfg    *config.Config
	repo   repository.TrackRepository
	store  ObjectStore
	ingest IngestCache

	// measure reports a file's playing time; swappable in tests.
	measure func(path string) (float64, error)
}

// NewScanner wires a scanner over the given collaborators.
func NewScanner(cfg *config.Config, repo repository.TrackRepository, store ObjectStore, ingest IngestCache) *Scanner {
	return &Scanner{cfg: cfg, repo: repo, store: store, ingest: ingest, measure: audioDuration}
}

// audioDuration decodes the file's frame chain to measure its playing
// time. An undecodable file reports an error and stays in the catalog
// with a zero duration.
func audioDuration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return 0, err
	}
	defer streamer.Close()

	return format.SampleRate.D(streamer.Len()).Seconds(), nil
}

// trackNumberPattern matches the numeric-prefix filename convention,
// e.g. "01 Opening". The prefix is track-number metadata, parsed into
// its own field; titles are stored clean.
var trackNumberPattern = regexp.MustCompile(`^(\d{2})\s+(.+)$`)

// splitTrackNumber extracts the numeric prefix from a file base name.
func splitTrackNumber(base string) (int, string) {
	if m := trackNumberPattern.FindStringSubmatch(base); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n, m[2]
	}
	return 0, base
}

// Scan performs a full pass over the media directory and returns the
// resulting catalog sorted for display. Individual file failures are
// logged and skipped; only a broken walk fails the scan.
func (s *Scanner) Scan(ctx context.Context) ([]model.Track, error) {
	tracks := make([]model.Track, 0)

	err := filepath.WalkDir(s.cfg.MediaDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".mp3") {
			return nil
		}

		track, scanErr := s.scanFile(ctx, path)
		if scanErr != nil {
			logger.Warn("skipping media file", logger.String("path", path), logger.ErrorField(scanErr))
			return nil
		}
		tracks = append(tracks, *track)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("media walk failed: %w", err)
	}

	sort.Slice(tracks, func(i, j int) bool {
		a, b := tracks[i], tracks[j]
		if a.Artist != b.Artist {
			return a.Artist < b.Artist
		}
		if a.Album != b.Album {
			return a.Album < b.Album
		}
		if a.TrackNumber != b.TrackNumber {
			return a.TrackNumber < b.TrackNumber
		}
		return a.Title < b.Title
	})

	if err := s.WriteCatalogJSON(tracks); err != nil {
		logger.Warn("failed to write catalog.json", logger.ErrorField(err))
	}
	if err := cache.InvalidateCatalog(ctx); err != nil {
		logger.Debug("catalog cache invalidation failed", logger.ErrorField(err))
	}

	logger.Info("media scan finished", logger.Int("tracks", len(tracks)))
	return tracks, nil
}

// scanFile ingests one audio file plus its sibling lyric and cover
// assets.
func (s *Scanner) scanFile(ctx context.Context, path string) (*model.Track, error) {
	rel, err := filepath.Rel(s.cfg.MediaDir, path)
	if err != nil {
		return nil, err
	}

	artist, album := splitLibraryPath(rel)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	trackNumber, title := splitTrackNumber(base)

	audioObject := libraryObjectPath("audio", artist, album, filepath.Base(path))
	if err := s.uploadOnce(ctx, path, audioObject); err != nil {
		return nil, err
	}
	audioURL := s.store.URL(audioObject)

	track := &model.Track{
		Title:       title,
		Artist:      artist,
		Album:       album,
		TrackNumber: trackNumber,
		AudioURL:    audioURL,
	}

	if duration, err := s.measure(path); err != nil {
		logger.Debug("duration measurement failed", logger.String("path", path), logger.ErrorField(err))
	} else {
		track.Duration = duration
	}

	// Stable identity across rescans: reuse the row keyed by audio URL.
	if existing, err := s.repo.GetTrackByAudioURL(audioURL); err == nil && existing != nil {
		track.ID = existing.ID
	} else {
		track.ID = uuid.NewString()
	}

	if lrcPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".lrc"; fileExists(lrcPath) {
		lrcObject := libraryObjectPath("lyrics", artist, album, filepath.Base(lrcPath))
		if err := s.uploadOnce(ctx, lrcPath, lrcObject); err != nil {
			logger.Warn("lyrics upload failed", logger.String("path", lrcPath), logger.ErrorField(err))
		} else {
			track.LyricsURL = s.store.URL(lrcObject)
		}
	}

	if coverPath := findCover(filepath.Dir(path)); coverPath != "" {
		coverObject := libraryObjectPath("covers", artist, album, filepath.Base(coverPath))
		if err := s.uploadOnce(ctx, coverPath, coverObject); err != nil {
			logger.Warn("cover upload failed", logger.String("path", coverPath), logger.ErrorField(err))
		} else {
			track.CoverArtURL = s.store.URL(coverObject)
		}
	}

	if err := s.repo.UpsertTrack(track); err != nil {
		return nil, fmt.Errorf("failed to persist track: %w", err)
	}
	return track, nil
}

// uploadOnce uploads a file unless its content hash is already in the
// ingest set. An unreachable ingest cache degrades to re-uploading,
// never to skipping.
func (s *Scanner) uploadOnce(ctx context.Context, path, objectPath string) error {
	hash, size, err := hashFile(path)
	if err != nil {
		return fmt.Errorf("failed to hash %s: %w", path, err)
	}

	if seen, err := s.ingest.Seen(ctx, hash); err == nil && seen {
		logger.Debug("already ingested", logger.String("path", path))
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := s.store.Upload(ctx, objectPath, storage.ContentTypeFor(objectPath), f, size); err != nil {
		return err
	}
	if err := s.ingest.Mark(ctx, hash); err != nil {
		logger.Debug("failed to mark ingested", logger.ErrorField(err))
	}
	return nil
}

// WriteCatalogJSON regenerates the static catalog listing.
func (s *Scanner) WriteCatalogJSON(tracks []model.Track) error {
	if err := os.MkdirAll(s.cfg.StaticDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(tracks, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	path := filepath.Join(s.cfg.StaticDir, "catalog.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// splitLibraryPath derives artist and album from the library layout
// Artist/Album/track.mp3; shallower files fall back gracefully.
func splitLibraryPath(rel string) (artist, album string) {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	switch len(parts) {
	case 1:
		return "Unknown Artist", ""
	case 2:
		return parts[0], ""
	default:
		return parts[0], parts[1]
	}
}

func libraryObjectPath(kind, artist, album, file string) string {
	segments := []string{kind}
	if artist != "" {
		segments = append(segments, artist)
	}
	if album != "" {
		segments = append(segments, album)
	}
	segments = append(segments, file)
	return strings.Join(segments, "/")
}

func findCover(dir string) string {
	for _, name := range []string{"cover.jpg", "cover.jpeg", "cover.png", "folder.jpg"} {
		p := filepath.Join(dir, name)
		if fileExists(p) {
			return p
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func hashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), size, nil
}
