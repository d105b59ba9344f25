package catalog

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"CadenzaFM/config"
	"CadenzaFM/model"
)

// memRepo is an in-memory TrackRepository keyed by audio URL.
type memRepo struct {
	mu      sync.Mutex
	byURL   map[string]*model.Track
	upserts int
}

func newMemRepo() *memRepo {
	return &memRepo{byURL: make(map[string]*model.Track)}
}

func (r *memRepo) UpsertTrack(track *model.Track) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++
	copied := *track
	r.byURL[track.AudioURL] = &copied
	return nil
}

func (r *memRepo) GetTrackByID(id string) (*model.Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.byURL {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, nil
}

func (r *memRepo) GetAllTracks() ([]model.Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Track, 0, len(r.byURL))
	for _, t := range r.byURL {
		out = append(out, *t)
	}
	return out, nil
}

func (r *memRepo) GetTracksByArtist(artist string) ([]model.Track, error) {
	all, _ := r.GetAllTracks()
	out := make([]model.Track, 0)
	for _, t := range all {
		if t.Artist == artist {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memRepo) GetTracksByAlbum(album string) ([]model.Track, error) {
	all, _ := r.GetAllTracks()
	out := make([]model.Track, 0)
	for _, t := range all {
		if t.Album == album {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memRepo) GetTrackByAudioURL(audioURL string) (*model.Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.byURL[audioURL]; ok {
		return t, nil
	}
	return nil, nil
}

func (r *memRepo) DeleteTrack(id string) error { return nil }

// memStore records uploads instead of talking to MinIO.
type memStore struct {
	mu      sync.Mutex
	uploads []string
}

func (s *memStore) Upload(_ context.Context, objectPath, _ string, r io.Reader, _ int64) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, objectPath)
	return objectPath, nil
}

func (s *memStore) URL(objectPath string) string {
	return "/static/" + objectPath
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.uploads)
}

// memIngest is a map-backed idempotency cache.
type memIngest struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemIngest() *memIngest {
	return &memIngest{seen: make(map[string]bool)}
}

func (m *memIngest) Seen(_ context.Context, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen[hash], nil
}

func (m *memIngest) Mark(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[hash] = true
	return nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func testLibrary(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	media := filepath.Join(root, "media")

	writeFile(t, filepath.Join(media, "The Band", "First Album", "01 Opening.mp3"), "mp3-opening")
	writeFile(t, filepath.Join(media, "The Band", "First Album", "01 Opening.lrc"), "[00:01.00]hello")
	writeFile(t, filepath.Join(media, "The Band", "First Album", "cover.jpg"), "jpeg-bytes")
	writeFile(t, filepath.Join(media, "The Band", "First Album", "02 Second Song.mp3"), "mp3-second")
	writeFile(t, filepath.Join(media, "Solo", "Untitled.mp3"), "mp3-solo")
	writeFile(t, filepath.Join(media, "loose.mp3"), "mp3-loose")

	return &config.Config{
		MediaDir:  media,
		StaticDir: filepath.Join(root, "static"),
	}
}

func TestSplitTrackNumber(t *testing.T) {
	tests := []struct {
		base      string
		wantNum   int
		wantTitle string
	}{
		{"01 Opening", 1, "Opening"},
		{"12 Some Song", 12, "Some Song"},
		{"99 Red Balloons", 99, "Red Balloons"},
		{"7 Lucky", 0, "7 Lucky"},       // prefix must be two digits
		{"Interlude", 0, "Interlude"},   // no prefix at all
		{"01", 0, "01"},                 // bare number is a title
		{"2024 Vision", 0, "2024 Vision"}, // four digits are not a prefix
	}

	for _, tc := range tests {
		t.Run(tc.base, func(t *testing.T) {
			num, title := splitTrackNumber(tc.base)
			if num != tc.wantNum || title != tc.wantTitle {
				t.Errorf("splitTrackNumber(%q) = (%d, %q), want (%d, %q)",
					tc.base, num, title, tc.wantNum, tc.wantTitle)
			}
		})
	}
}

func TestScanBuildsCatalog(t *testing.T) {
	cfg := testLibrary(t)
	repo := newMemRepo()
	store := &memStore{}
	scanner := NewScanner(cfg, repo, store, newMemIngest())

	tracks, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(tracks) != 4 {
		t.Fatalf("got %d tracks, want 4: %+v", len(tracks), tracks)
	}

	// Sorted by artist/album/number/title; "Solo" < "The Band" and
	// "Unknown Artist" last.
	first := tracks[0]
	if first.Artist != "Solo" || first.Title != "Untitled" {
		t.Errorf("first track = %s/%s, want Solo/Untitled", first.Artist, first.Title)
	}

	opening := tracks[1]
	if opening.Title != "Opening" || opening.TrackNumber != 1 {
		t.Errorf("expected Opening with number 1, got %q number %d", opening.Title, opening.TrackNumber)
	}
	if opening.Album != "First Album" || opening.Artist != "The Band" {
		t.Errorf("wrong artist/album: %s/%s", opening.Artist, opening.Album)
	}
	if opening.LyricsURL == "" {
		t.Error("sibling .lrc not attached")
	}
	if opening.CoverArtURL == "" {
		t.Error("album cover not attached")
	}
	if opening.ID == "" {
		t.Error("track has no ID")
	}

	second := tracks[2]
	if second.TrackNumber != 2 || second.Title != "Second Song" {
		t.Errorf("second track parsed as %q number %d", second.Title, second.TrackNumber)
	}
	if second.LyricsURL != "" {
		t.Error("track without .lrc got a lyrics URL")
	}

	loose := tracks[3]
	if loose.Artist != "Unknown Artist" || loose.Album != "" {
		t.Errorf("loose file got artist %q album %q", loose.Artist, loose.Album)
	}
}

func TestScanMeasuresDuration(t *testing.T) {
	cfg := testLibrary(t)
	repo := newMemRepo()
	scanner := NewScanner(cfg, repo, &memStore{}, newMemIngest())
	scanner.measure = func(path string) (float64, error) { return 123.5, nil }

	tracks, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	for _, tr := range tracks {
		if tr.Duration != 123.5 {
			t.Errorf("track %s has duration %v, want 123.5", tr.Title, tr.Duration)
		}
	}

	// The measured duration reaches persistence, not just the slice.
	stored, _ := repo.GetAllTracks()
	for _, tr := range stored {
		if tr.Duration != 123.5 {
			t.Errorf("stored track %s has duration %v, want 123.5", tr.Title, tr.Duration)
		}
	}
}

func TestScanToleratesUndecodableAudio(t *testing.T) {
	cfg := testLibrary(t)
	scanner := NewScanner(cfg, newMemRepo(), &memStore{}, newMemIngest())

	// The fixture files are not real MP3 frames; decoding fails and
	// the tracks stay in the catalog with a zero duration.
	tracks, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(tracks) != 4 {
		t.Fatalf("got %d tracks, want 4", len(tracks))
	}
	for _, tr := range tracks {
		if tr.Duration != 0 {
			t.Errorf("track %s has duration %v, want 0 for undecodable audio", tr.Title, tr.Duration)
		}
	}
}

func TestScanWritesCatalogJSON(t *testing.T) {
	cfg := testLibrary(t)
	scanner := NewScanner(cfg, newMemRepo(), &memStore{}, newMemIngest())

	if _, err := scanner.Scan(context.Background()); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(cfg.StaticDir, "catalog.json"))
	if err != nil {
		t.Fatalf("catalog.json missing: %v", err)
	}
	var tracks []model.Track
	if err := json.Unmarshal(data, &tracks); err != nil {
		t.Fatalf("catalog.json is not valid JSON: %v", err)
	}
	if len(tracks) != 4 {
		t.Errorf("catalog.json has %d tracks, want 4", len(tracks))
	}
}

func TestRescanSkipsIngestedContent(t *testing.T) {
	cfg := testLibrary(t)
	repo := newMemRepo()
	store := &memStore{}
	scanner := NewScanner(cfg, repo, store, newMemIngest())

	if _, err := scanner.Scan(context.Background()); err != nil {
		t.Fatalf("first scan failed: %v", err)
	}
	firstUploads := store.count()
	if firstUploads == 0 {
		t.Fatal("first scan uploaded nothing")
	}

	tracks, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("second scan failed: %v", err)
	}
	if store.count() != firstUploads {
		t.Errorf("rescan re-uploaded: %d -> %d uploads", firstUploads, store.count())
	}
	if len(tracks) != 4 {
		t.Errorf("rescan produced %d tracks, want 4", len(tracks))
	}
}

func TestRescanKeepsTrackIdentity(t *testing.T) {
	cfg := testLibrary(t)
	repo := newMemRepo()
	scanner := NewScanner(cfg, repo, &memStore{}, newMemIngest())

	first, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("first scan failed: %v", err)
	}
	second, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("second scan failed: %v", err)
	}

	ids := make(map[string]string)
	for _, tr := range first {
		ids[tr.AudioURL] = tr.ID
	}
	for _, tr := range second {
		if ids[tr.AudioURL] != tr.ID {
			t.Errorf("track %s changed ID across rescans: %s -> %s", tr.AudioURL, ids[tr.AudioURL], tr.ID)
		}
	}
}
