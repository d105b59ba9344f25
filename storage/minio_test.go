package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"CadenzaFM/config"
)

func TestPublicURL(t *testing.T) {
	cfg := &config.Config{}
	if got := PublicURL(cfg, "audio/The Band/First Album/01 Opening.mp3"); got != "/static/audio/The Band/First Album/01 Opening.mp3" {
		t.Errorf("default PublicURL = %q, want StaticPrefix form", got)
	}

	cfg.MinioPublicURL = "http://cdn.example/"
	if got := PublicURL(cfg, "audio/a.mp3"); got != "http://cdn.example/audio/a.mp3" {
		t.Errorf("public-base PublicURL = %q", got)
	}
}

// The default catalog URLs name bucket objects; MediaReader must route
// them to the object store, not the local filesystem.
func TestMediaReaderRoutesStaticURLsToBucket(t *testing.T) {
	read := MediaReader(&config.Config{})

	_, err := read("/static/audio/a.mp3")
	if err == nil {
		t.Fatal("expected an error with no object store connected")
	}
	if !strings.Contains(err.Error(), "not initialized") {
		t.Fatalf("static URL took the wrong path: %v", err)
	}
}

func TestMediaReaderReadsLocalPaths(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.mp3")
	if err := os.WriteFile(path, []byte("file-bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	read := MediaReader(&config.Config{})
	data, err := read(path)
	if err != nil {
		t.Fatalf("local read failed: %v", err)
	}
	if string(data) != "file-bytes" {
		t.Errorf("read %q, want file contents", data)
	}
}
