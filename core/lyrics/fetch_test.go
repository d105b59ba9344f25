package lyrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Catalog lyric URLs default to the stored-object form; the fetcher
// must hand those to the source reader, never to the filesystem.
func TestFetchResolvesStoredLyrics(t *testing.T) {
	var got string
	f := NewHTTPFetcher(time.Second, func(uri string) ([]byte, error) {
		got = uri
		return []byte("[00:01.00]hello\n[00:02.50]world"), nil
	})

	lines, err := f.Fetch(context.Background(), "/static/lyrics/The Band/First Album/01 Opening.lrc")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if got != "/static/lyrics/The Band/First Album/01 Opening.lrc" {
		t.Errorf("source saw %q, want the full catalog URL", got)
	}
	if len(lines) != 2 || lines[0].Text != "hello" || lines[1].TimeSeconds != 2.5 {
		t.Errorf("parsed lines = %+v, want hello/world", lines)
	}
}

func TestFetchLocalFileWithoutSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.lrc")
	if err := os.WriteFile(path, []byte("[00:05.00]line"), 0644); err != nil {
		t.Fatal(err)
	}

	f := NewHTTPFetcher(time.Second, nil)
	lines, err := f.Fetch(context.Background(), path)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(lines) != 1 || lines[0].TimeSeconds != 5.0 {
		t.Errorf("parsed lines = %+v, want one line at 5s", lines)
	}
}

func TestFetchOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[00:01.00]served"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(time.Second, nil)
	lines, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(lines) != 1 || lines[0].Text != "served" {
		t.Errorf("parsed lines = %+v, want one served line", lines)
	}
}

func TestFetchHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(time.Second, nil)
	if _, err := f.Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestFetchEmptyURL(t *testing.T) {
	f := NewHTTPFetcher(time.Second, nil)
	lines, err := f.Fetch(context.Background(), "")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if lines != nil {
		t.Errorf("lines = %v, want nil for empty URL", lines)
	}
}
