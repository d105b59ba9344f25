package lyrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"CadenzaFM/model"
)

// Fetcher retrieves and parses the lyric document behind a track's
// lyrics URL. Implementations must treat every failure as "no lyrics".
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]model.LyricLine, error)
}

// HTTPFetcher fetches lyric documents over HTTP; non-HTTP catalog URLs
// go through the installed source reader (object storage on the
// server), falling back to local file reads.
type HTTPFetcher struct {
	client *http.Client
	source func(uri string) ([]byte, error)
}

// NewHTTPFetcher creates a fetcher with a bounded request timeout.
// source resolves non-HTTP URLs and may be nil.
func NewHTTPFetcher(timeout time.Duration, source func(uri string) ([]byte, error)) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
		source: source,
	}
}

// Fetch downloads and parses an LRC document. Any transport or HTTP
// error comes back as an error with a nil sequence; callers degrade to
// an empty lyric state.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]model.LyricLine, error) {
	if url == "" {
		return nil, nil
	}

	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		var (
			data []byte
			err  error
		)
		if f.source != nil {
			data, err = f.source(url)
		} else {
			data, err = os.ReadFile(url)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read lyrics %s: %w", url, err)
		}
		return Parse(string(data)), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build lyrics request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lyrics from %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lyrics fetch returned status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read lyrics body: %w", err)
	}

	return Parse(string(body)), nil
}
