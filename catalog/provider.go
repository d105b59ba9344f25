// Package catalog produces the track list the player consumes: a
// scanner that ingests a media directory into object storage and the
// database, a watcher that rescans on changes, and providers that
// serve the resulting catalog.
package catalog

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"CadenzaFM/cache"
	"CadenzaFM/logger"
	"CadenzaFM/model"
	"CadenzaFM/repository"
)

// Provider serves track lists. Callers treat a failing provider as an
// empty catalog; errors are for logging, not control flow.
type Provider interface {
	GetAllTracks(ctx context.Context) ([]model.Track, error)
	GetTracksByArtist(ctx context.Context, name string) ([]model.Track, error)
	GetTracksByAlbum(ctx context.Context, name string) ([]model.Track, error)
}

// repositoryProvider serves the catalog from MySQL with a Redis
// read-through cache in front of the full listing.
type repositoryProvider struct {
	repo repository.TrackRepository
}

// NewRepositoryProvider creates the database-backed provider.
func NewRepositoryProvider(repo repository.TrackRepository) Provider {
	return &repositoryProvider{repo: repo}
}

func (p *repositoryProvider) GetAllTracks(ctx context.Context) ([]model.Track, error) {
	if cached, err := cache.GetCachedCatalog(ctx); err == nil {
		return cached, nil
	}

	tracks, err := p.repo.GetAllTracks()
	if err != nil {
		return nil, err
	}

	if err := cache.SetCachedCatalog(ctx, tracks); err != nil {
		logger.Debug("catalog cache write failed", logger.ErrorField(err))
	}
	return tracks, nil
}

func (p *repositoryProvider) GetTracksByArtist(_ context.Context, name string) ([]model.Track, error) {
	return p.repo.GetTracksByArtist(name)
}

func (p *repositoryProvider) GetTracksByAlbum(_ context.Context, name string) ([]model.Track, error) {
	return p.repo.GetTracksByAlbum(name)
}

// jsonProvider serves the catalog from the generated catalog.json,
// with no database in the loop. Used by the headless play command.
type jsonProvider struct {
	path string
}

// NewJSONProvider creates a provider over a generated catalog.json.
func NewJSONProvider(staticDir string) Provider {
	return &jsonProvider{path: filepath.Join(staticDir, "catalog.json")}
}

func (p *jsonProvider) load() ([]model.Track, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, err
	}
	var tracks []model.Track
	if err := json.Unmarshal(data, &tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}

func (p *jsonProvider) GetAllTracks(_ context.Context) ([]model.Track, error) {
	return p.load()
}

func (p *jsonProvider) GetTracksByArtist(_ context.Context, name string) ([]model.Track, error) {
	tracks, err := p.load()
	if err != nil {
		return nil, err
	}
	out := make([]model.Track, 0)
	for _, t := range tracks {
		if t.Artist == name {
			out = append(out, t)
		}
	}
	return out, nil
}

func (p *jsonProvider) GetTracksByAlbum(_ context.Context, name string) ([]model.Track, error) {
	tracks, err := p.load()
	if err != nil {
		return nil, err
	}
	out := make([]model.Track, 0)
	for _, t := range tracks {
		if t.Album == name {
			out = append(out, t)
		}
	}
	return out, nil
}
