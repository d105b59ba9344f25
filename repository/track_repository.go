package repository

import (
	"database/sql"
	"fmt"
	"time"

	"CadenzaFM/db"
	"CadenzaFM/model"
)

// TrackRepository defines the interface for track data operations.
type TrackRepository interface {
	UpsertTrack(track *model.Track) error
	GetTrackByID(id string) (*model.Track, error)
	GetAllTracks() ([]model.Track, error)
	GetTracksByArtist(artist string) ([]model.Track, error)
	GetTracksByAlbum(album string) ([]model.Track, error)
	GetTrackByAudioURL(audioURL string) (*model.Track, error)
	DeleteTrack(id string) error
}

// mysqlTrackRepository implements TrackRepository for MySQL.
type mysqlTrackRepository struct {
	DB *sql.DB
}

// NewMySQLTrackRepository creates a new instance of mysqlTrackRepository.
func NewMySQLTrackRepository() TrackRepository {
	return &mysqlTrackRepository{DB: db.DB}
}

const trackColumns = `id, title, artist, album, track_number, audio_url, cover_art_url, lyrics_url, duration, created_at, updated_at`

// UpsertTrack inserts a track or refreshes the existing row keyed by
// audio URL, keeping rescans idempotent at the persistence layer too.
func (r *mysqlTrackRepository) UpsertTrack(track *model.Track) error {
	query := `INSERT INTO tracks (id, title, artist, album, track_number, audio_url, cover_art_url, lyrics_url, duration, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE
	           title = VALUES(title), artist = VALUES(artist), album = VALUES(album),
	           track_number = VALUES(track_number), cover_art_url = VALUES(cover_art_url),
	           lyrics_url = VALUES(lyrics_url), duration = VALUES(duration), updated_at = VALUES(updated_at)`
	stmt, err := r.DB.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for UpsertTrack: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	_, err = stmt.Exec(track.ID, track.Title, track.Artist, track.Album, track.TrackNumber,
		track.AudioURL, track.CoverArtURL, track.LyricsURL, track.Duration, now, now)
	if err != nil {
		return fmt.Errorf("failed to execute UpsertTrack for %s: %w", track.Title, err)
	}
	return nil
}

// GetTrackByID retrieves a track by its ID, nil when not found.
func (r *mysqlTrackRepository) GetTrackByID(id string) (*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE id = ?`
	row := r.DB.QueryRow(query, id)

	track := &model.Track{}
	err := scanTrack(row, track)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan track by ID %s: %w", id, err)
	}
	return track, nil
}

// GetAllTracks retrieves the full catalog in album/track order.
func (r *mysqlTrackRepository) GetAllTracks() ([]model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks ORDER BY artist, album, track_number, title`
	return r.queryTracks(query)
}

// GetTracksByArtist retrieves one artist's tracks in album/track order.
func (r *mysqlTrackRepository) GetTracksByArtist(artist string) ([]model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE artist = ? ORDER BY album, track_number, title`
	return r.queryTracks(query, artist)
}

// GetTracksByAlbum retrieves one album's tracks in track order.
func (r *mysqlTrackRepository) GetTracksByAlbum(album string) ([]model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE album = ? ORDER BY track_number, title`
	return r.queryTracks(query, album)
}

// GetTrackByAudioURL retrieves a track by its audio URL, nil when not
// found.
func (r *mysqlTrackRepository) GetTrackByAudioURL(audioURL string) (*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE audio_url = ?`
	row := r.DB.QueryRow(query, audioURL)

	track := &model.Track{}
	err := scanTrack(row, track)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan track by audio URL %s: %w", audioURL, err)
	}
	return track, nil
}

// DeleteTrack removes a track row.
func (r *mysqlTrackRepository) DeleteTrack(id string) error {
	if _, err := r.DB.Exec(`DELETE FROM tracks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete track %s: %w", id, err)
	}
	return nil
}

func (r *mysqlTrackRepository) queryTracks(query string, args ...interface{}) ([]model.Track, error) {
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	tracks := make([]model.Track, 0)
	for rows.Next() {
		var track model.Track
		if err := scanTrack(rows, &track); err != nil {
			return nil, fmt.Errorf("failed to scan track row: %w", err)
		}
		tracks = append(tracks, track)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return tracks, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrack(row rowScanner, track *model.Track) error {
	var album, coverArtURL, lyricsURL sql.NullString
	err := row.Scan(&track.ID, &track.Title, &track.Artist, &album, &track.TrackNumber,
		&track.AudioURL, &coverArtURL, &lyricsURL, &track.Duration, &track.CreatedAt, &track.UpdatedAt)
	if err != nil {
		return err
	}
	track.Album = album.String
	track.CoverArtURL = coverArtURL.String
	track.LyricsURL = lyricsURL.String
	return nil
}
