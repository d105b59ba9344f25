package server

import (
	"net/http"

	"CadenzaFM/logger"
	"CadenzaFM/model"
)

// GetTracksHandler lists the catalog, optionally filtered by artist or
// album. A failing catalog backend degrades to an empty list; the
// browser shows "no tracks available" rather than an error page.
func (h *APIHandler) GetTracksHandler(w http.ResponseWriter, r *http.Request) {
	var (
		tracks []model.Track
		err    error
	)

	query := r.URL.Query()
	switch {
	case query.Get("artist") != "":
		tracks, err = h.provider.GetTracksByArtist(r.Context(), query.Get("artist"))
	case query.Get("album") != "":
		tracks, err = h.provider.GetTracksByAlbum(r.Context(), query.Get("album"))
	default:
		tracks, err = h.provider.GetAllTracks(r.Context())
	}

	if err != nil {
		logger.Warn("catalog lookup failed", logger.ErrorField(err))
		tracks = nil
	}
	if tracks == nil {
		tracks = []model.Track{}
	}

	respondJSON(w, http.StatusOK, tracks)
}
