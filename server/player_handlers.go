package server

import (
	"net/http"

	"CadenzaFM/logger"
)

// Transport commands respond with the resulting player state; core
// failures (bad index, empty catalog, unreachable audio) never surface
// as HTTP errors, they just leave the state unchanged or degraded.

// GetPlayerStateHandler returns the current player snapshot.
func (h *APIHandler) GetPlayerStateHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ctrl.State())
}

// PlayTrackHandler selects a track by catalog index.
func (h *APIHandler) PlayTrackHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int `json:"index"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	h.ctrl.PlayTrack(req.Index)
	respondJSON(w, http.StatusOK, h.ctrl.State())
}

// TogglePlayHandler flips play/pause.
func (h *APIHandler) TogglePlayHandler(w http.ResponseWriter, r *http.Request) {
	h.ctrl.TogglePlay()
	respondJSON(w, http.StatusOK, h.ctrl.State())
}

// NextTrackHandler skips forward with wraparound.
func (h *APIHandler) NextTrackHandler(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Next()
	respondJSON(w, http.StatusOK, h.ctrl.State())
}

// PreviousTrackHandler skips backward with wraparound.
func (h *APIHandler) PreviousTrackHandler(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Previous()
	respondJSON(w, http.StatusOK, h.ctrl.State())
}

// SeekHandler jumps to a position in the current track.
func (h *APIHandler) SeekHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Time float64 `json:"time"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	h.ctrl.Seek(req.Time)
	respondJSON(w, http.StatusOK, h.ctrl.State())
}

// SetVolumeHandler sets the playback volume.
func (h *APIHandler) SetVolumeHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Volume float64 `json:"volume"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	h.ctrl.SetVolume(req.Volume)
	respondJSON(w, http.StatusOK, h.ctrl.State())
}

// RefreshTracksHandler reloads the catalog into the sequencer. Used by
// the UI after it notices the catalog changed.
func (h *APIHandler) RefreshTracksHandler(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.provider.GetAllTracks(r.Context())
	if err != nil {
		logger.Warn("catalog refresh failed", logger.ErrorField(err))
		tracks = nil
	}
	h.ctrl.SetTracks(tracks)
	respondJSON(w, http.StatusOK, h.ctrl.State())
}
