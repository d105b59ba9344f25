package server

import (
	"encoding/json"
	"net/http"

	"CadenzaFM/catalog"
	"CadenzaFM/config"
	"CadenzaFM/core/player"
	"CadenzaFM/logger"
)

// APIHandler bundles the dependencies the HTTP handlers need.
type APIHandler struct {
	cfg      *config.Config
	provider catalog.Provider
	ctrl     *player.Controller
}

// NewAPIHandler creates the handler set.
func NewAPIHandler(cfg *config.Config, provider catalog.Provider, ctrl *player.Controller) *APIHandler {
	return &APIHandler{cfg: cfg, provider: provider, ctrl: ctrl}
}

// respondJSON writes a JSON response body.
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warn("failed to encode response", logger.ErrorField(err))
	}
}

// decodeJSON reads a small JSON request body into dst.
func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<16)).Decode(dst)
}

// uiConfig is what the browser needs to lay itself out; feature flags
// live in server config, not in divergent frontend code paths.
type uiConfig struct {
	ShowLyricsPanel bool `json:"showLyricsPanel"`
	MobileLayout    bool `json:"mobileLayout"`
}

// GetConfigHandler serves the UI feature flags.
func (h *APIHandler) GetConfigHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, uiConfig{
		ShowLyricsPanel: h.cfg.ShowLyricsPanel,
		MobileLayout:    h.cfg.MobileLayout,
	})
}
