package server

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"CadenzaFM/logger"
	"CadenzaFM/storage"
)

// StaticMediaHandler proxies stored media (audio, covers, lyric files)
// out of MinIO. Media objects are immutable, so clients may cache them
// hard.
func (h *APIHandler) StaticMediaHandler(w http.ResponseWriter, r *http.Request) {
	objectPath := strings.TrimPrefix(r.URL.Path, "/static/")
	if objectPath == "" || strings.Contains(objectPath, "..") {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	object, err := storage.GetObject(r.Context(), h.cfg, objectPath)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	defer object.Close()

	// Stat surfaces missing keys before any body bytes are written.
	info, err := object.Stat()
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", storage.ContentTypeFor(objectPath))
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}

	if _, err := io.Copy(w, object); err != nil {
		logger.Debug("static media copy aborted", logger.String("object", objectPath), logger.ErrorField(err))
	}
}
