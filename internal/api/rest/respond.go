package rest

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/yukimura/utabako/internal/app/playliststore"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Error().Err(err).Msg("rest: failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps store sentinels onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, playliststore.ErrEmptyName):
		writeError(w, http.StatusBadRequest, "playlist name must not be empty")
	case errors.Is(err, playliststore.ErrNotFound):
		writeError(w, http.StatusNotFound, "playlist not found")
	case errors.Is(err, playliststore.ErrDuplicate):
		writeError(w, http.StatusConflict, "performance already in playlist")
	case errors.Is(err, playliststore.ErrInvalidFormat):
		writeError(w, http.StatusBadRequest, "invalid playlist file format")
	case errors.Is(err, playliststore.ErrPersistenceFull):
		writeError(w, http.StatusInsufficientStorage, "local storage is full")
	default:
		zlog.Error().Err(err).Msg("rest: internal error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
