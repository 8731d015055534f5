package rest

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	zlog "github.com/rs/zerolog/log"

	"github.com/yukimura/utabako/internal/domain/performance"
	"github.com/yukimura/utabako/internal/domain/playlist"
)

// playlistView decorates a playlist with its sync state for responses.
type playlistView struct {
	playlist.Playlist
	SyncState string `json:"syncState"`
}

func (s *Server) view(p playlist.Playlist) playlistView {
	return playlistView{Playlist: p, SyncState: s.store.SyncStateOf(p.ID).String()}
}

func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	pls := s.store.List()
	views := make([]playlistView, 0, len(pls))
	for _, p := range pls {
		views = append(views, s.view(p))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	p, err := s.store.Create(body.Name)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.view(p))
}

func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	p, ok := s.store.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "playlist not found")
		return
	}
	writeJSON(w, http.StatusOK, s.view(p))
}

func (s *Server) handleRenamePlaylist(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.store.Rename(id, body.Name); err != nil {
		writeStoreError(w, err)
		return
	}
	p, _ := s.store.Get(id)
	writeJSON(w, http.StatusOK, s.view(p))
}

func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddTrack(w http.ResponseWriter, r *http.Request) {
	var ref performance.Reference
	if err := json.NewDecoder(r.Body).Decode(&ref); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if ref.PerformanceID == "" {
		writeError(w, http.StatusBadRequest, "performanceId is required")
		return
	}
	if !s.resolver.Exists(ref.PerformanceID) {
		writeError(w, http.StatusUnprocessableEntity, "unknown performance")
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.store.AddReference(id, ref); err != nil {
		writeStoreError(w, err)
		return
	}
	p, _ := s.store.Get(id)
	writeJSON(w, http.StatusOK, s.view(p))
}

func (s *Server) handleRemoveTrack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.RemoveReference(id, chi.URLParam(r, "performanceId")); err != nil {
		writeStoreError(w, err)
		return
	}
	p, _ := s.store.Get(id)
	writeJSON(w, http.StatusOK, s.view(p))
}

func (s *Server) handleReorderPlaylist(w http.ResponseWriter, r *http.Request) {
	var body struct {
		From int `json:"from"`
		To   int `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.store.Reorder(id, body.From, body.To); err != nil {
		writeStoreError(w, err)
		return
	}
	p, _ := s.store.Get(id)
	writeJSON(w, http.StatusOK, s.view(p))
}

func (s *Server) handlePlayPlaylist(w http.ResponseWriter, r *http.Request) {
	p, ok := s.store.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "playlist not found")
		return
	}

	s.player.PlayAll(p.References)
	writeJSON(w, http.StatusOK, s.playerStateView())
}

func (s *Server) handleExportAll(w http.ResponseWriter, r *http.Request) {
	data, err := s.store.ExportAll()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="playlists.json"`)
	w.Write(data)
}

func (s *Server) handleExportPlaylist(w http.ResponseWriter, r *http.Request) {
	data, err := s.store.ExportSingle(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="playlist.json"`)
	w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 8<<20))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "import file too large")
		return
	}

	imported, err := s.store.Import(data)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": imported})
}

// syncResultView is the wire shape of one per-playlist sync outcome.
type syncResultView struct {
	PlaylistID  string `json:"playlistId"`
	State       string `json:"state"`
	Conflict    bool   `json:"conflict"`
	KeptVersion string `json:"keptVersion,omitempty"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	results, err := s.store.Sync(r.Context())
	if err != nil {
		zlog.Warn().Err(err).Msg("rest: sync failed")
		writeError(w, http.StatusBadGateway, "sync failed")
		return
	}

	views := make([]syncResultView, 0, len(results))
	for _, res := range results {
		views = append(views, syncResultView{
			PlaylistID:  res.PlaylistID,
			State:       res.State.String(),
			Conflict:    res.Conflict,
			KeptVersion: res.KeptVersion,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handlePushAll(w http.ResponseWriter, r *http.Request) {
	if err := s.store.PushAll(r.Context()); err != nil {
		zlog.Warn().Err(err).Msg("rest: push failed")
		writeError(w, http.StatusBadGateway, "push failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
