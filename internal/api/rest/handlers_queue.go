package rest

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/yukimura/utabako/internal/domain/performance"
)

func (s *Server) handleGetQueue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": s.queue.References(),
		"length":  s.queue.Len(),
	})
}

func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var ref performance.Reference
	if err := json.NewDecoder(r.Body).Decode(&ref); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if ref.PerformanceID == "" {
		writeError(w, http.StatusBadRequest, "performanceId is required")
		return
	}

	// No playability check here: a queued reference is validated at
	// consumption time, so an entry whose video vanishes after enqueue
	// and one that was already gone are skipped by the same path.
	s.queue.Enqueue(ref)
	writeJSON(w, http.StatusCreated, map[string]int{"length": s.queue.Len()})
}

func (s *Server) handleRemoveFromQueue(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be an integer")
		return
	}

	s.queue.RemoveAt(index)
	writeJSON(w, http.StatusOK, map[string]int{"length": s.queue.Len()})
}

func (s *Server) handleReorderQueue(w http.ResponseWriter, r *http.Request) {
	var body struct {
		From int `json:"from"`
		To   int `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.queue.Reorder(body.From, body.To)
	writeJSON(w, http.StatusOK, map[string]any{"entries": s.queue.References()})
}

func (s *Server) handleClearQueue(w http.ResponseWriter, r *http.Request) {
	s.queue.Clear()
	w.WriteHeader(http.StatusNoContent)
}
