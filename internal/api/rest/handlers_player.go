package rest

import (
	"encoding/json"
	"net/http"

	"github.com/yukimura/utabako/internal/app/player"
	"github.com/yukimura/utabako/internal/domain/performance"
)

// playerStateView is the wire shape of the player snapshot.
type playerStateView struct {
	State          string                 `json:"state"`
	Current        *performance.Reference `json:"current,omitempty"`
	ElapsedSeconds float64                `json:"elapsedSeconds"`
	Shuffle        bool                   `json:"shuffle"`
	Repeat         string                 `json:"repeat"`
	QueueLength    int                    `json:"queueLength"`
}

func (s *Server) playerStateView() playerStateView {
	v := playerStateView{
		State:          s.player.State().String(),
		ElapsedSeconds: s.player.Elapsed().Seconds(),
		Shuffle:        s.player.ShuffleOn(),
		Repeat:         s.player.Repeat().String(),
		QueueLength:    s.queue.Len(),
	}
	if cur, ok := s.player.Current(); ok {
		v.Current = &cur
	}
	return v
}

func (s *Server) handlePlayerState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.playerStateView())
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.player.Next()
	writeJSON(w, http.StatusOK, s.playerStateView())
}

func (s *Server) handlePrevious(w http.ResponseWriter, r *http.Request) {
	s.player.Previous()
	writeJSON(w, http.StatusOK, s.playerStateView())
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.player.Pause()
	writeJSON(w, http.StatusOK, s.playerStateView())
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.player.Resume()
	writeJSON(w, http.StatusOK, s.playerStateView())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.player.Stop()
	writeJSON(w, http.StatusOK, s.playerStateView())
}

func (s *Server) handleSetShuffle(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.player.SetShuffle(body.Enabled)
	writeJSON(w, http.StatusOK, s.playerStateView())
}

func (s *Server) handleSetRepeat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var mode player.RepeatMode
	switch body.Mode {
	case "off":
		mode = player.RepeatOff
	case "all":
		mode = player.RepeatAll
	case "one":
		mode = player.RepeatOne
	default:
		writeError(w, http.StatusBadRequest, "repeat mode must be off, all or one")
		return
	}

	s.player.SetRepeat(mode)
	writeJSON(w, http.StatusOK, s.playerStateView())
}

func (s *Server) handleMarkUnplayable(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PerformanceID string `json:"performanceId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.PerformanceID == "" {
		writeError(w, http.StatusBadRequest, "performanceId is required")
		return
	}

	s.player.MarkUnplayable(body.PerformanceID)
	writeJSON(w, http.StatusOK, s.playerStateView())
}
