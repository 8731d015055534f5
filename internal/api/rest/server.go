// Package rest exposes the archive over a JSON HTTP API.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yukimura/utabako/internal/app/player"
	"github.com/yukimura/utabako/internal/app/playliststore"
	"github.com/yukimura/utabako/internal/app/queue"
	"github.com/yukimura/utabako/internal/app/resolver"
)

type Server struct {
	store    *playliststore.Store
	queue    *queue.Manager
	player   *player.Engine
	resolver *resolver.Resolver
}

func NewServer(store *playliststore.Store, q *queue.Manager, p *player.Engine, res *resolver.Resolver) *Server {
	return &Server{
		store:    store,
		queue:    q,
		player:   p,
		resolver: res,
	}
}

func (s *Server) Router(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.Get("/health", s.handleHealth)

	r.Route("/playlists", func(r chi.Router) {
		r.Get("/", s.handleListPlaylists)
		r.Post("/", s.handleCreatePlaylist)
		r.Get("/export", s.handleExportAll)
		r.Post("/import", s.handleImport)
		r.Post("/sync", s.handleSync)
		r.Post("/push", s.handlePushAll)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetPlaylist)
			r.Patch("/", s.handleRenamePlaylist)
			r.Delete("/", s.handleDeletePlaylist)
			r.Get("/export", s.handleExportPlaylist)
			r.Post("/tracks", s.handleAddTrack)
			r.Delete("/tracks/{performanceId}", s.handleRemoveTrack)
			r.Post("/reorder", s.handleReorderPlaylist)
			r.Post("/play", s.handlePlayPlaylist)
		})
	})

	r.Route("/queue", func(r chi.Router) {
		r.Get("/", s.handleGetQueue)
		r.Post("/", s.handleEnqueue)
		r.Delete("/", s.handleClearQueue)
		r.Delete("/{index}", s.handleRemoveFromQueue)
		r.Post("/reorder", s.handleReorderQueue)
	})

	r.Route("/player", func(r chi.Router) {
		r.Get("/", s.handlePlayerState)
		r.Post("/next", s.handleNext)
		r.Post("/previous", s.handlePrevious)
		r.Post("/pause", s.handlePause)
		r.Post("/resume", s.handleResume)
		r.Post("/stop", s.handleStop)
		r.Put("/shuffle", s.handleSetShuffle)
		r.Put("/repeat", s.handleSetRepeat)
		r.Post("/unplayable", s.handleMarkUnplayable)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"catalog":  s.resolver.Size(),
		"playlist": len(s.store.List()),
	})
}
