package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/auth/login", s.handleLogin)

		r.Get("/devices", s.handleListDevices)
		r.Get("/state", s.handleGetState)
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Route("/sequences", func(r chi.Router) {
				r.Get("/", s.handleListSequences)
				r.Get("/runs", s.handleListRuns)
				r.Route("/{name}", func(r chi.Router) {
					r.Post("/compile", s.handleCompileSequence)
					r.Get("/frames/{index}", s.handleGetFrame)
				})
			})

			r.Route("/playback", func(r chi.Router) {
				r.Get("/", s.handleGetPlayback)
				r.Post("/", s.handleStartPlayback)
				r.Delete("/", s.handleStopPlayback)
				r.Get("/sessions", s.handleListSessions)
			})
		})
	})

	if s.dashboard != nil {
		r.Handle("/*", s.dashboard)
	}

	return r
}

// handleHealth returns the server health status and which backends are
// wired.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"components": map[string]bool{
			"sequences": s.sequences != nil,
			"playback":  s.playback != nil,
			"receiver":  s.state != nil,
		},
		"ws_clients": s.hub.ClientCount(),
	})
}
