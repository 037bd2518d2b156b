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
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/assist", func(r chi.Router) {
			r.Post("/text", s.handleAssistText)
			r.Post("/audio", s.handleAssistAudio)
			r.Post("/transcribe", s.handleAssistTranscribe)
			r.Get("/last", s.handleAssistLast)
		})

		r.Route("/recording", func(r chi.Router) {
			r.Post("/start", s.handleRecordingStart)
			r.Post("/stop", s.handleRecordingStop)
			r.Post("/reset", s.handleRecordingReset)
			r.Get("/state", s.handleRecordingState)
		})

		r.Get("/interactions", s.handleListInteractions)
	})

	return r
}
