package api

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the global middleware chain and all endpoints.
//
// Middleware ordering: Recoverer is outermost so panics anywhere in the
// chain are caught; RequestID precedes the logger so every log line
// carries the correlation ID; compression is innermost so it only sees
// real payloads.
func (s *Server) MountRoutes() {
	s.router.Use(s.Recoverer)
	s.router.Use(RequestIDMiddleware)
	s.router.Use(RequestLogger(s.Logger))
	s.router.Use(CORSMiddleware)
	s.router.Use(Compression)

	s.router.Get("/health", s.HandleHealth)

	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/schedule", s.HandleSchedule)
		r.Get("/schedule/next", s.HandleNextPrayer)
		r.Get("/methods", s.HandleMethods)
		r.Get("/qibla", s.HandleQibla)
		r.Get("/qibla/stream", s.HandleQiblaStream)
		r.Get("/settings", s.HandleGetSettings)
		r.Put("/settings", s.HandlePutSettings)
		r.Get("/location", s.HandleGetLocation)
		r.Put("/location", s.HandlePutLocation)
		r.Get("/reminders", s.HandleReminders)
		r.Delete("/cache", s.HandleClearCache)
	})
}
