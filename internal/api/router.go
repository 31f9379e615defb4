package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rowanabisaiutp/api-websocket-messages/internal/infrastructure/config"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/project"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleNotFound)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/socket-docs", s.handleSocketDocs)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	if s.sessions != nil {
		r.Get(s.wsPath, s.sessions.ServeHTTP)
	}

	if s.secCfg.Mode == config.AuthModeJWT && s.users != nil {
		r.Post("/auth/login", s.handleLogin)
	}

	r.Route("/api", func(r chi.Router) {
		// Admin routes (x-admin-key)
		r.Group(func(r chi.Router) {
			r.Use(s.adminMiddleware)
			r.Get("/projects", s.handleListProjects)
			r.Get("/stats", s.handleStats)
			if s.audit != nil {
				r.Get("/audit", s.handleListAudit)
			}
			r.Post("/test/socket-emit", s.handleTestSocketEmit)
			r.Post("/test/web-message", s.handleTestWebMessage)
		})

		// Project routes (gate)
		r.Group(func(r chi.Router) {
			r.Use(s.gateMiddleware)

			r.Get("/project/status", s.handleProjectStatus)

			r.Route("/contacts", func(r chi.Router) {
				r.With(s.requireFeature(project.FeatureRead)).Get("/", s.handleListContacts)
				r.With(s.requireFeature(project.FeatureRead)).Get("/email/{email}", s.handleContactsByEmail)
				r.With(s.requireFeature(project.FeatureWrite)).Post("/", s.handleCreateContact)

				r.Route("/{id}", func(r chi.Router) {
					r.With(s.requireFeature(project.FeatureRead)).Get("/", s.handleGetContact)
					r.With(s.requireFeature(project.FeatureWrite)).Put("/", s.handleUpdateContact)
					r.With(s.requireFeature(project.FeatureDelete)).Delete("/", s.handleDeleteContact)
				})
			})
		})
	})

	return r
}

// handleNotFound answers unknown routes with a JSON 404.
func (s *Server) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeNotFound(w, "Route not found")
}
