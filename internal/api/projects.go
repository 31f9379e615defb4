package api

import (
	"net/http"
	"time"

	"github.com/rowanabisaiutp/api-websocket-messages/internal/gate"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/project"
)

// rateLimitView is a project's policy as configured.
type rateLimitView struct {
	Requests int    `json:"requests"`
	Window   string `json:"window"`
}

// projectView is one entry of the admin project listing. It includes the
// key, so it is only served behind the admin key.
type projectView struct {
	ProjectID      string        `json:"projectId"`
	Name           string        `json:"name"`
	Domain         string        `json:"domain"`
	AllowedOrigins []string      `json:"allowedOrigins"`
	RateLimit      rateLimitView `json:"rateLimit"`
	Features       []string      `json:"features"`
	Elevated       bool          `json:"elevated"`
}

func rateLimitOf(p *project.Project) rateLimitView {
	return rateLimitView{Requests: p.Policy.Quota, Window: p.WindowLabel}
}

// handleListProjects lists every registered project.
func (s *Server) handleListProjects(w http.ResponseWriter, _ *http.Request) {
	list := s.projects.List()
	out := make([]projectView, 0, len(list))
	for _, p := range list {
		out = append(out, projectView{
			ProjectID:      p.Key,
			Name:           p.Name,
			Domain:         p.Domain,
			AllowedOrigins: p.AllowedOrigins,
			RateLimit:      rateLimitOf(p),
			Features:       p.Features,
			Elevated:       p.Elevated,
		})
	}
	writeJSON(w, http.StatusOK, body{
		"success":  true,
		"message":  "Authorized projects information",
		"projects": out,
		"usage":    "Include header: x-api-key: PROJECT_KEY",
	})
}

// handleProjectStatus describes the calling tenant.
func (s *Server) handleProjectStatus(w http.ResponseWriter, r *http.Request) {
	tenant, _ := gate.TenantFrom(r.Context())
	p := tenant.Project

	view := body{
		"name":      p.Name,
		"domain":    p.Domain,
		"features":  p.Features,
		"rateLimit": rateLimitOf(p),
	}
	if tenant.Subject != "" {
		view["subject"] = tenant.Subject
	}
	if d := tenant.Decision; d.Limit > 0 {
		view["usage"] = body{
			"count":     d.Count,
			"remaining": d.Remaining,
			"resetAt":   d.ResetAt.UTC().Format(time.RFC3339),
		}
	}

	writeJSON(w, http.StatusOK, body{
		"success":   true,
		"message":   "Project authenticated successfully",
		"project":   view,
		"timestamp": s.now().UTC().Format(time.RFC3339Nano),
	})
}
