package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rowanabisaiutp/api-websocket-messages/internal/audit"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/contact"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/gate"
)

// recordAudit appends a REST mutation to the audit trail. A failed write is
// logged; the request still succeeds.
func (s *Server) recordAudit(ctx context.Context, tenant *gate.TenantContext, action string, id int64, details map[string]any) {
	if s.audit == nil {
		return
	}
	e := &audit.Entry{
		Action:   action,
		RecordID: id,
		Source:   contact.SourceREST,
		Details:  details,
		At:       s.now(),
	}
	if tenant != nil {
		e.Project = tenant.ProjectName()
		e.Actor = tenant.Subject
	}
	if err := s.audit.Record(ctx, e); err != nil {
		s.logger.Warn("audit write failed", "action", action, "id", id, "error", err)
	}
}

// handleListAudit returns the audit trail, newest first.
//
// Query parameters: action, project, recordId, limit, offset.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := audit.Filter{
		Action:  q.Get("action"),
		Project: q.Get("project"),
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeBadRequest(w, "invalid "+name)
				return
			}
			*dst = n
		}
	}
	if v := q.Get("recordId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeBadRequest(w, "invalid recordId")
			return
		}
		filter.RecordID = id
	}

	page, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing audit entries failed", "error", err)
		writeInternalError(w, "Error fetching audit trail", err)
		return
	}
	writeJSON(w, http.StatusOK, body{"success": true, "data": page})
}
