package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rowanabisaiutp/api-websocket-messages/internal/audit"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/contact"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/gate"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/relay"
)

const msgContactNotFound = "Contact message not found"

// handleListContacts returns every message, newest first.
func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.contacts.FindAll(r.Context())
	if err != nil {
		s.logger.Error("listing contacts failed", "error", err)
		writeInternalError(w, "Error fetching contacts", err)
		return
	}
	writeJSON(w, http.StatusOK, body{"success": true, "data": msgs, "count": len(msgs)})
}

// handleGetContact returns one message.
func (s *Server) handleGetContact(w http.ResponseWriter, r *http.Request) {
	id, ok := contactID(w, r)
	if !ok {
		return
	}
	msg, err := s.contacts.FindByID(r.Context(), id)
	if errors.Is(err, contact.ErrNotFound) {
		writeNotFound(w, msgContactNotFound)
		return
	}
	if err != nil {
		s.logger.Error("fetching contact failed", "id", id, "error", err)
		writeInternalError(w, "Error fetching contact", err)
		return
	}
	writeJSON(w, http.StatusOK, body{"success": true, "data": msg})
}

// handleContactsByEmail returns the messages sent from one address.
func (s *Server) handleContactsByEmail(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	msgs, err := s.contacts.FindByEmail(r.Context(), email)
	if err != nil {
		s.logger.Error("listing contacts by email failed", "error", err)
		writeInternalError(w, "Error fetching contacts by email", err)
		return
	}
	writeJSON(w, http.StatusOK, body{"success": true, "data": msgs, "count": len(msgs)})
}

// handleCreateContact persists a message and announces it to the default
// room. The broadcast happens only after the record is re-read.
func (s *Server) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	tenant, _ := gate.TenantFrom(r.Context())

	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	in.Source = contact.SourceREST
	in.Project = tenant.ProjectName()

	if err := in.Validate(); err != nil {
		writeValidationError(w, err)
		return
	}

	id, err := s.contacts.Create(r.Context(), in)
	if err != nil {
		s.logger.Error("creating contact failed", "error", err)
		writeInternalError(w, "Error creating contact", err)
		return
	}
	msg, err := s.contacts.FindByID(r.Context(), id)
	if err != nil {
		s.logger.Error("re-reading created contact failed", "id", id, "error", err)
		writeInternalError(w, "Error creating contact", err)
		return
	}

	s.recordAudit(r.Context(), tenant, audit.ActionCreate, id, nil)
	n := s.relay.Broadcast(relay.RoomDefault, relay.EventCreated, relay.NewCreated(msg, tenant.ProjectName(), s.now()))
	s.logger.Info("contact created", "id", id, "project", tenant.ProjectName(), "recipients", n)

	writeJSON(w, http.StatusCreated, body{
		"success": true,
		"data":    msg,
		"message": "Contact message created successfully",
	})
}

// handleUpdateContact replaces the user fields of a message.
func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	tenant, _ := gate.TenantFrom(r.Context())

	id, ok := contactID(w, r)
	if !ok {
		return
	}
	if _, err := s.contacts.FindByID(r.Context(), id); err != nil {
		s.writeLookupError(w, id, err)
		return
	}

	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	if err := in.Validate(); err != nil {
		writeValidationError(w, err)
		return
	}

	err := s.contacts.Update(r.Context(), id, in)
	if errors.Is(err, contact.ErrNotFound) {
		writeNotFound(w, msgContactNotFound)
		return
	}
	if err != nil {
		s.logger.Error("updating contact failed", "id", id, "error", err)
		writeInternalError(w, "Error updating contact", err)
		return
	}

	s.recordAudit(r.Context(), tenant, audit.ActionUpdate, id, nil)

	msg, err := s.contacts.FindByID(r.Context(), id)
	if err != nil {
		s.writeLookupError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, body{
		"success": true,
		"data":    msg,
		"message": "Contact message updated successfully",
	})
}

// handleDeleteContact removes a message and announces it to the default
// room. A missing record is a 404 and nothing is broadcast.
func (s *Server) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	tenant, _ := gate.TenantFrom(r.Context())

	id, ok := contactID(w, r)
	if !ok {
		return
	}
	existing, err := s.contacts.FindByID(r.Context(), id)
	if err != nil {
		s.writeLookupError(w, id, err)
		return
	}

	err = s.contacts.Delete(r.Context(), id)
	if errors.Is(err, contact.ErrNotFound) {
		writeNotFound(w, msgContactNotFound)
		return
	}
	if err != nil {
		s.logger.Error("deleting contact failed", "id", id, "error", err)
		writeInternalError(w, "Error deleting contact", err)
		return
	}

	s.recordAudit(r.Context(), tenant, audit.ActionDelete, id, map[string]any{
		"email":   existing.Email,
		"subject": existing.Subject,
	})
	n := s.relay.Broadcast(relay.RoomDefault, relay.EventDeleted, relay.NewDeleted(id, tenant.ProjectName(), s.now()))
	s.logger.Info("contact deleted", "id", id, "project", tenant.ProjectName(), "recipients", n)

	writeJSON(w, http.StatusOK, body{"success": true, "message": "Contact message deleted successfully"})
}

func (s *Server) writeLookupError(w http.ResponseWriter, id int64, err error) {
	if errors.Is(err, contact.ErrNotFound) {
		writeNotFound(w, msgContactNotFound)
		return
	}
	s.logger.Error("fetching contact failed", "id", id, "error", err)
	writeInternalError(w, "Error fetching contact", err)
}

func contactID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, "invalid contact id")
		return 0, false
	}
	return id, true
}

func decodeInput(w http.ResponseWriter, r *http.Request) (contact.Input, bool) {
	var in contact.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return in, false
	}
	return in, true
}
