package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/rowanabisaiutp/api-websocket-messages/internal/relay"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/session"
)

// healthCheckTimeout bounds each dependency probe.
const healthCheckTimeout = 2 * time.Second

// handleRoot describes the service.
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	endpoints := map[string]string{
		"GET /api/contacts":               "List contact messages (read)",
		"GET /api/contacts/{id}":          "Get a contact message (read)",
		"GET /api/contacts/email/{email}": "List messages by sender email (read)",
		"POST /api/contacts":              "Create a contact message (write)",
		"PUT /api/contacts/{id}":          "Update a contact message (write)",
		"DELETE /api/contacts/{id}":       "Delete a contact message (delete)",
		"GET /api/project/status":         "Describe the calling project",
		"GET /api/projects":               "List projects (x-admin-key)",
		"GET /api/stats":                  "Runtime and relay statistics (x-admin-key)",
		"POST /api/test/socket-emit":      "Send a test created event (x-admin-key)",
		"POST /api/test/web-message":      "Send a test notify event (x-admin-key)",
		"GET /health":                     "Health check",
		"GET /metrics":                    "Prometheus metrics",
		"GET /socket-docs":                "Socket protocol documentation",
	}
	endpoints["GET "+s.wsPath] = "Socket connection"
	if s.audit != nil {
		endpoints["GET /api/audit"] = "Contact mutation audit trail (x-admin-key)"
	}

	writeJSON(w, http.StatusOK, body{
		"success":   true,
		"message":   "Contact Messages API with real-time relay",
		"version":   s.version,
		"endpoints": endpoints,
		"rooms": map[string]string{
			relay.RoomDefault:  "every connection",
			relay.RoomElevated: "connections authenticated as admin",
		},
	})
}

// handleHealth probes every configured dependency. Any failure yields 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.health))
	for name := range s.health {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]string, len(names))
	healthy := true
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := s.health[name].HealthCheck(ctx)
		cancel()
		if err != nil {
			healthy = false
			checks[name] = err.Error()
			s.logger.Warn("health check failed", "check", name, "error", err)
			continue
		}
		checks[name] = "ok"
	}

	status := http.StatusOK
	message := "Server is running"
	if !healthy {
		status = http.StatusServiceUnavailable
		message = "Server is degraded"
	}
	writeJSON(w, status, body{
		"success":   healthy,
		"message":   message,
		"version":   s.version,
		"checks":    checks,
		"timestamp": s.now().UTC().Format(time.RFC3339Nano),
	})
}

// handleSocketDocs documents the socket protocol.
func (s *Server) handleSocketDocs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, body{
		"success": true,
		"message": "Socket API Documentation",
		"connection": body{
			"path":      s.wsPath,
			"transport": "websocket",
			"frame":     `{"event": "<name>", "data": {...}}`,
		},
		"authentication": body{
			"event":    session.EventAuthenticate,
			"payload":  body{"apiKey": "YOUR_PROJECT_API_KEY", "role": "client | admin (optional)"},
			"response": session.EventAuthenticated,
			"note":     "Admin role is granted to elevated projects; the connection stays open when authentication fails",
		},
		"events": body{
			"incoming": map[string]string{
				session.EventAuthenticate: "Authenticate with a project API key",
				session.EventSend:         "Send a contact message {name, email, subject, message}",
			},
			"outgoing": map[string]string{
				session.EventAuthenticated: "Result of authenticate",
				relay.EventCreated:         "A message was created over REST (" + relay.RoomDefault + ")",
				relay.EventDeleted:         "A message was deleted over REST (" + relay.RoomDefault + ")",
				relay.EventNotify:          "A message was sent over a socket (" + relay.RoomElevated + ")",
				session.EventSendAck:       "Result of send, to the sender only",
				session.EventError:         "A frame could not be handled",
			},
		},
		"payloads": body{
			relay.EventCreated: body{"success": true, "data": "Contact object", "message": "Nuevo mensaje de contacto recibido", "timestamp": "ISO timestamp", "project": "Project name"},
			relay.EventDeleted: body{"success": true, "recordId": "Deleted contact ID", "message": "Mensaje de contacto eliminado", "timestamp": "ISO timestamp", "project": "Project name"},
			relay.EventNotify:  body{"success": true, "data": "Contact object", "message": "Nuevo mensaje recibido desde la web", "timestamp": "ISO timestamp", "type": "web_message", "source": "web_form"},
		},
	})
}

// handleTestSocketEmit sends a synthetic created event to the default room.
func (s *Server) handleTestSocketEmit(w http.ResponseWriter, _ *http.Request) {
	record := body{"id": 999, "name": "Test User", "email": "test@example.com"}
	env := relay.NewCreated(record, "Test Project", s.now())
	n := s.relay.Broadcast(relay.RoomDefault, relay.EventCreated, env)

	writeJSON(w, http.StatusOK, body{
		"success":    true,
		"message":    "Evento de prueba enviado a todos los clientes conectados",
		"recipients": n,
		"data":       env,
	})
}

// handleTestWebMessage sends a synthetic notify event to the elevated room.
func (s *Server) handleTestWebMessage(w http.ResponseWriter, _ *http.Request) {
	record := body{
		"id":      888,
		"name":    "Test Web User",
		"email":   "test@web.com",
		"subject": "Mensaje de prueba desde web",
		"message": "Este es un mensaje de prueba enviado desde la web",
	}
	env := relay.NewNotify(record, s.now())
	n := s.relay.Broadcast(relay.RoomElevated, relay.EventNotify, env)

	writeJSON(w, http.StatusOK, body{
		"success":    true,
		"message":    "Mensaje de prueba enviado a la app móvil (" + relay.RoomElevated + ")",
		"recipients": n,
		"data":       env,
	})
}
