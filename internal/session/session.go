package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/rowanabisaiutp/api-websocket-messages/internal/audit"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/auth"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/contact"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/infrastructure/logging"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/project"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/relay"
)

// Session is one socket connection. It implements relay.Member.
//
// Thread Safety:
//   - Deliver and Close may be called from any goroutine.
//   - Only the write pump writes to conn; only the read pump reads.
type Session struct {
	id      string
	mgr     *Manager
	conn    *websocket.Conn
	send    chan []byte
	flood   *rate.Limiter
	logger  *logging.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	created time.Time

	mu      sync.Mutex
	closed  bool
	role    auth.Role
	project *project.Project
}

// ID returns the session uuid.
func (s *Session) ID() string { return s.id }

// Role returns the current role.
func (s *Session) Role() auth.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// Project returns the authenticated project, or nil.
func (s *Session) Project() *project.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project
}

// Deliver queues frame without blocking.
func (s *Session) Deliver(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- frame:
		return true
	default:
		s.logger.Warn("send buffer full, dropping frame")
		return false
	}
}

// Close closes the send channel once; the write pump then closes the
// connection.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

func (s *Session) readPump() {
	defer func() {
		rooms := s.mgr.deps.Relay.LeaveAll(s)
		s.Close()
		s.cancel()
		s.conn.Close()
		s.mgr.release()
		s.logger.Info("session closed",
			"role", s.Role(),
			"rooms", rooms,
			"duration", s.mgr.deps.Now().Sub(s.created).Round(time.Millisecond).String())
	}()

	deadline := s.mgr.pingInterval + s.mgr.pongWait
	s.conn.SetReadLimit(s.mgr.readLimit)
	//nolint:errcheck // best effort; a failed deadline surfaces as a read error
	s.conn.SetReadDeadline(time.Now().Add(deadline))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read error", "error", err)
			} else {
				s.logger.Debug("websocket closed", "error", err)
			}
			return
		}
		//nolint:errcheck // best effort
		s.conn.SetReadDeadline(time.Now().Add(deadline))
		s.handleFrame(message)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(s.mgr.pingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			if !ok {
				//nolint:errcheck // peer may already be gone
				s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			//nolint:errcheck // write error caught below
			s.conn.SetWriteDeadline(time.Now().Add(s.mgr.pongWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // write error caught below
			s.conn.SetWriteDeadline(time.Now().Add(s.mgr.pongWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Session) handleFrame(data []byte) {
	if !s.flood.Allow() {
		s.mgr.deps.Metrics.SessionEvent("frame", "throttled")
		s.emit(EventError, ErrorReply{Message: ErrThrottled.Error()})
		return
	}

	var f relay.Frame
	if err := json.Unmarshal(data, &f); err != nil || f.Event == "" {
		s.mgr.deps.Metrics.SessionEvent("frame", "malformed")
		s.emit(EventError, ErrorReply{Message: ErrMalformedFrame.Error()})
		return
	}

	switch f.Event {
	case EventAuthenticate:
		s.handleAuthenticate(f.Data)
	case EventSend:
		s.handleSend(f.Data)
	default:
		s.mgr.deps.Metrics.SessionEvent("unknown", "rejected")
		s.emit(EventError, ErrorReply{Message: ErrUnknownEvent.Error() + ": " + f.Event, Event: f.Event})
	}
}

func (s *Session) handleAuthenticate(data json.RawMessage) {
	var req AuthenticateRequest
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			s.mgr.deps.Metrics.SessionEvent(EventAuthenticate, "malformed")
			s.emit(EventAuthenticated, Authenticated{Success: false, Message: msgInvalidKey})
			return
		}
	}

	p, ok := s.mgr.deps.Registry.Resolve(req.APIKey)
	if !ok {
		s.mgr.deps.Metrics.SessionEvent(EventAuthenticate, "rejected")
		s.logger.Warn("authentication failed")
		s.emit(EventAuthenticated, Authenticated{Success: false, Message: msgInvalidKey})
		return
	}

	role := auth.RoleClient
	if p.Elevated || (s.mgr.deps.AllowClientRole && auth.ParseRole(req.Role) == auth.RoleAdmin) {
		role = auth.RoleAdmin
	}

	s.mu.Lock()
	s.project = p
	s.role = role
	s.mu.Unlock()

	reply := Authenticated{Success: true, Project: p.Name, Features: p.Features, Role: role}
	if role == auth.RoleAdmin {
		s.mgr.deps.Relay.Join(s, relay.RoomElevated)
		reply.Message = msgAdminJoined
	} else {
		s.mgr.deps.Relay.Leave(s, relay.RoomElevated)
	}

	s.mgr.deps.Metrics.SessionEvent(EventAuthenticate, "ok")
	s.logger.Info("session authenticated", "project", p.Name, "role", role)
	s.emit(EventAuthenticated, reply)
}

func (s *Session) handleSend(data json.RawMessage) {
	p := s.Project()
	if p == nil && s.mgr.deps.Config.RequireAuthForSend {
		s.mgr.deps.Metrics.SessionEvent(EventSend, "rejected")
		s.emit(EventSendAck, SendAck{Message: msgAuthNeeded, Error: ErrUnauthenticated.Error()})
		return
	}

	var in contact.Input
	if len(data) > 0 {
		if err := json.Unmarshal(data, &in); err != nil {
			s.mgr.deps.Metrics.SessionEvent(EventSend, "malformed")
			s.emit(EventSendAck, SendAck{Message: msgSendFailed, Error: ErrMalformedFrame.Error()})
			return
		}
	}
	in.Source = contact.SourceSocket
	if p != nil {
		in.Project = p.Name
	}

	if err := in.Validate(); err != nil {
		var ve *contact.ValidationError
		msg := msgSendFailed
		if errors.As(err, &ve) {
			msg = ve.Reason
		}
		s.mgr.deps.Metrics.SessionEvent(EventSend, "invalid")
		s.emit(EventSendAck, SendAck{Message: msg, Error: err.Error()})
		return
	}

	record, err := s.persist(in)
	if err != nil {
		s.mgr.deps.Metrics.SessionEvent(EventSend, "error")
		s.logger.Error("persisting socket message failed", "error", err)
		s.emit(EventSendAck, SendAck{Message: msgSendFailed, Error: err.Error()})
		return
	}

	s.recordAudit(record)

	// The broadcast is queued on every admin before the ack is queued here.
	n := s.mgr.deps.Relay.BroadcastExcept(relay.RoomElevated, relay.EventNotify,
		relay.NewNotify(record, s.mgr.deps.Now()), s.id)

	s.mgr.deps.Metrics.SessionEvent(EventSend, "ok")
	s.logger.Info("socket message relayed", "record_id", record.ID, "recipients", n)
	s.emit(EventSendAck, SendAck{Success: true, Data: record, Message: msgSent})
}

func (s *Session) persist(in contact.Input) (*contact.Message, error) {
	ctx, cancel := context.WithTimeout(s.ctx, storeTimeout)
	defer cancel()

	id, err := s.mgr.deps.Store.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.mgr.deps.Store.FindByID(ctx, id)
}

func (s *Session) emit(event string, payload any) {
	frame, err := relay.Encode(event, payload)
	if err != nil {
		s.logger.Error("encoding reply failed", "event", event, "error", err)
		return
	}
	s.Deliver(frame)
}

func (s *Session) recordAudit(record *contact.Message) {
	w := s.mgr.deps.Audit
	if w == nil {
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, storeTimeout)
	defer cancel()
	err := w.Record(ctx, &audit.Entry{
		Action:   audit.ActionCreate,
		RecordID: record.ID,
		Project:  record.Project,
		Source:   contact.SourceSocket,
		Actor:    "session:" + s.id,
		At:       s.mgr.deps.Now(),
	})
	if err != nil {
		s.logger.Warn("audit write failed", "record_id", record.ID, "error", err)
	}
}
