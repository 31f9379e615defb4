package session

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/rowanabisaiutp/api-websocket-messages/internal/audit"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/auth"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/contact"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/infrastructure/config"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/infrastructure/logging"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/metrics"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/project"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/relay"
)

const (
	defaultSendBuffer     = 256
	defaultMaxMessageSize = 16384
	defaultPingInterval   = 25 * time.Second
	defaultPongTimeout    = 20 * time.Second

	// storeTimeout bounds each persistence call made for a "send".
	storeTimeout = 5 * time.Second
)

// Store is the persistence a session needs for "send".
type Store interface {
	Create(ctx context.Context, in contact.Input) (int64, error)
	FindByID(ctx context.Context, id int64) (*contact.Message, error)
}

// Relay is the part of relay.Hub a session uses.
type Relay interface {
	Join(m relay.Member, room string)
	Leave(m relay.Member, room string)
	LeaveAll(m relay.Member) []string
	BroadcastExcept(room, event string, payload any, except string) int
}

// Deps are the collaborators of a Manager.
type Deps struct {
	Config   config.WebSocketConfig
	Registry *project.Registry
	Relay    Relay
	Store    Store
	Logger   *logging.Logger
	Metrics  *metrics.Metrics

	// Audit receives one entry per persisted socket message. Optional.
	Audit audit.Writer

	// AllowClientRole honours a client-asserted role "admin" for projects
	// that are not elevated.
	AllowClientRole bool

	// Now defaults to time.Now.
	Now func() time.Time
}

// Manager accepts socket connections and runs their sessions.
type Manager struct {
	deps     Deps
	logger   *logging.Logger
	upgrader websocket.Upgrader

	pingInterval time.Duration
	pongWait     time.Duration
	sendBuffer   int
	readLimit    int64

	active atomic.Int64
}

// NewManager validates deps and returns a Manager.
func NewManager(deps Deps) (*Manager, error) {
	if deps.Registry == nil {
		return nil, errors.New("session: registry is required")
	}
	if deps.Relay == nil {
		return nil, errors.New("session: relay is required")
	}
	if deps.Store == nil {
		return nil, errors.New("session: store is required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	cfg := deps.Config
	m := &Manager{
		deps:         deps,
		logger:       deps.Logger.Component("session"),
		pingInterval: secondsOr(cfg.PingInterval, defaultPingInterval),
		pongWait:     secondsOr(cfg.PongTimeout, defaultPongTimeout),
		sendBuffer:   cfg.SendBuffer,
		readLimit:    int64(cfg.MaxMessageSize),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The authenticate handshake is the access check for sockets.
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
	}
	if m.sendBuffer <= 0 {
		m.sendBuffer = defaultSendBuffer
	}
	if m.readLimit <= 0 {
		m.readLimit = defaultMaxMessageSize
	}
	return m, nil
}

func secondsOr(n int, def time.Duration) time.Duration {
	if n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}

// Active returns the number of open sessions.
func (m *Manager) Active() int {
	return int(m.active.Load())
}

// ServeHTTP upgrades the request and starts the session pumps.
func (m *Manager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	s := m.newSession(conn)
	m.active.Add(1)
	m.deps.Metrics.SessionOpened()
	m.deps.Relay.Join(s, relay.RoomDefault)
	s.logger.Info("session opened", "remote", r.RemoteAddr)

	go s.writePump()
	go s.readPump()
}

func (m *Manager) newSession(conn *websocket.Conn) *Session {
	id := uuid.NewString()
	limit := rate.Inf
	if m.deps.Config.MessageRate > 0 {
		limit = rate.Limit(m.deps.Config.MessageRate)
	}
	burst := m.deps.Config.MessageBurst
	if burst <= 0 {
		burst = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:      id,
		mgr:     m,
		conn:    conn,
		send:    make(chan []byte, m.sendBuffer),
		flood:   rate.NewLimiter(limit, burst),
		logger:  m.logger.With("session_id", id),
		ctx:     ctx,
		cancel:  cancel,
		role:    auth.RoleNone,
		created: m.deps.Now(),
	}
}

// release is called once per session by its read pump.
func (m *Manager) release() {
	m.active.Add(-1)
	m.deps.Metrics.SessionClosed()
}
