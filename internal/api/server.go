package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rowanabisaiutp/api-websocket-messages/internal/audit"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/auth"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/contact"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/gate"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/infrastructure/config"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/infrastructure/database"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/infrastructure/logging"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/metrics"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/project"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/ratelimit"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Broadcaster is the part of relay.Hub the handlers use.
type Broadcaster interface {
	Broadcast(room, event string, payload any) int
	Members(room string) int
	Connections() int
}

// SessionHandler serves socket upgrades.
type SessionHandler interface {
	http.Handler
	Active() int
}

// HealthChecker is anything /health can probe.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthFunc adapts a function to HealthChecker.
type HealthFunc func(ctx context.Context) error

// HealthCheck calls f.
func (f HealthFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

// ConnectionStatus reports whether an optional backend is connected.
type ConnectionStatus interface {
	IsConnected() bool
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Security config.SecurityConfig
	WSPath   string
	Logger   *logging.Logger
	Version  string

	Gate     gate.Authenticator
	Projects *project.Registry
	Contacts contact.Repository
	Relay    Broadcaster

	// Optional collaborators.
	Sessions   SessionHandler
	Audit      audit.Repository
	Users      *auth.Directory
	Metrics    *metrics.Metrics
	Limiter    *ratelimit.Limiter
	Stats      *ratelimit.MemoryStats
	RedisStats *ratelimit.RedisStats
	DB         *database.DB
	MQTT       ConnectionStatus
	Influx     ConnectionStatus
	Health     map[string]HealthChecker

	// Now defaults to time.Now.
	Now func() time.Time
}

// Server is the HTTP server of the gateway.
//
// It is created with New and started with Start.
type Server struct {
	cfg      config.APIConfig
	secCfg   config.SecurityConfig
	wsPath   string
	logger   *logging.Logger
	version  string
	gate     gate.Authenticator
	projects *project.Registry
	contacts contact.Repository
	relay    Broadcaster

	sessions   SessionHandler
	audit      audit.Repository
	users      *auth.Directory
	metrics    *metrics.Metrics
	limiter    *ratelimit.Limiter
	stats      *ratelimit.MemoryStats
	redisStats *ratelimit.RedisStats
	db         *database.DB
	mqtt       ConnectionStatus
	influx     ConnectionStatus
	health     map[string]HealthChecker

	now       func() time.Time
	startTime time.Time
	server    *http.Server
	listener  net.Listener
}

// New creates a server. It does not listen until Start is called.
//
// Returns an error if a required dependency (logger, gate, project
// registry, contact repository, relay) is missing.
func New(deps Deps) (*Server, error) {
	switch {
	case deps.Logger == nil:
		return nil, fmt.Errorf("logger is required")
	case deps.Gate == nil:
		return nil, fmt.Errorf("gate is required")
	case deps.Projects == nil:
		return nil, fmt.Errorf("project registry is required")
	case deps.Contacts == nil:
		return nil, fmt.Errorf("contact repository is required")
	case deps.Relay == nil:
		return nil, fmt.Errorf("relay is required")
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}
	wsPath := deps.WSPath
	if wsPath == "" {
		wsPath = "/ws"
	}

	return &Server{
		cfg:        deps.Config,
		secCfg:     deps.Security,
		wsPath:     wsPath,
		logger:     deps.Logger.Component("api"),
		version:    deps.Version,
		gate:       deps.Gate,
		projects:   deps.Projects,
		contacts:   deps.Contacts,
		relay:      deps.Relay,
		sessions:   deps.Sessions,
		audit:      deps.Audit,
		users:      deps.Users,
		metrics:    deps.Metrics,
		limiter:    deps.Limiter,
		stats:      deps.Stats,
		redisStats: deps.RedisStats,
		db:         deps.DB,
		mqtt:       deps.MQTT,
		influx:     deps.Influx,
		health:     deps.Health,
		now:        now,
		startTime:  now(),
	}, nil
}

// Handler returns the router. Start serves the same handler.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start binds the listener and serves in the background. Binding errors
// (port in use, bad TLS files) are returned; later serve errors are logged.
func (s *Server) Start(_ context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS", "address", ln.Addr().String(), "cert", s.cfg.TLS.CertFile)
			err = s.server.ServeTLS(ln, s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", ln.Addr().String())
			err = s.server.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the server, waiting up to 10 seconds for
// in-flight requests. Hijacked socket connections are not tracked by
// net/http; the relay closes them.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
