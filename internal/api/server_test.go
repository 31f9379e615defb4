package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rowanabisaiutp/api-websocket-messages/internal/audit"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/contact"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/gate"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/infrastructure/config"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/infrastructure/database"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/infrastructure/logging"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/metrics"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/project"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/ratelimit"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/relay"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/session"
	"github.com/rowanabisaiutp/api-websocket-messages/migrations"
)

const (
	webKey    = "proj_abc123def456_project1"
	mobileKey = "proj_xyz789ghi012_project2"
	tinyKey   = "proj_tiny"
	adminKey  = "test-admin-key"
)

type testEnv struct {
	srv      *Server
	http     *httptest.Server
	hub      *relay.Hub
	repo     *contact.SQLiteRepository
	stats    *ratelimit.MemoryStats
	metrics  *metrics.Metrics
	sessions *session.Manager
}

// newTestEnv wires a server over a temp SQLite file with the default
// projects plus proj_tiny (2 requests per minute, read only).
func newTestEnv(t *testing.T, mutate func(*Deps)) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "api.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	repo := contact.NewSQLiteRepository(db.DB)
	trail := audit.NewSQLiteRepository(db.DB)

	cfgs := append(config.DefaultProjects(), config.ProjectConfig{
		Key:       tinyKey,
		Name:      "Tiny",
		RateLimit: config.ProjectRateLimitConfig{Requests: 2, Window: "1m"},
		Features:  []string{"read"},
	})
	registry, err := project.New(cfgs)
	if err != nil {
		t.Fatalf("project.New() error = %v", err)
	}

	log := logging.Discard()
	m := metrics.New()
	stats := ratelimit.NewMemoryStats()
	limiter := ratelimit.New()

	sec := config.SecurityConfig{
		Mode:      config.AuthModeAPIKey,
		AdminKey:  adminKey,
		RateLimit: config.RateLimitConfig{Enabled: true},
	}

	hub := relay.NewHub(log, relay.WithMetrics(m))
	sessions, err := session.NewManager(session.Deps{
		Config:   config.WebSocketConfig{MaxMessageSize: 16384, PingInterval: 25, PongTimeout: 20, SendBuffer: 32},
		Registry: registry,
		Relay:    hub,
		Store:    repo,
		Logger:   log,
		Metrics:  m,
		Audit:    trail,
	})
	if err != nil {
		t.Fatalf("session.NewManager() error = %v", err)
	}

	deps := Deps{
		Config:   config.APIConfig{Host: "127.0.0.1"},
		Security: sec,
		WSPath:   "/ws",
		Logger:   log,
		Version:  "test",
		Projects: registry,
		Contacts: repo,
		Relay:    hub,
		Sessions: sessions,
		Audit:    trail,
		Metrics:  m,
		Limiter:  limiter,
		Stats:    stats,
		DB:       db,
		Health: map[string]HealthChecker{
			"database": db,
		},
	}
	if mutate != nil {
		mutate(&deps)
	}

	if deps.Gate == nil {
		g, err := gate.New(deps.Security, gate.Deps{
			Registry: registry,
			Limiter:  limiter,
			Recorder: ratelimit.Fanout(stats, m),
			Logger:   log,
		})
		if err != nil {
			t.Fatalf("gate.New() error = %v", err)
		}
		deps.Gate = g
	}

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{srv: srv, http: ts, hub: hub, repo: repo, stats: stats, metrics: m, sessions: sessions}
}

// do sends a request with optional JSON body and headers (key, value pairs).
func (e *testEnv) do(t *testing.T, method, path string, payload any, headers ...string) *http.Response {
	t.Helper()

	var rd io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.http.URL+path, rd)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return out
}

func wantStatus(t *testing.T, resp *http.Response, status int) {
	t.Helper()
	if resp.StatusCode != status {
		t.Fatalf("%s %s status = %d, want %d", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, status)
	}
}

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New(Deps{}) error = nil")
	}
}

func TestRoot(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.do(t, http.MethodGet, "/", nil)
	wantStatus(t, resp, http.StatusOK)

	got := decode(t, resp)
	endpoints, ok := got["endpoints"].(map[string]any)
	if !ok || endpoints["GET /ws"] == nil {
		t.Errorf("endpoints = %v", got["endpoints"])
	}
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.do(t, http.MethodGet, "/nope", nil)
	wantStatus(t, resp, http.StatusNotFound)

	got := decode(t, resp)
	if got["success"] != false || got["message"] != "Route not found" {
		t.Errorf("body = %v", got)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.do(t, http.MethodGet, "/health", nil)
	wantStatus(t, resp, http.StatusOK)

	checks := decode(t, resp)["checks"].(map[string]any)
	if checks["database"] != "ok" {
		t.Errorf("checks = %v", checks)
	}
}

func TestHealth_Degraded(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.Health["mqtt"] = HealthFunc(func(context.Context) error { return errors.New("not connected") })
	})
	resp := env.do(t, http.MethodGet, "/health", nil)
	wantStatus(t, resp, http.StatusServiceUnavailable)

	got := decode(t, resp)
	if got["success"] != false {
		t.Errorf("success = %v", got["success"])
	}
	if checks := got["checks"].(map[string]any); checks["mqtt"] != "not connected" || checks["database"] != "ok" {
		t.Errorf("checks = %v", checks)
	}
}

func TestSocketDocs(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.do(t, http.MethodGet, "/socket-docs", nil)
	wantStatus(t, resp, http.StatusOK)

	got := decode(t, resp)
	auth := got["authentication"].(map[string]any)
	if auth["event"] != session.EventAuthenticate {
		t.Errorf("authentication = %v", auth)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodGet, "/api/contacts", nil, "x-api-key", webKey)

	resp := env.do(t, http.MethodGet, "/metrics", nil)
	wantStatus(t, resp, http.StatusOK)
	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), "apiws_gate_decisions_total") {
		t.Error("exposition lacks apiws_gate_decisions_total")
	}
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodGet, "/health", nil, "X-Request-ID", "abc-123")
	if got := resp.Header.Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want echo", got)
	}
	resp = env.do(t, http.MethodGet, "/health", nil)
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not generated")
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.do(t, http.MethodOptions, "/api/contacts", nil, "Origin", "https://api-websocket-messages.vercel.app")
	wantStatus(t, resp, http.StatusNoContent)
	if resp.Header.Get("Access-Control-Allow-Origin") == "" {
		t.Error("missing Access-Control-Allow-Origin")
	}
}

func TestStartAndClose(t *testing.T) {
	env := newTestEnv(t, nil)
	if err := env.srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if env.srv.Addr() == "" {
		t.Fatal("Addr() empty after Start")
	}

	resp, err := http.Get("http://" + env.srv.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()

	if err := env.srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestAdmin_RequiresKey(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{"/api/projects", "/api/stats"} {
		resp := env.do(t, http.MethodGet, path, nil)
		wantStatus(t, resp, http.StatusForbidden)

		resp = env.do(t, http.MethodGet, path, nil, "x-admin-key", "wrong")
		wantStatus(t, resp, http.StatusForbidden)
	}
}

func TestAdmin_NoKeyConfigured(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.Security.AdminKey = "" })
	resp := env.do(t, http.MethodGet, "/api/projects", nil, "x-admin-key", "")
	wantStatus(t, resp, http.StatusForbidden)
}

func TestAdmin_ListProjects(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.do(t, http.MethodGet, "/api/projects", nil, "x-admin-key", adminKey)
	wantStatus(t, resp, http.StatusOK)

	projects := decode(t, resp)["projects"].([]any)
	if len(projects) != 3 {
		t.Fatalf("len(projects) = %d, want 3", len(projects))
	}
	first := projects[0].(map[string]any)
	if first["projectId"] != webKey || first["rateLimit"].(map[string]any)["window"] != "1h" {
		t.Errorf("first project = %v", first)
	}
}

func TestAdmin_Stats(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodGet, "/api/contacts", nil, "x-api-key", webKey)

	resp := env.do(t, http.MethodGet, "/api/stats", nil, "x-admin-key", adminKey)
	wantStatus(t, resp, http.StatusOK)

	var stats SystemStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.RateLimit.Total.Allowed != 1 || stats.RateLimit.Buckets != 1 {
		t.Errorf("rate limit stats = %+v", stats.RateLimit)
	}
	if stats.Database == nil || stats.Version != "test" {
		t.Errorf("stats = %+v", stats)
	}
}

func TestProjectStatus(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.do(t, http.MethodGet, "/api/project/status", nil, "x-api-key", mobileKey)
	wantStatus(t, resp, http.StatusOK)

	p := decode(t, resp)["project"].(map[string]any)
	if p["name"] != "Aplicación Móvil" {
		t.Errorf("project = %v", p)
	}
	if usage, ok := p["usage"].(map[string]any); !ok || usage["count"] != float64(1) {
		t.Errorf("usage = %v", p["usage"])
	}
}

// Timestamps in responses are RFC 3339.
func TestProjectStatus_Timestamp(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	env := newTestEnv(t, func(d *Deps) { d.Now = func() time.Time { return fixed } })

	resp := env.do(t, http.MethodGet, "/api/project/status", nil, "x-api-key", webKey)
	if got := decode(t, resp)["timestamp"]; got != "2025-06-01T12:00:00Z" {
		t.Errorf("timestamp = %v", got)
	}
}
