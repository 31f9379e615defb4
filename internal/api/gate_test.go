package api

import (
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/rowanabisaiutp/api-websocket-messages/internal/auth"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/infrastructure/config"
)

func TestGate_Rejections(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name     string
		headers  []string
		status   int
		code     string
		detailOK func(map[string]any) bool
	}{
		{
			name:   "missing key",
			status: http.StatusUnauthorized,
			code:   ErrCodeMissingKey,
			detailOK: func(b map[string]any) bool {
				return b["documentation"] != nil
			},
		},
		{
			name:    "unknown key",
			headers: []string{"x-api-key", "proj_nope"},
			status:  http.StatusForbidden,
			code:    ErrCodeInvalidKey,
			detailOK: func(b map[string]any) bool {
				return b["hint"] != nil
			},
		},
		{
			name:    "foreign origin",
			headers: []string{"x-api-key", webKey, "Origin", "https://evil.example"},
			status:  http.StatusForbidden,
			code:    ErrCodeOriginNotAllowed,
			detailOK: func(b map[string]any) bool {
				return b["yourOrigin"] == "https://evil.example" && len(b["allowedOrigins"].([]any)) == 1
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodGet, "/api/contacts", nil, tt.headers...)
			wantStatus(t, resp, tt.status)
			got := decode(t, resp)
			if got["success"] != false || got["code"] != tt.code {
				t.Errorf("body = %v", got)
			}
			if !tt.detailOK(got) {
				t.Errorf("details missing in %v", got)
			}
		})
	}
}

func TestGate_AcceptedCredentials(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name    string
		headers []string
	}{
		{"x-api-key", []string{"x-api-key", webKey}},
		{"bearer", []string{"Authorization", "Bearer " + webKey}},
		{"allowed origin", []string{"x-api-key", webKey, "Origin", "https://api-websocket-messages.vercel.app"}},
		{"localhost origin", []string{"x-api-key", webKey, "Origin", "http://localhost:5173"}},
		{"referer fallback", []string{"x-api-key", webKey, "Referer", "http://127.0.0.1:8080/form.html"}},
		{"file origin", []string{"x-api-key", webKey, "Origin", "null"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodGet, "/api/project/status", nil, tt.headers...)
			wantStatus(t, resp, http.StatusOK)
		})
	}
}

func TestGate_RateLimit(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 10, 0, time.UTC)
	env := newTestEnv(t, func(d *Deps) { d.Now = func() time.Time { return fixed } })

	for i := 0; i < 2; i++ {
		resp := env.do(t, http.MethodGet, "/api/contacts", nil, "x-api-key", tinyKey)
		wantStatus(t, resp, http.StatusOK)
		if got := resp.Header.Get("X-RateLimit-Remaining"); got != strconv.Itoa(1-i) {
			t.Errorf("request %d remaining = %q", i, got)
		}
		if got := resp.Header.Get("X-RateLimit-Limit"); got != "2" {
			t.Errorf("X-RateLimit-Limit = %q", got)
		}
	}

	resp := env.do(t, http.MethodGet, "/api/contacts", nil, "x-api-key", tinyKey)
	wantStatus(t, resp, http.StatusTooManyRequests)
	if got := resp.Header.Get("Retry-After"); got != "50" {
		t.Errorf("Retry-After = %q, want 50", got)
	}
	got := decode(t, resp)
	if got["resetAt"] != "2025-06-01T12:01:00Z" || got["limit"] != float64(2) || got["window"] != "1m" {
		t.Errorf("body = %v", got)
	}

	// Other projects are unaffected.
	resp = env.do(t, http.MethodGet, "/api/contacts", nil, "x-api-key", webKey)
	wantStatus(t, resp, http.StatusOK)

	if c := env.stats.ByProject()["Tiny"]; c.Allowed != 2 || c.Denied != 1 {
		t.Errorf("Tiny counters = %+v", c)
	}
}

func TestLogin_JWTMode(t *testing.T) {
	hash, err := auth.HashPassword("securePass123!")
	if err != nil {
		t.Fatal(err)
	}
	users, err := auth.NewDirectory([]config.UserConfig{
		{Username: "admin1", PasswordHash: hash, Role: "admin", Project: mobileKey},
	})
	if err != nil {
		t.Fatal(err)
	}

	env := newTestEnv(t, func(d *Deps) {
		d.Security.Mode = config.AuthModeJWT
		d.Security.JWT = config.JWTConfig{Secret: "api-test-secret-0123456789abcdef!!", AccessTokenTTL: 5}
		d.Users = users
	})

	resp := env.do(t, http.MethodPost, "/auth/login", map[string]string{"username": "admin1"})
	wantStatus(t, resp, http.StatusBadRequest)

	resp = env.do(t, http.MethodPost, "/auth/login", map[string]string{"username": "admin1", "password": "wrong"})
	wantStatus(t, resp, http.StatusUnauthorized)

	resp = env.do(t, http.MethodPost, "/auth/login", map[string]string{"username": "admin1", "password": "securePass123!"})
	wantStatus(t, resp, http.StatusOK)
	got := decode(t, resp)
	token, _ := got["token"].(string)
	if token == "" || got["expiresIn"] != float64(300) {
		t.Fatalf("login body = %v", got)
	}

	resp = env.do(t, http.MethodGet, "/api/project/status", nil, "Authorization", "Bearer "+token)
	wantStatus(t, resp, http.StatusOK)
	p := decode(t, resp)["project"].(map[string]any)
	if p["name"] != "Aplicación Móvil" || p["subject"] != "admin1" {
		t.Errorf("project = %v", p)
	}

	// The raw project key is not a token.
	resp = env.do(t, http.MethodGet, "/api/project/status", nil, "Authorization", "Bearer "+mobileKey)
	wantStatus(t, resp, http.StatusUnauthorized)
}

func TestLogin_NotRoutedInAPIKeyMode(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.do(t, http.MethodPost, "/auth/login", map[string]string{"username": "a", "password": "b"})
	wantStatus(t, resp, http.StatusNotFound)
}

func TestGate_IPAllowlist(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.Security.Mode = config.AuthModeIPAllowlist
		d.Security.IPAllowlist = config.IPAllowlistConfig{
			Addresses:      []string{"192.168.1.100"},
			Project:        webKey,
			TrustedProxies: []string{"127.0.0.1", "::1"},
		}
	})

	resp := env.do(t, http.MethodGet, "/api/contacts", nil, "X-Forwarded-For", "192.168.1.100, 10.0.0.1")
	wantStatus(t, resp, http.StatusOK)

	resp = env.do(t, http.MethodGet, "/api/contacts", nil, "X-Forwarded-For", "192.168.1.200")
	wantStatus(t, resp, http.StatusForbidden)
	if got := decode(t, resp); got["code"] != ErrCodeIPNotAllowed || got["yourIP"] != "192.168.1.200" {
		t.Errorf("body = %v", got)
	}
}

func TestGate_IPAllowlistIgnoresUntrustedForwarding(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.Security.Mode = config.AuthModeIPAllowlist
		d.Security.IPAllowlist = config.IPAllowlistConfig{Addresses: []string{"192.168.1.100"}, Project: webKey}
	})

	resp := env.do(t, http.MethodGet, "/api/contacts", nil, "X-Forwarded-For", "192.168.1.100")
	wantStatus(t, resp, http.StatusForbidden)
	if got := decode(t, resp); got["yourIP"] == "192.168.1.100" {
		t.Errorf("forwarded address from an untrusted peer was used: %v", got)
	}

	resp = env.do(t, http.MethodGet, "/api/contacts", nil, "X-Real-IP", "192.168.1.100")
	wantStatus(t, resp, http.StatusForbidden)
}
