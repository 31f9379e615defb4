package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rowanabisaiutp/api-websocket-messages/internal/auth"
)

// defaultTokenTTL is used when security.jwt.access_token_ttl is unset.
const defaultTokenTTL = 15 // minutes

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleLogin exchanges configured user credentials for a token accepted
// by the jwt gate. Registered only in jwt mode.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeBadRequest(w, "Username and password required")
		return
	}

	user, err := s.users.Login(req.Username, req.Password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			s.logger.Error("login failed", "username", req.Username, "error", err)
		}
		writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Invalid credentials", nil)
		return
	}

	ttl := s.secCfg.JWT.AccessTokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	token, err := auth.GenerateAccessToken(user, s.secCfg.JWT.Secret, ttl)
	if err != nil {
		s.logger.Error("signing token failed", "error", err)
		writeInternalError(w, "failed to generate token", nil)
		return
	}

	s.logger.Info("user logged in", "username", user.Username, "role", user.Role)
	writeJSON(w, http.StatusOK, body{
		"success":   true,
		"message":   "Login successful",
		"token":     token,
		"tokenType": "Bearer",
		"expiresIn": ttl * 60,
		"user":      user,
	})
}
