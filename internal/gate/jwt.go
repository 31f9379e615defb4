package gate

import (
	"context"
	"fmt"

	"github.com/rowanabisaiutp/api-websocket-messages/internal/auth"
)

// minSecretLen matches the config validation rule for security.jwt.secret.
const minSecretLen = 32

// JWTGate admits requests carrying an access token issued by /auth/login.
// The project named in the token's claims is rate limited as a whole.
type JWTGate struct {
	admitter
	secret string
}

// NewJWTGate returns a gate verifying HS256 tokens signed with secret.
func NewJWTGate(secret string, deps Deps) (*JWTGate, error) {
	if len(secret) < minSecretLen {
		return nil, fmt.Errorf("gate: jwt secret must be at least %d characters", minSecretLen)
	}
	return &JWTGate{admitter: admitter{deps}, secret: secret}, nil
}

// Authenticate parses the bearer token, resolves its project and then runs
// the origin and limiter steps.
func (g *JWTGate) Authenticate(ctx context.Context, req Request) (*TenantContext, error) {
	if req.Credential == "" {
		return nil, ErrMissingCredential
	}

	claims, err := auth.ParseToken(req.Credential, g.secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	p, ok := g.Registry.Resolve(claims.Project)
	if !ok {
		return nil, ErrUnknownCredential
	}
	return g.admit(ctx, req, p, p.Key, claims.Subject)
}
