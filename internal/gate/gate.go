package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/rowanabisaiutp/api-websocket-messages/internal/infrastructure/config"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/infrastructure/logging"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/project"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/ratelimit"
)

// recordTimeout bounds a single stats write so a slow recorder cannot hold
// up the request it describes.
const recordTimeout = 250 * time.Millisecond

// Authenticator admits or rejects one request. Implementations are safe for
// concurrent use.
type Authenticator interface {
	Authenticate(ctx context.Context, req Request) (*TenantContext, error)
}

// Deps are the collaborators shared by every gate variant.
type Deps struct {
	Registry *project.Registry

	// Limiter may be nil, which disables rate limiting.
	Limiter *ratelimit.Limiter

	// Recorder receives one event per limiter decision. Optional.
	Recorder ratelimit.StatsRecorder

	Logger *logging.Logger
}

// New returns the Authenticator selected by sec.Mode.
func New(sec config.SecurityConfig, deps Deps) (Authenticator, error) {
	if deps.Registry == nil {
		return nil, fmt.Errorf("gate: registry is required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if !sec.RateLimit.Enabled {
		deps.Limiter = nil
	}

	switch sec.Mode {
	case config.AuthModeAPIKey, "":
		return NewAPIKeyGate(deps), nil
	case config.AuthModeJWT:
		return NewJWTGate(sec.JWT.Secret, deps)
	case config.AuthModeIPAllowlist:
		return NewIPAllowGate(sec.IPAllowlist, deps)
	default:
		return nil, fmt.Errorf("gate: unknown mode %q", sec.Mode)
	}
}

// admitter runs the steps every variant shares once the project is known:
// origin check, then one limiter increment.
type admitter struct {
	Deps
}

func (a *admitter) admit(ctx context.Context, req Request, p *project.Project, limitKey, subject string) (*TenantContext, error) {
	if !OriginAllowed(req.Origin, p.AllowedOrigins) {
		return nil, &OriginError{Origin: req.Origin, Allowed: p.AllowedOrigins}
	}

	t := &TenantContext{Credential: p.Key, Project: p, Subject: subject}
	if a.Limiter == nil {
		return t, nil
	}

	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	d := a.Limiter.Admit(limitKey, p.Policy, now)
	a.record(ctx, req, p, limitKey, d.Allowed, now)

	if !d.Allowed {
		return nil, &RateLimitError{ResetAt: d.ResetAt, Limit: p.Policy.Quota, Window: p.WindowLabel}
	}
	t.Decision = d
	return t, nil
}

func (a *admitter) record(ctx context.Context, req Request, p *project.Project, key string, allowed bool, at time.Time) {
	if a.Recorder == nil {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	err := a.Recorder.Record(rctx, ratelimit.StatsEvent{
		Key:     key,
		Project: p.Name,
		Allowed: allowed,
		Method:  req.Method,
		Path:    req.Path,
		At:      at,
	})
	if err != nil {
		a.Logger.Warn("recording gate decision failed", "project", p.Name, "error", err)
	}
}
