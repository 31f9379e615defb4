package gate

import (
	"context"

	"github.com/rowanabisaiutp/api-websocket-messages/internal/project"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/ratelimit"
)

// TenantContext is what an admitted request knows about its caller.
type TenantContext struct {
	// Credential is the API key of the resolved project. For the jwt and
	// ip_allowlist modes it is the project key the caller maps to.
	Credential string
	Project    *project.Project

	// Subject identifies the caller within the project: the username in
	// jwt mode, the client address in ip_allowlist mode, empty otherwise.
	Subject string

	// Decision is the limiter outcome for this request. Zero when rate
	// limiting is disabled.
	Decision ratelimit.Decision
}

// ProjectName returns the display name of the tenant project.
func (t *TenantContext) ProjectName() string { return t.Project.Name }

// Features returns the features granted to the tenant project.
func (t *TenantContext) Features() []string { return t.Project.Features }

// HasFeature reports whether the tenant project was granted name.
func (t *TenantContext) HasFeature(name string) bool {
	return t.Project.HasFeature(name)
}

// RequireFeature returns a *FeatureError when name is not granted.
func (t *TenantContext) RequireFeature(name string) error {
	if t.HasFeature(name) {
		return nil
	}
	return &FeatureError{Feature: name, Project: t.Project.Name, Allowed: t.Project.Features}
}

type tenantKey struct{}

// WithTenant returns a copy of ctx carrying t.
func WithTenant(ctx context.Context, t *TenantContext) context.Context {
	return context.WithValue(ctx, tenantKey{}, t)
}

// TenantFrom returns the tenant attached by WithTenant, if any.
func TenantFrom(ctx context.Context) (*TenantContext, bool) {
	t, ok := ctx.Value(tenantKey{}).(*TenantContext)
	return t, ok && t != nil
}
