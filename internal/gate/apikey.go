package gate

import "context"

// APIKeyGate admits requests carrying a registered project API key.
type APIKeyGate struct {
	admitter
}

// NewAPIKeyGate returns the default gate.
func NewAPIKeyGate(deps Deps) *APIKeyGate {
	return &APIKeyGate{admitter{deps}}
}

// Authenticate checks, in order and stopping at the first failure: a
// credential is present, it resolves to a project, the origin is allowed,
// the project's window has room. Only the last step counts the request.
func (g *APIKeyGate) Authenticate(ctx context.Context, req Request) (*TenantContext, error) {
	if req.Credential == "" {
		return nil, ErrMissingCredential
	}
	p, ok := g.Registry.Resolve(req.Credential)
	if !ok {
		return nil, ErrUnknownCredential
	}
	return g.admit(ctx, req, p, req.Credential, "")
}
