package project

import (
	"fmt"

	"github.com/rowanabisaiutp/api-websocket-messages/internal/infrastructure/config"
)

// Registry is the static credential → project lookup. It is read-only
// after New returns and needs no locking.
type Registry struct {
	byKey   map[string]*Project
	ordered []*Project
}

// New builds a registry from the projects section of the configuration.
func New(cfgs []config.ProjectConfig) (*Registry, error) {
	r := &Registry{
		byKey:   make(map[string]*Project, len(cfgs)),
		ordered: make([]*Project, 0, len(cfgs)),
	}

	for _, c := range cfgs {
		if c.Key == "" {
			return nil, ErrEmptyKey
		}
		if _, dup := r.byKey[c.Key]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, c.Name)
		}
		if c.RateLimit.Requests <= 0 {
			return nil, fmt.Errorf("project %q: %w", c.Name, ErrInvalidQuota)
		}

		p, err := fromConfig(c)
		if err != nil {
			return nil, err
		}
		r.byKey[p.Key] = p
		r.ordered = append(r.ordered, p)
	}

	return r, nil
}

// Resolve returns the project registered under credential.
func (r *Registry) Resolve(credential string) (*Project, bool) {
	p, ok := r.byKey[credential]
	return p, ok
}

// List returns the projects in configuration order.
func (r *Registry) List() []*Project {
	out := make([]*Project, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Len returns the number of registered projects.
func (r *Registry) Len() int {
	return len(r.ordered)
}
