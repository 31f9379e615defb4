package gate

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/rowanabisaiutp/api-websocket-messages/internal/infrastructure/config"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/project"
)

// IPAllowGate admits requests from listed client addresses. Every admitted
// caller acts for one configured project and is limited per address.
//
// Forwarding headers are honoured only when the socket peer is one of the
// configured trusted proxies; otherwise the peer address is checked.
type IPAllowGate struct {
	admitter
	allowed map[string]struct{}
	trusted []*net.IPNet
	project *project.Project
}

// NewIPAllowGate returns a gate admitting cfg.Addresses on behalf of
// cfg.Project.
func NewIPAllowGate(cfg config.IPAllowlistConfig, deps Deps) (*IPAllowGate, error) {
	if len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("gate: ip allow-list is empty")
	}
	p, ok := deps.Registry.Resolve(cfg.Project)
	if !ok {
		return nil, fmt.Errorf("gate: ip allow-list project is not registered")
	}

	allowed := make(map[string]struct{}, len(cfg.Addresses))
	for _, a := range cfg.Addresses {
		ip := net.ParseIP(a)
		if ip == nil {
			return nil, fmt.Errorf("gate: invalid address %q in allow-list", a)
		}
		allowed[ip.String()] = struct{}{}
	}

	trusted, err := ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}

	return &IPAllowGate{admitter: admitter{deps}, allowed: allowed, trusted: trusted, project: p}, nil
}

// ParseTrustedProxies accepts single addresses ("10.0.0.1") and CIDR
// blocks ("10.0.0.0/8").
func ParseTrustedProxies(entries []string) ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(entries))
	for _, e := range entries {
		if strings.Contains(e, "/") {
			_, n, err := net.ParseCIDR(e)
			if err != nil {
				return nil, fmt.Errorf("gate: invalid trusted proxy %q: %w", e, err)
			}
			nets = append(nets, n)
			continue
		}
		ip := net.ParseIP(e)
		if ip == nil {
			return nil, fmt.Errorf("gate: invalid trusted proxy %q", e)
		}
		bits := 8 * net.IPv6len
		if v4 := ip.To4(); v4 != nil {
			ip, bits = v4, 8*net.IPv4len
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return nets, nil
}

// Authenticate admits req when its client address is listed.
func (g *IPAllowGate) Authenticate(ctx context.Context, req Request) (*TenantContext, error) {
	addr := g.clientAddress(req)
	ip := net.ParseIP(addr)
	if ip == nil {
		return nil, &AddressError{Address: addr}
	}
	canon := ip.String()
	if _, ok := g.allowed[canon]; !ok {
		return nil, &AddressError{Address: canon}
	}
	return g.admit(ctx, req, g.project, g.project.Key+"|"+canon, canon)
}

// clientAddress picks the address to check. Without a peer the caller has
// already resolved ClientIP.
func (g *IPAllowGate) clientAddress(req Request) string {
	if req.PeerIP == "" {
		return req.ClientIP
	}
	peer := net.ParseIP(req.PeerIP)
	if peer == nil {
		return req.PeerIP
	}
	for _, n := range g.trusted {
		if n.Contains(peer) {
			return req.ClientIP
		}
	}
	return req.PeerIP
}
