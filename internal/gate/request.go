package gate

import (
	"net"
	"net/http"
	"strings"
	"time"
)

// Request is the transport-neutral input to Authenticate. ClientIP is the
// address the request claims; PeerIP is the socket peer.
type Request struct {
	Credential string
	Origin     string
	ClientIP   string
	PeerIP     string
	Method     string
	Path       string
	Now        time.Time
}

// FromHTTP extracts a Request from r.
//
// Credential: x-api-key, else the token of "Authorization: Bearer <token>".
// Origin: Origin, else Referer.
func FromHTTP(r *http.Request, now time.Time) Request {
	return Request{
		Credential: Credential(r),
		Origin:     originOf(r),
		ClientIP:   ClientIP(r),
		PeerIP:     stripPort(r.RemoteAddr),
		Method:     r.Method,
		Path:       r.URL.Path,
		Now:        now,
	}
}

// Credential returns the caller's credential from r, or "".
func Credential(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get("X-Api-Key")); key != "" {
		return key
	}
	authz := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(authz, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func originOf(r *http.Request) string {
	if o := r.Header.Get("Origin"); o != "" {
		return o
	}
	return r.Header.Get("Referer")
}

// ClientIP returns the caller address as claimed by the request: the first
// X-Forwarded-For entry, else X-Real-IP, else the socket peer. Any port is
// removed. The headers are client-controlled; IPAllowGate only trusts them
// from configured proxies.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := stripPort(strings.TrimSpace(first)); ip != "" {
			return ip
		}
	}
	if xr := strings.TrimSpace(r.Header.Get("X-Real-IP")); xr != "" {
		return stripPort(xr)
	}
	return stripPort(r.RemoteAddr)
}

func stripPort(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return strings.Trim(addr, "[]")
}
