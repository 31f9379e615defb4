package gate

import "strings"

// OriginAllowed applies the project origin rule.
//
// An absent origin or an empty allow-list passes. Local development origins
// ("null", file://, localhost, 127.0.0.1) always pass. Otherwise the origin
// must contain one of the allowed entries with its http(s) scheme removed.
// Matching is by substring, so "example.com" also admits
// "https://example.com.attacker.net"; projects needing exact matching should
// list full hosts.
func OriginAllowed(origin string, allowed []string) bool {
	if origin == "" || len(allowed) == 0 {
		return true
	}
	if isLocalOrigin(origin) {
		return true
	}
	for _, a := range allowed {
		host := strings.TrimPrefix(strings.TrimPrefix(a, "https://"), "http://")
		if host != "" && strings.Contains(origin, host) {
			return true
		}
	}
	return false
}

func isLocalOrigin(origin string) bool {
	return origin == "null" ||
		strings.Contains(origin, "file://") ||
		strings.Contains(origin, "localhost") ||
		strings.Contains(origin, "127.0.0.1")
}
