// Package project holds the tenants allowed to call the gateway.
//
// Each project is identified by an opaque API key and carries its display
// name, domain, allowed origin substrings, rate-limit policy and feature
// grants (read, write, delete). The Registry is loaded once from
// configuration and offers O(1) Resolve by key.
package project
