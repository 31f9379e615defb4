// Package logging provides structured logging for the gateway.
//
// It wraps log/slog so every component logs through one handler with the
// same default fields (service, version). Components derive children with
// Component("relay") or With(...) rather than building their own handlers.
//
// Configuration:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, discard
//
// Never log project keys or tokens in full; log a short prefix instead.
package logging
