// Package api implements the HTTP surface of the gateway.
//
// This package provides:
//   - Contact message CRUD under /api/contacts, guarded by the project gate
//     and per-route feature checks
//   - Relay of created and deleted records to the default socket room
//   - The socket upgrade route, delegated to the session manager
//   - Admin endpoints behind x-admin-key (project listing, stats, test emits)
//   - Health, Prometheus metrics and protocol documentation
//
// # Gate
//
// Every /api route except the admin ones passes through the configured
// gate.Authenticator. Admitted requests carry a *gate.TenantContext in
// their context and receive X-RateLimit-* headers; rejections are answered
// with {success:false, code, message, ...} and 401, 403 or 429.
//
// # Graceful Degradation
//
// MQTT, InfluxDB and Redis are optional. The server runs without them and
// /health reports only the checks it was given.
package api
