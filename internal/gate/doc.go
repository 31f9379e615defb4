// Package gate admits or rejects requests on behalf of a project.
//
// Three interchangeable Authenticator implementations exist and exactly one
// is selected from security.mode at start-up:
//
//   - APIKeyGate (api_key): the caller presents a project API key.
//   - JWTGate (jwt): the caller presents an access token from /auth/login
//     whose claims name the project.
//   - IPAllowGate (ip_allowlist): the caller's address must be listed; all
//     admitted callers act for one configured project. Forwarding headers
//     count only from trusted proxies.
//
// Once the project is known every variant applies the same origin rule and
// then counts the request against the project's fixed-window quota.
// Rejections are the sentinel errors in errors.go, some wrapped in typed
// errors carrying response details.
package gate
