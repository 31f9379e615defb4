// Package auth provides the login identities used by the jwt gate mode.
//
// Users are declared in configuration with an Argon2id PHC password hash and
// bound to one project. A successful login yields an HS256 access token
// whose claims carry the username, role and project key; the gate resolves
// that project key exactly as it would an API key.
package auth
