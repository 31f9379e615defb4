package auth

import (
	"errors"
	"regexp"
)

// usernamePattern: alphanumeric, dots, hyphens, underscores, 1-64 characters.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// IsValidUsername checks if a username meets format requirements.
func IsValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// Role is the tier a connection or token holder acts at.
type Role string

const (
	// RoleNone is a socket session that has not authenticated yet.
	RoleNone Role = "unauthenticated"

	// RoleClient is an authenticated consumer. Receives default-room events.
	RoleClient Role = "client"

	// RoleAdmin additionally receives elevated-room events.
	RoleAdmin Role = "admin"
)

// ParseRole maps a config or claim string to a Role. Anything other than
// "admin" is a client.
func ParseRole(s string) Role {
	if Role(s) == RoleAdmin {
		return RoleAdmin
	}
	return RoleClient
}

// User is a login identity declared in configuration. Users exist only for
// the jwt gate mode; each is bound to exactly one project.
type User struct {
	Username     string `json:"username"`
	Role         Role   `json:"role"`
	Project      string `json:"-"` // project key, a credential
	PasswordHash string `json:"-"`
}

// Sentinel errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrDuplicateUser      = errors.New("duplicate username")
	ErrInvalidUsername    = errors.New("invalid username")
)
