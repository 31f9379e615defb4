package auth

import (
	"fmt"

	"github.com/rowanabisaiutp/api-websocket-messages/internal/infrastructure/config"
)

// Directory holds the configured login users. It is read-only after
// NewDirectory returns.
type Directory struct {
	users map[string]*User
}

// NewDirectory builds the user directory from the security.users section.
func NewDirectory(cfgs []config.UserConfig) (*Directory, error) {
	d := &Directory{users: make(map[string]*User, len(cfgs))}
	for _, c := range cfgs {
		if !IsValidUsername(c.Username) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidUsername, c.Username)
		}
		if _, dup := d.users[c.Username]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateUser, c.Username)
		}
		d.users[c.Username] = &User{
			Username:     c.Username,
			Role:         ParseRole(c.Role),
			Project:      c.Project,
			PasswordHash: c.PasswordHash,
		}
	}
	return d, nil
}

// Login checks username and password. Unknown users and wrong passwords
// both yield ErrInvalidCredentials.
func (d *Directory) Login(username, password string) (*User, error) {
	u, ok := d.users[username]
	if !ok {
		return nil, ErrInvalidCredentials
	}

	match, err := VerifyPassword(password, u.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verifying password for %s: %w", username, err)
	}
	if !match {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Len returns the number of users.
func (d *Directory) Len() int {
	return len(d.users)
}
