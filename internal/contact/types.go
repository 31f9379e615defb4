package contact

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Sources of a message.
const (
	SourceREST   = "rest"
	SourceSocket = "socket"
)

// maxFieldLength bounds every text field except the message body.
const (
	maxFieldLength   = 255
	maxMessageLength = 10000
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Message is a persisted contact message.
type Message struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	Project   string    `json:"project,omitempty"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Input is the caller-supplied part of a message. The JSON names match
// both the REST body and the socket "send" payload.
type Input struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`

	// Project is the display name of the submitting project, if any.
	Project string `json:"-"`
	// Source is SourceREST or SourceSocket; empty means SourceREST.
	Source string `json:"-"`
}

// Normalize trims surrounding whitespace from every field.
func (in *Input) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Subject = strings.TrimSpace(in.Subject)
	in.Message = strings.TrimSpace(in.Message)
}

// Validate normalizes in and checks it. The error is a *ValidationError.
func (in *Input) Validate() error {
	in.Normalize()

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"name", in.Name},
		{"email", in.Email},
		{"subject", in.Subject},
		{"message", in.Message},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{
			Fields: missing,
			Reason: "All fields (name, email, subject, message) are required",
		}
	}

	switch {
	case !emailPattern.MatchString(in.Email):
		return &ValidationError{Fields: []string{"email"}, Reason: "email is not a valid address"}
	case len(in.Name) > maxFieldLength:
		return &ValidationError{Fields: []string{"name"}, Reason: fmt.Sprintf("name exceeds %d characters", maxFieldLength)}
	case len(in.Email) > maxFieldLength:
		return &ValidationError{Fields: []string{"email"}, Reason: fmt.Sprintf("email exceeds %d characters", maxFieldLength)}
	case len(in.Subject) > maxFieldLength:
		return &ValidationError{Fields: []string{"subject"}, Reason: fmt.Sprintf("subject exceeds %d characters", maxFieldLength)}
	case len(in.Message) > maxMessageLength:
		return &ValidationError{Fields: []string{"message"}, Reason: fmt.Sprintf("message exceeds %d characters", maxMessageLength)}
	}
	return nil
}
