package gate

import (
	"errors"
	"fmt"
	"time"
)

// Rejection kinds. Each is terminal for the request that triggered it.
var (
	ErrMissingCredential   = errors.New("project API key required")
	ErrUnknownCredential   = errors.New("invalid project API key")
	ErrOriginNotAllowed    = errors.New("origin not allowed for this project")
	ErrRateLimitExceeded   = errors.New("rate limit exceeded for this project")
	ErrAddressNotAllowed   = errors.New("access denied from this IP address")
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrUnauthorizedFeature = errors.New("feature not allowed for this project")
)

// OriginError carries the rejected origin and the project's allow-list.
type OriginError struct {
	Origin  string
	Allowed []string
}

func (e *OriginError) Error() string {
	return fmt.Sprintf("%s: %s", ErrOriginNotAllowed, e.Origin)
}

func (e *OriginError) Unwrap() error { return ErrOriginNotAllowed }

// RateLimitError reports when the exhausted window ends.
type RateLimitError struct {
	ResetAt time.Time
	Limit   int
	Window  string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: %d per %s, resets at %s",
		ErrRateLimitExceeded, e.Limit, e.Window, e.ResetAt.Format(time.RFC3339))
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimitExceeded }

// RetryAfter is the whole seconds until ResetAt, at least 1.
func (e *RateLimitError) RetryAfter(now time.Time) int {
	secs := int(e.ResetAt.Sub(now).Round(time.Second) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// AddressError carries the rejected client address.
type AddressError struct {
	Address string
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("%s: %s", ErrAddressNotAllowed, e.Address)
}

func (e *AddressError) Unwrap() error { return ErrAddressNotAllowed }

// FeatureError names the missing feature.
type FeatureError struct {
	Feature string
	Project string
	Allowed []string
}

func (e *FeatureError) Error() string {
	return fmt.Sprintf("feature %q not allowed for project %s", e.Feature, e.Project)
}

func (e *FeatureError) Unwrap() error { return ErrUnauthorizedFeature }
