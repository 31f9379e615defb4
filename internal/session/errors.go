package session

import "errors"

var (
	// ErrUnauthenticated rejects "send" from an anonymous session when
	// websocket.require_auth_for_send is set.
	ErrUnauthenticated = errors.New("session is not authenticated")

	// ErrThrottled is reported when a session exceeds its inbound frame budget.
	ErrThrottled = errors.New("too many frames")

	// ErrMalformedFrame is reported for frames that are not valid JSON
	// envelopes.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrUnknownEvent is reported for events the server does not handle.
	ErrUnknownEvent = errors.New("unknown event")
)
