// Package session runs the persistent socket connections of the relay.
//
// Every connection is upgraded with gorilla/websocket, given a uuid and
// placed in the default room straight away. Frames are JSON objects of the
// form {"event": "...", "data": {...}} in both directions.
//
// A connection starts unauthenticated. The "authenticate" event resolves an
// API key against the project registry (without rate limiting) and sets the
// role: admin for elevated projects, client otherwise. Admin connections
// also join the elevated room. A failed handshake leaves the connection
// open and anonymous.
//
// The "send" event validates a contact message, persists it through Store,
// broadcasts "notify" to the elevated room and only then acknowledges the
// sender with "send_ack". The sender never receives its own notify.
//
// Each session runs a read pump and a write pump. The write pump owns all
// writes to the connection and sends pings; the read pump extends the read
// deadline on every pong or frame, so dead peers are reaped after
// ping_interval + pong_timeout.
package session
