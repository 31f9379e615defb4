// Package contact stores contact messages submitted over REST or a socket
// "send" event.
//
// The relay core only depends on Create and FindByID; the remaining
// operations back the REST surface.
package contact
