package session

import (
	"github.com/rowanabisaiutp/api-websocket-messages/internal/auth"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/contact"
)

// Inbound events.
const (
	EventAuthenticate = "authenticate"
	EventSend         = "send"
)

// Outbound events sent to one connection only.
const (
	EventAuthenticated = "authenticated"
	EventSendAck       = "send_ack"
	EventError         = "error"
)

// Reply texts.
const (
	msgInvalidKey  = "Invalid API key"
	msgAdminJoined = "Conectado como administrador - recibirás notificaciones de mensajes"
	msgSent        = "Mensaje enviado exitosamente a la app móvil"
	msgSendFailed  = "Error enviando mensaje"
	msgAuthNeeded  = "Authentication required before sending messages"
)

// AuthenticateRequest is the data of an "authenticate" frame.
type AuthenticateRequest struct {
	APIKey string `json:"apiKey"`
	Role   string `json:"role,omitempty"`
}

// Authenticated answers an authenticate request.
type Authenticated struct {
	Success  bool      `json:"success"`
	Project  string    `json:"project,omitempty"`
	Features []string  `json:"features,omitempty"`
	Role     auth.Role `json:"role,omitempty"`
	Message  string    `json:"message,omitempty"`
}

// SendAck answers a send request.
type SendAck struct {
	Success bool             `json:"success"`
	Data    *contact.Message `json:"data,omitempty"`
	Message string           `json:"message"`
	Error   string           `json:"error,omitempty"`
}

// ErrorReply reports a frame the server could not act on.
type ErrorReply struct {
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
}
