package relay

import (
	"encoding/json"
	"time"
)

// Room names.
const (
	// RoomDefault is joined by every connection on connect.
	RoomDefault = "contacts-room"

	// RoomElevated is joined by connections authenticated as admin.
	RoomElevated = "admin-room"
)

// Outbound broadcast event names.
const (
	EventCreated = "created"
	EventDeleted = "deleted"
	EventNotify  = "notify"
)

// Frame is the wire format in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode marshals data into a frame for event.
func Encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: raw})
}

// CreatedEnvelope announces a record created over REST to the default room.
type CreatedEnvelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Project   string `json:"project"`
}

// DeletedEnvelope announces a record deleted over REST to the default room.
type DeletedEnvelope struct {
	Success   bool   `json:"success"`
	RecordID  int64  `json:"recordId"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Project   string `json:"project"`
}

// NotifyEnvelope announces a record submitted over a socket to the
// elevated room.
type NotifyEnvelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Source    string `json:"source"`
}

func stamp(now time.Time) string {
	return now.UTC().Format(time.RFC3339Nano)
}

// unknownProject labels events whose origin has no project.
const unknownProject = "Unknown"

func projectLabel(name string) string {
	if name == "" {
		return unknownProject
	}
	return name
}

// NewCreated builds the default-room envelope for a new record.
func NewCreated(record any, project string, now time.Time) CreatedEnvelope {
	return CreatedEnvelope{
		Success:   true,
		Data:      record,
		Message:   "Nuevo mensaje de contacto recibido",
		Timestamp: stamp(now),
		Project:   projectLabel(project),
	}
}

// NewDeleted builds the default-room envelope for a removed record.
func NewDeleted(id int64, project string, now time.Time) DeletedEnvelope {
	return DeletedEnvelope{
		Success:   true,
		RecordID:  id,
		Message:   "Mensaje de contacto eliminado",
		Timestamp: stamp(now),
		Project:   projectLabel(project),
	}
}

// NewNotify builds the elevated-room envelope for a socket submission.
func NewNotify(record any, now time.Time) NotifyEnvelope {
	return NotifyEnvelope{
		Success:   true,
		Data:      record,
		Message:   "Nuevo mensaje recibido desde la web",
		Timestamp: stamp(now),
		Type:      "web_message",
		Source:    "web_form",
	}
}
