package relay

import (
	"context"
	"time"
)

// Publisher is the subset of the MQTT client used for mirroring.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// TopicFunc maps a broadcast to an MQTT topic.
type TopicFunc func(room, event string) string

// MQTTMirror republishes every broadcast frame on MQTT, not retained.
type MQTTMirror struct {
	pub   Publisher
	topic TopicFunc
	qos   byte
}

// NewMQTTMirror returns a mirror publishing through pub.
func NewMQTTMirror(pub Publisher, topic TopicFunc, qos byte) *MQTTMirror {
	return &MQTTMirror{pub: pub, topic: topic, qos: qos}
}

// Mirror implements Mirror.
func (m *MQTTMirror) Mirror(_ context.Context, ev Event) error {
	return m.pub.Publish(m.topic(ev.Room, ev.Name), ev.Frame, m.qos, false)
}

// PointWriter is the subset of the InfluxDB client used for mirroring.
type PointWriter interface {
	WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, ts time.Time)
}

// measurementBroadcast is the InfluxDB measurement for broadcasts.
const measurementBroadcast = "relay_broadcast"

// InfluxMirror writes one point per broadcast with the recipient count.
type InfluxMirror struct {
	w PointWriter
}

// NewInfluxMirror returns a mirror writing through w.
func NewInfluxMirror(w PointWriter) *InfluxMirror {
	return &InfluxMirror{w: w}
}

// Mirror implements Mirror. Writes are asynchronous; errors surface through
// the client's error callback instead.
func (m *InfluxMirror) Mirror(_ context.Context, ev Event) error {
	m.w.WritePointWithTime(measurementBroadcast,
		map[string]string{"room": ev.Room, "event": ev.Name},
		map[string]interface{}{"recipients": ev.Recipients, "bytes": len(ev.Frame)},
		ev.At)
	return nil
}
