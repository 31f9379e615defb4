package relay

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rowanabisaiutp/api-websocket-messages/internal/infrastructure/logging"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/metrics"
)

// mirrorQueueSize bounds broadcasts waiting for mirrors. When full, new
// mirror jobs are dropped; member delivery is unaffected.
const mirrorQueueSize = 256

// Member is a connection that can be placed in rooms.
type Member interface {
	ID() string

	// Deliver queues frame for the connection without blocking. It returns
	// false when the frame was dropped (buffer full or connection closed).
	Deliver(frame []byte) bool

	// Close ends the connection. Called by the hub on shutdown.
	Close()
}

// Event is one broadcast as seen by mirrors.
type Event struct {
	Room       string
	Name       string
	Frame      []byte
	Recipients int
	At         time.Time
}

// Mirror receives a copy of every broadcast after delivery.
type Mirror interface {
	Mirror(ctx context.Context, ev Event) error
}

// Hub tracks room membership and fans events out to members.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Broadcast queues onto every member before returning, so a caller that
//     broadcasts and then delivers to one member directly preserves that
//     order for the member.
type Hub struct {
	logger  *logging.Logger
	metrics *metrics.Metrics
	mirrors []Mirror
	queue   chan Event

	mu     sync.RWMutex
	rooms  map[string]map[string]Member   // room → member id → member
	joined map[string]map[string]struct{} // member id → rooms
}

// Option configures a Hub.
type Option func(*Hub)

// WithMetrics records broadcasts and room sizes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Hub) { h.metrics = m }
}

// WithMirror adds a broadcast mirror. Mirrors run on the Run goroutine.
func WithMirror(m Mirror) Option {
	return func(h *Hub) {
		if m != nil {
			h.mirrors = append(h.mirrors, m)
		}
	}
}

// NewHub returns an empty hub.
func NewHub(logger *logging.Logger, opts ...Option) *Hub {
	if logger == nil {
		logger = logging.Discard()
	}
	h := &Hub{
		logger: logger,
		queue:  make(chan Event, mirrorQueueSize),
		rooms:  make(map[string]map[string]Member),
		joined: make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run feeds mirrors until ctx is cancelled, then closes every member.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case ev := <-h.queue:
			h.mirror(ctx, ev)
		}
	}
}

// Join adds m to room. Joining twice is a no-op.
func (h *Hub) Join(m Member, room string) {
	h.mu.Lock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]Member)
		h.rooms[room] = members
	}
	members[m.ID()] = m

	rooms, ok := h.joined[m.ID()]
	if !ok {
		rooms = make(map[string]struct{})
		h.joined[m.ID()] = rooms
	}
	rooms[room] = struct{}{}
	size := len(members)
	h.mu.Unlock()

	h.metrics.RoomSize(room, size)
}

// Leave removes m from room.
func (h *Hub) Leave(m Member, room string) {
	h.mu.Lock()
	size := h.leaveLocked(m.ID(), room)
	h.mu.Unlock()

	h.metrics.RoomSize(room, size)
}

// LeaveAll removes m from every room and returns the rooms it was in.
func (h *Hub) LeaveAll(m Member) []string {
	h.mu.Lock()
	var left []string
	sizes := make(map[string]int)
	for room := range h.joined[m.ID()] {
		left = append(left, room)
	}
	for _, room := range left {
		sizes[room] = h.leaveLocked(m.ID(), room)
	}
	h.mu.Unlock()

	for room, size := range sizes {
		h.metrics.RoomSize(room, size)
	}
	sort.Strings(left)
	return left
}

// leaveLocked removes id from room and returns the room's new size.
func (h *Hub) leaveLocked(id, room string) int {
	members := h.rooms[room]
	delete(members, id)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
	if rooms := h.joined[id]; rooms != nil {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(h.joined, id)
		}
	}
	return len(members)
}

// Members returns the number of members in room.
func (h *Hub) Members(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// InRoom reports whether the member with id is in room.
func (h *Hub) InRoom(id, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][id]
	return ok
}

// Connections returns the number of distinct members in any room.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.joined)
}

// Broadcast delivers payload as event to every current member of room and
// returns how many accepted it. There is no persistence or replay: members
// joining later never see it.
func (h *Hub) Broadcast(room, event string, payload any) int {
	return h.BroadcastExcept(room, event, payload, "")
}

// BroadcastExcept is Broadcast skipping the member whose ID is except.
func (h *Hub) BroadcastExcept(room, event string, payload any, except string) int {
	frame, err := Encode(event, payload)
	if err != nil {
		h.logger.Error("encoding broadcast failed", "room", room, "event", event, "error", err)
		return 0
	}

	// Snapshot under the read lock, deliver outside it.
	h.mu.RLock()
	targets := make([]Member, 0, len(h.rooms[room]))
	for id, m := range h.rooms[room] {
		if id != except {
			targets = append(targets, m)
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, m := range targets {
		if m.Deliver(frame) {
			delivered++
		}
	}

	h.metrics.Broadcast(room, event, delivered)
	h.logger.Debug("broadcast sent", "room", room, "event", event, "recipients", delivered)
	h.enqueueMirror(Event{Room: room, Name: event, Frame: frame, Recipients: delivered, At: time.Now()})
	return delivered
}

func (h *Hub) enqueueMirror(ev Event) {
	if len(h.mirrors) == 0 {
		return
	}
	select {
	case h.queue <- ev:
	default:
		h.logger.Warn("mirror queue full, dropping event", "room", ev.Room, "event", ev.Name)
	}
}

func (h *Hub) mirror(ctx context.Context, ev Event) {
	for _, m := range h.mirrors {
		if err := m.Mirror(ctx, ev); err != nil {
			h.logger.Warn("mirroring broadcast failed", "room", ev.Room, "event", ev.Name, "error", err)
		}
	}
}

// closeAll empties every room and closes each member once.
func (h *Hub) closeAll() {
	h.mu.Lock()
	unique := make(map[string]Member)
	for _, members := range h.rooms {
		for id, m := range members {
			unique[id] = m
		}
	}
	h.rooms = make(map[string]map[string]Member)
	h.joined = make(map[string]map[string]struct{})
	h.mu.Unlock()

	for _, m := range unique {
		m.Close()
	}
	h.logger.Info("relay closed", "members", len(unique))
}
