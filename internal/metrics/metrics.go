// Package metrics owns the Prometheus collectors exported on /metrics.
//
// All methods are safe on a nil *Metrics so components can be built without
// metrics in tests.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rowanabisaiutp/api-websocket-messages/internal/ratelimit"
)

const namespace = "apiws"

// Metrics is the set of collectors for one process.
type Metrics struct {
	registry *prometheus.Registry

	gateDecisions   *prometheus.CounterVec
	relayBroadcasts *prometheus.CounterVec
	relayDeliveries *prometheus.CounterVec
	relayMembers    *prometheus.GaugeVec
	sessions        prometheus.Gauge
	sessionEvents   *prometheus.CounterVec
}

// New creates the collectors on a private registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		gateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_decisions_total",
			Help:      "Rate limit admissions by project and outcome.",
		}, []string{"project", "outcome"}),
		relayBroadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_broadcasts_total",
			Help:      "Events broadcast to a room.",
		}, []string{"room", "event"}),
		relayDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_deliveries_total",
			Help:      "Frames queued to room members.",
		}, []string{"room"}),
		relayMembers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "relay_members",
			Help:      "Current members per room.",
		}, []string{"room"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Open socket sessions.",
		}),
		sessionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Inbound socket events by name and result.",
		}, []string{"event", "result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.gateDecisions,
		m.relayBroadcasts,
		m.relayDeliveries,
		m.relayMembers,
		m.sessions,
		m.sessionEvents,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Record counts one admission decision. It satisfies ratelimit.StatsRecorder.
func (m *Metrics) Record(_ context.Context, ev ratelimit.StatsEvent) error {
	if m == nil {
		return nil
	}
	outcome := "denied"
	if ev.Allowed {
		outcome = "allowed"
	}
	m.gateDecisions.WithLabelValues(ev.Project, outcome).Inc()
	return nil
}

// Broadcast counts a broadcast and the number of members it reached.
func (m *Metrics) Broadcast(room, event string, recipients int) {
	if m == nil {
		return
	}
	m.relayBroadcasts.WithLabelValues(room, event).Inc()
	m.relayDeliveries.WithLabelValues(room).Add(float64(recipients))
}

// RoomSize sets the member gauge for room.
func (m *Metrics) RoomSize(room string, n int) {
	if m == nil {
		return
	}
	m.relayMembers.WithLabelValues(room).Set(float64(n))
}

// SessionOpened increments the open session gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessions.Inc()
}

// SessionClosed decrements the open session gauge.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessions.Dec()
}

// SessionEvent counts an inbound socket event.
func (m *Metrics) SessionEvent(event, result string) {
	if m == nil {
		return
	}
	m.sessionEvents.WithLabelValues(event, result).Inc()
}
