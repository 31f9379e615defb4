package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/rowanabisaiutp/api-websocket-messages/internal/ratelimit"
	"github.com/rowanabisaiutp/api-websocket-messages/internal/relay"
)

// SystemStats is the /api/stats response.
type SystemStats struct {
	Timestamp     string         `json:"timestamp"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       RuntimeStats   `json:"runtime"`
	Relay         RelayStats     `json:"relay"`
	RateLimit     RateLimitStats `json:"rate_limit"`
	MQTT          *BackendStats  `json:"mqtt,omitempty"`
	InfluxDB      *BackendStats  `json:"influxdb,omitempty"`
	Database      *DatabaseStats `json:"database,omitempty"`
}

// RuntimeStats contains Go runtime statistics.
type RuntimeStats struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// RelayStats contains room membership.
type RelayStats struct {
	Connections int            `json:"connections"`
	Sessions    int            `json:"sessions"`
	Rooms       map[string]int `json:"rooms"`
}

// RateLimitStats contains limiter and decision counters.
type RateLimitStats struct {
	Buckets   int                           `json:"buckets"`
	Total     ratelimit.Counters            `json:"total"`
	ByProject map[string]ratelimit.Counters `json:"by_project,omitempty"`
	Redis     *ratelimit.Counters           `json:"redis,omitempty"`
}

// BackendStats reports an optional connection.
type BackendStats struct {
	Connected bool   `json:"connected"`
	Dropped   uint64 `json:"dropped,omitempty"`
}

// DatabaseStats contains database connection pool statistics.
type DatabaseStats struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
	Contacts        int64 `json:"contacts"`
}

const bytesPerMB = 1024 * 1024

// handleStats returns runtime, relay and rate-limit statistics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	now := s.now()
	stats := SystemStats{
		Timestamp:     now.UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(now.Sub(s.startTime).Seconds()),
		Runtime: RuntimeStats{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(mem.Alloc) / bytesPerMB,
			MemoryTotalMB: float64(mem.TotalAlloc) / bytesPerMB,
			NumGC:         mem.NumGC,
		},
		Relay: RelayStats{
			Connections: s.relay.Connections(),
			Rooms: map[string]int{
				relay.RoomDefault:  s.relay.Members(relay.RoomDefault),
				relay.RoomElevated: s.relay.Members(relay.RoomElevated),
			},
		},
	}

	if s.sessions != nil {
		stats.Relay.Sessions = s.sessions.Active()
	}

	if s.limiter != nil {
		stats.RateLimit.Buckets = s.limiter.Len()
	}
	if s.stats != nil {
		stats.RateLimit.Total = s.stats.Total()
		stats.RateLimit.ByProject = s.stats.ByProject()
	}
	if s.redisStats != nil {
		if totals, err := s.redisStats.Totals(r.Context()); err != nil {
			s.logger.Warn("reading redis rate limit stats failed", "error", err)
		} else {
			stats.RateLimit.Redis = &totals
		}
	}

	if s.mqtt != nil {
		stats.MQTT = &BackendStats{Connected: s.mqtt.IsConnected()}
	}
	if s.influx != nil {
		stats.InfluxDB = &BackendStats{Connected: s.influx.IsConnected()}
		if d, ok := s.influx.(interface{ Dropped() uint64 }); ok {
			stats.InfluxDB.Dropped = d.Dropped()
		}
	}

	if s.db != nil {
		dbStats := s.db.Stats()
		stats.Database = &DatabaseStats{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}
	if n, err := s.contacts.Count(r.Context()); err == nil && stats.Database != nil {
		stats.Database.Contacts = n
	}

	writeJSON(w, http.StatusOK, stats)
}
