package ratelimit

import (
	"context"
	"time"
)

// PointWriter is the subset of the InfluxDB client used by PointStats.
type PointWriter interface {
	WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, ts time.Time)
}

// measurementGateDecision is the time series measurement for admissions.
const measurementGateDecision = "gate_decision"

// PointStats writes one time series point per admission decision, tagged by
// project and outcome. The credential is never written.
type PointStats struct {
	w PointWriter
}

// NewPointStats returns a recorder writing through w.
func NewPointStats(w PointWriter) *PointStats {
	return &PointStats{w: w}
}

// Record implements StatsRecorder.
func (s *PointStats) Record(_ context.Context, ev StatsEvent) error {
	outcome := "denied"
	if ev.Allowed {
		outcome = "allowed"
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	s.w.WritePointWithTime(measurementGateDecision,
		map[string]string{"project": ev.Project, "outcome": outcome, "method": ev.Method},
		map[string]interface{}{"count": 1, "path": ev.Path},
		at)
	return nil
}
