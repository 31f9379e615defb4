package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// StatsEvent describes one admission decision. Key is the limiter key and
// may be a secret; recorders must not expose it unless asked to.
type StatsEvent struct {
	Key     string
	Project string
	Allowed bool
	Method  string
	Path    string
	At      time.Time
}

// StatsRecorder persists admission decisions for reporting. Recording is
// best effort: callers log errors and carry on.
type StatsRecorder interface {
	Record(ctx context.Context, ev StatsEvent) error
}

// Fanout records each event on every non-nil recorder and joins their errors.
func Fanout(recorders ...StatsRecorder) StatsRecorder {
	var live []StatsRecorder
	for _, r := range recorders {
		if r != nil {
			live = append(live, r)
		}
	}
	return fanout(live)
}

type fanout []StatsRecorder

func (f fanout) Record(ctx context.Context, ev StatsEvent) error {
	var errs []error
	for _, r := range f {
		if err := r.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Counters is an allowed/denied pair.
type Counters struct {
	Allowed int64 `json:"allowed"`
	Denied  int64 `json:"denied"`
}

func (c *Counters) add(allowed bool) {
	if allowed {
		c.Allowed++
	} else {
		c.Denied++
	}
}

// MemoryStats keeps decision counters in process, per project and in total.
// It never expires anything; the number of projects is fixed.
type MemoryStats struct {
	mu        sync.Mutex
	total     Counters
	byProject map[string]Counters
}

// NewMemoryStats returns empty in-process counters.
func NewMemoryStats() *MemoryStats {
	return &MemoryStats{byProject: make(map[string]Counters)}
}

// Record implements StatsRecorder.
func (s *MemoryStats) Record(_ context.Context, ev StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total.add(ev.Allowed)
	c := s.byProject[ev.Project]
	c.add(ev.Allowed)
	s.byProject[ev.Project] = c
	return nil
}

// Total returns the overall counters.
func (s *MemoryStats) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// ByProject returns a copy of the per-project counters.
func (s *MemoryStats) ByProject() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counters, len(s.byProject))
	for k, v := range s.byProject {
		out[k] = v
	}
	return out
}
