package ratelimit

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

// shardCount spreads keys over independent locks. Admissions for one key
// always land on the same shard.
const shardCount = 32

// Policy is a request quota per fixed window.
type Policy struct {
	Quota  int
	Window time.Duration
}

// Decision is the outcome of one Admit call.
type Decision struct {
	Allowed   bool
	Limit     int
	Count     int // requests admitted in the current window, including this one
	Remaining int
	ResetAt   time.Time
}

type bucketKey struct {
	key    string
	window time.Duration
	index  int64
}

type bucket struct {
	count int
	end   time.Time
}

type shard struct {
	mu      sync.Mutex
	buckets map[bucketKey]*bucket
}

// Limiter is a fixed-window request counter keyed by credential.
//
// Windows are aligned to the Unix epoch: bucket = floor(now / window).
// A burst straddling a boundary can therefore admit up to twice the quota
// in one window-length span; this is accepted in exchange for O(1) state
// per active bucket.
//
// Buckets whose window has ended are removed by Sweep, normally driven by
// Run on a ticker.
type Limiter struct {
	shards [shardCount]*shard
}

// New returns an empty Limiter.
func New() *Limiter {
	l := &Limiter{}
	for i := range l.shards {
		l.shards[i] = &shard{buckets: make(map[bucketKey]*bucket)}
	}
	return l
}

// Admit counts one request for key under policy at time now.
//
// If the bucket for now still has room the request is counted and allowed.
// Otherwise it is rejected without being counted. ResetAt is the end of the
// current window in both cases. A policy with a non-positive quota or window
// rejects everything.
func (l *Limiter) Admit(key string, policy Policy, now time.Time) Decision {
	if policy.Quota <= 0 || policy.Window <= 0 {
		return Decision{Allowed: false, Limit: policy.Quota, ResetAt: now}
	}

	index, end := window(now, policy.Window)
	k := bucketKey{key: key, window: policy.Window, index: index}

	s := l.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[k]
	if !ok {
		b = &bucket{end: end}
		s.buckets[k] = b
	}

	d := Decision{Limit: policy.Quota, ResetAt: end}
	if b.count < policy.Quota {
		b.count++
		d.Allowed = true
	}
	d.Count = b.count
	d.Remaining = policy.Quota - b.count
	return d
}

// Sweep removes every bucket whose window ended at or before now and
// returns how many were removed.
func (l *Limiter) Sweep(now time.Time) int {
	removed := 0
	for _, s := range l.shards {
		s.mu.Lock()
		for k, b := range s.buckets {
			if !b.end.After(now) {
				delete(s.buckets, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Run sweeps every interval until ctx is cancelled.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.Sweep(now)
		}
	}
}

// Len returns the number of live buckets.
func (l *Limiter) Len() int {
	n := 0
	for _, s := range l.shards {
		s.mu.Lock()
		n += len(s.buckets)
		s.mu.Unlock()
	}
	return n
}

func (l *Limiter) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return l.shards[h.Sum32()%shardCount]
}

// window returns the bucket index containing now and the instant that
// bucket ends. For an instant exactly on a boundary the new bucket starts
// there, so the end is one full window later.
func window(now time.Time, size time.Duration) (index int64, end time.Time) {
	ms := now.UnixMilli()
	w := size.Milliseconds()
	if w <= 0 {
		w = 1
	}
	index = ms / w
	if ms < 0 && ms%w != 0 {
		index--
	}
	return index, time.UnixMilli((index + 1) * w).UTC()
}
