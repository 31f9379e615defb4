package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStats records admission decisions in Redis hashes:
//
//	<prefix>:total                 allowed / denied
//	<prefix>:minute:<YYYYMMDDhhmm> allowed / denied (expires after TTL)
//	<prefix>:project               "<project>:allowed" / "<project>:denied"
//	<prefix>:key:<sha256(key)>     allowed / denied (only with TrackKeys)
//
// Keys are hashed before use so credentials never reach Redis.
type RedisStats struct {
	rdb       redis.Cmdable
	prefix    string
	ttl       time.Duration
	trackKeys bool
}

// RedisStatsOption customises a RedisStats.
type RedisStatsOption func(*RedisStats)

// WithPrefix sets the key prefix. Surrounding colons are trimmed.
func WithPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStats) { s.prefix = strings.Trim(prefix, ":") }
}

// WithTTL sets the expiry of per-minute and per-key hashes. Zero disables it.
func WithTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStats) { s.ttl = d }
}

// WithTrackKeys enables per-credential counters.
func WithTrackKeys(track bool) RedisStatsOption {
	return func(s *RedisStats) { s.trackKeys = track }
}

// NewRedisStats returns a recorder writing through rdb.
func NewRedisStats(rdb redis.Cmdable, opts ...RedisStatsOption) *RedisStats {
	s := &RedisStats{
		rdb:    rdb,
		prefix: "apiws:ratelimit",
		ttl:    24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record implements StatsRecorder with a single pipelined round trip.
func (s *RedisStats) Record(ctx context.Context, ev StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := "denied"
	if ev.Allowed {
		field = "allowed"
	}

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

	minuteKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
	pipe.HIncrBy(ctx, minuteKey, field, 1)
	if s.ttl > 0 {
		pipe.Expire(ctx, minuteKey, s.ttl)
	}

	if ev.Project != "" {
		pipe.HIncrBy(ctx, s.prefix+":project", ev.Project+":"+field, 1)
	}

	if s.trackKeys && ev.Key != "" {
		keyKey := s.prefix + ":key:" + hashKey(ev.Key)
		pipe.HIncrBy(ctx, keyKey, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, keyKey, s.ttl)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("recording rate limit stats: %w", err)
	}
	return nil
}

// Totals reads the cumulative counters.
func (s *RedisStats) Totals(ctx context.Context) (Counters, error) {
	vals, err := s.rdb.HGetAll(ctx, s.prefix+":total").Result()
	if err != nil {
		return Counters{}, fmt.Errorf("reading rate limit stats: %w", err)
	}
	var c Counters
	fmt.Sscan(vals["allowed"], &c.Allowed) //nolint:errcheck // missing field reads as zero
	fmt.Sscan(vals["denied"], &c.Denied)   //nolint:errcheck // missing field reads as zero
	return c, nil
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}
