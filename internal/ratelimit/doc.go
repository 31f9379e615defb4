// Package ratelimit implements the fixed-window admission counter used by
// the request gate, plus optional recorders for admission statistics.
//
// Counting is per (key, window, bucket index). The counter map is sharded
// by an FNV-1a hash of the key, each shard behind its own mutex, so the
// compare-and-increment for one key is atomic while unrelated keys do not
// contend. Ended buckets are evicted by Sweep.
package ratelimit
