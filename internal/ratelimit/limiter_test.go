package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

var epoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestAdmit_QuotaThenReject(t *testing.T) {
	l := New()
	p := Policy{Quota: 3, Window: time.Second}
	now := epoch.Add(100 * time.Millisecond)

	for i := 1; i <= 3; i++ {
		d := l.Admit("k", p, now)
		if !d.Allowed {
			t.Fatalf("request %d rejected, want allowed", i)
		}
		if d.Count != i || d.Remaining != 3-i {
			t.Errorf("request %d: Count=%d Remaining=%d", i, d.Count, d.Remaining)
		}
	}

	d := l.Admit("k", p, now)
	if d.Allowed {
		t.Fatal("4th request allowed, want rejected")
	}
	if d.Count != 3 || d.Remaining != 0 {
		t.Errorf("rejected decision Count=%d Remaining=%d, want 3/0", d.Count, d.Remaining)
	}
	if want := epoch.Add(time.Second); !d.ResetAt.Equal(want) {
		t.Errorf("ResetAt = %v, want %v", d.ResetAt, want)
	}
}

func TestAdmit_NewWindowResets(t *testing.T) {
	l := New()
	p := Policy{Quota: 1, Window: time.Second}

	if !l.Admit("k", p, epoch.Add(500*time.Millisecond)).Allowed {
		t.Fatal("first request rejected")
	}
	if l.Admit("k", p, epoch.Add(900*time.Millisecond)).Allowed {
		t.Fatal("second request in same window allowed")
	}
	if !l.Admit("k", p, epoch.Add(time.Second)).Allowed {
		t.Fatal("request in next window rejected")
	}
}

func TestAdmit_BoundaryResetAt(t *testing.T) {
	l := New()
	p := Policy{Quota: 10, Window: time.Minute}

	d := l.Admit("k", p, epoch)
	if want := epoch.Add(time.Minute); !d.ResetAt.Equal(want) {
		t.Errorf("ResetAt at boundary = %v, want %v", d.ResetAt, want)
	}

	d = l.Admit("k", p, epoch.Add(59*time.Second))
	if want := epoch.Add(time.Minute); !d.ResetAt.Equal(want) {
		t.Errorf("ResetAt mid-window = %v, want %v", d.ResetAt, want)
	}
}

func TestAdmit_KeysAreIndependent(t *testing.T) {
	l := New()
	p := Policy{Quota: 1, Window: time.Hour}

	if !l.Admit("a", p, epoch).Allowed {
		t.Fatal("a rejected")
	}
	if !l.Admit("b", p, epoch).Allowed {
		t.Fatal("b rejected after a used its quota")
	}
}

func TestAdmit_InvalidPolicyRejects(t *testing.T) {
	l := New()
	for _, p := range []Policy{{Quota: 0, Window: time.Second}, {Quota: 5, Window: 0}} {
		if l.Admit("k", p, epoch).Allowed {
			t.Errorf("policy %+v allowed a request", p)
		}
	}
	if l.Len() != 0 {
		t.Errorf("Len() = %d, invalid policies should not create buckets", l.Len())
	}
}

func TestAdmit_ConcurrentNeverExceedsQuota(t *testing.T) {
	l := New()
	p := Policy{Quota: 50, Window: time.Hour}
	now := epoch.Add(time.Minute)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Admit("shared", p, now).Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("allowed = %d, want exactly 50", allowed)
	}
}

func TestSweep_RemovesOnlyEndedBuckets(t *testing.T) {
	l := New()
	short := Policy{Quota: 5, Window: time.Second}
	long := Policy{Quota: 5, Window: time.Hour}

	l.Admit("short", short, epoch.Add(200*time.Millisecond))
	l.Admit("long", long, epoch.Add(200*time.Millisecond))
	if l.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", l.Len())
	}

	if n := l.Sweep(epoch.Add(500 * time.Millisecond)); n != 0 {
		t.Errorf("Sweep before any window ended removed %d", n)
	}

	if n := l.Sweep(epoch.Add(time.Second)); n != 1 {
		t.Errorf("Sweep at end of short window removed %d, want 1", n)
	}
	if l.Len() != 1 {
		t.Errorf("Len() after sweep = %d, want 1", l.Len())
	}

	// The long bucket keeps counting after the sweep.
	d := l.Admit("long", long, epoch.Add(2*time.Second))
	if d.Count != 2 {
		t.Errorf("long bucket Count = %d, want 2", d.Count)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		l.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_EvictsExpired(t *testing.T) {
	l := New()
	// A bucket that ended long ago.
	l.Admit("old", Policy{Quota: 1, Window: time.Second}, time.Now().Add(-time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx, 5*time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for l.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("expired bucket not swept")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
