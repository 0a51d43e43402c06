package cooldown

import (
	"math"
	"sync"
	"testing"
	"time"
)

type fakeTimer struct {
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
	delays []time.Duration
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{fn: fn}
	f.timers = append(f.timers, t)
	f.delays = append(f.delays, d)
	return t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	pending := append([]*fakeTimer{}, f.timers...)
	f.timers = nil
	f.delays = nil
	f.mu.Unlock()
	for _, timer := range pending {
		if !timer.stopped {
			timer.fn()
		}
	}
}

func TestCooldownBoundary(t *testing.T) {
	tracker := New()
	tracker.WithClock(&fakeClock{now: time.Unix(0, 0)})
	start := time.Unix(1000, 0)
	cooldown := 3 * time.Second

	if res := tracker.Check("ping", "u1", cooldown, start); !res.Allowed {
		t.Fatalf("first use should be allowed")
	}
	tracker.Record("ping", "u1", cooldown, start)

	res := tracker.Check("ping", "u1", cooldown, start.Add(2999*time.Millisecond))
	if res.Allowed {
		t.Fatalf("expected blocked at 2999ms")
	}
	if res.Remaining != time.Millisecond {
		t.Fatalf("expected 1ms remaining, got %v", res.Remaining)
	}
	if math.Abs(res.RemainingSeconds()-1) > 1e-9 {
		t.Fatalf("expected about 1s remaining, got %v", res.RemainingSeconds())
	}

	res = tracker.Check("ping", "u1", cooldown, start.Add(1000*time.Millisecond))
	if res.Allowed || math.Abs(res.RemainingSeconds()-2) > 1e-9 {
		t.Fatalf("expected 2s remaining, got %+v", res)
	}

	if res := tracker.Check("ping", "u1", cooldown, start.Add(3000*time.Millisecond)); !res.Allowed {
		t.Fatalf("expected allowed at 3000ms")
	}
}

func TestCheckDoesNotMutate(t *testing.T) {
	tracker := New()
	tracker.WithClock(&fakeClock{now: time.Unix(0, 0)})
	now := time.Unix(1000, 0)

	for i := 0; i < 3; i++ {
		if res := tracker.Check("ping", "u1", time.Second, now); !res.Allowed {
			t.Fatalf("repeated checks must stay allowed")
		}
	}
	if tracker.Len() != 0 {
		t.Fatalf("check must not record")
	}
}

func TestCooldownIsPerCommand(t *testing.T) {
	tracker := New()
	tracker.WithClock(&fakeClock{now: time.Unix(0, 0)})
	now := time.Unix(1000, 0)

	tracker.Record("ping", "u1", 3*time.Second, now)
	if res := tracker.Check("roll", "u1", 3*time.Second, now.Add(time.Millisecond)); !res.Allowed {
		t.Fatalf("cooldown on ping must not block roll")
	}
	if res := tracker.Check("ping", "u2", 3*time.Second, now.Add(time.Millisecond)); !res.Allowed {
		t.Fatalf("cooldown of u1 must not block u2")
	}
}

func TestRecordSchedulesCleanup(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	tracker := New()
	tracker.WithClock(clock)

	tracker.Record("ping", "u1", 3*time.Second, clock.Now())
	if len(clock.delays) != 1 || clock.delays[0] != 3*time.Second {
		t.Fatalf("expected cleanup after 3s, got %v", clock.delays)
	}
	if tracker.Len() != 1 {
		t.Fatalf("expected entry recorded")
	}
	clock.Advance(3 * time.Second)
	if tracker.Len() != 0 {
		t.Fatalf("expected entry cleaned up")
	}
}

func TestStaleCleanupKeepsNewerRecord(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	tracker := New()
	tracker.WithClock(clock)

	tracker.Record("ping", "u1", 3*time.Second, clock.Now())
	stale := clock.timers[0]
	tracker.Record("ping", "u1", 3*time.Second, clock.Now().Add(2*time.Second))

	stale.fn()
	if tracker.Len() != 1 {
		t.Fatalf("stale cleanup must not remove the newer record")
	}
}
