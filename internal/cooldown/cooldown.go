package cooldown

import (
	"math"
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type Timer interface {
	Stop() bool
}

type realClock struct{}

type realTimer struct{ t *time.Timer }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return realTimer{t: time.AfterFunc(d, f)}
}

func (t realTimer) Stop() bool { return t.t.Stop() }

type Result struct {
	Allowed   bool
	Remaining time.Duration
}

// RemainingSeconds rounds the wait up to whole seconds so a blocked user is
// never told to wait zero seconds.
func (r Result) RemainingSeconds() float64 {
	return math.Ceil(r.Remaining.Seconds())
}

type entry struct {
	at    time.Time
	timer Timer
}

// Tracker remembers the last invocation per (command, user) pair.
type Tracker struct {
	mu      sync.Mutex
	clock   Clock
	entries map[string]*entry
}

func New() *Tracker {
	return &Tracker{
		clock:   realClock{},
		entries: make(map[string]*entry),
	}
}

func (t *Tracker) WithClock(clock Clock) {
	t.clock = clock
}

func (t *Tracker) Now() time.Time {
	return t.clock.Now()
}

// Check reports whether userID may run command at now. It never mutates state.
func (t *Tracker) Check(command, userID string, cooldown time.Duration, now time.Time) Result {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key(command, userID)]
	if !ok {
		return Result{Allowed: true}
	}
	elapsed := now.Sub(e.at)
	if elapsed >= cooldown {
		return Result{Allowed: true}
	}
	remaining := cooldown - elapsed
	if remaining > cooldown {
		remaining = cooldown
	}
	return Result{Allowed: false, Remaining: remaining}
}

// Record stores now as the last invocation and schedules the entry's removal
// once the cooldown has passed.
func (t *Tracker) Record(command, userID string, cooldown time.Duration, now time.Time) {
	k := key(command, userID)

	t.mu.Lock()
	defer t.mu.Unlock()

	if previous, ok := t.entries[k]; ok && previous.timer != nil {
		previous.timer.Stop()
	}
	e := &entry{at: now}
	t.entries[k] = e
	e.timer = t.clock.AfterFunc(cooldown, func() {
		t.expire(k, e)
	})
}

func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *Tracker) expire(k string, e *entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if current, ok := t.entries[k]; ok && current == e {
		delete(t.entries, k)
	}
}

func key(command, userID string) string {
	return command + "\x00" + userID
}
