package ratelimit

import (
	"sync"
	"time"
)

// sweepEvery bounds how often expired windows are dropped.
const sweepEvery = 1024

type window struct {
	end   time.Time
	count int
}

// MemoryLimiter keeps fixed-window counters in process.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	checks  int
}

// NewMemoryLimiter constructs a MemoryLimiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{windows: make(map[string]*window)}
}

// Take counts one use of d at now.
func (l *MemoryLimiter) Take(d Decision, now time.Time) Result {
	if d.Key == "" || !d.Rule.enabled() {
		return Result{Allowed: true}
	}
	_, end := windowOf(now, d.Rule.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.checks++; l.checks%sweepEvery == 0 {
		l.sweepLocked(now)
	}
	w := l.windows[d.Key]
	if w == nil || !w.end.Equal(end) {
		w = &window{end: end}
		l.windows[d.Key] = w
	}
	if w.count >= d.Rule.Limit {
		return Result{Reset: end}
	}
	w.count++
	return Result{Allowed: true, Remaining: d.Rule.Limit - w.count, Reset: end}
}

func (l *MemoryLimiter) sweepLocked(now time.Time) {
	for key, w := range l.windows {
		if !now.Before(w.end) {
			delete(l.windows, key)
		}
	}
}

func (l *MemoryLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
