package httpapi

import (
	"sync"
	"time"
)

// attemptLimiter is a sliding-window counter keyed by caller identity.
type attemptLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	entries map[string][]time.Time
}

func newAttemptLimiter(window time.Duration, max int) *attemptLimiter {
	return &attemptLimiter{
		window:  window,
		max:     max,
		entries: make(map[string][]time.Time),
	}
}

func (l *attemptLimiter) Allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	kept := l.entries[key][:0]
	for _, t := range l.entries[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	if len(kept) == 0 && len(l.entries) > 4096 {
		l.sweep(cutoff)
	}
	l.entries[key] = append(kept, now)
	return true
}

// sweep drops keys whose attempts have all aged out.
func (l *attemptLimiter) sweep(cutoff time.Time) {
	for k, ts := range l.entries {
		if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
			delete(l.entries, k)
		}
	}
}
