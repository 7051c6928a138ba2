package brain

import (
	"sync"
	"time"
)

// limiter is a sliding-window rate limiter: at most limit calls in any
// window-long span.
type limiter struct {
	mu     sync.Mutex
	window []time.Time
	limit  int
	dur    time.Duration
	now    func() time.Time
}

func newLimiter(limit int, dur time.Duration, now func() time.Time) *limiter {
	if now == nil {
		now = time.Now
	}
	return &limiter{limit: limit, dur: dur, now: now}
}

func (l *limiter) allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.dur)

	// Remove expired entries
	valid := l.window[:0]
	for _, t := range l.window {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	l.window = valid

	if len(l.window) >= l.limit {
		return false
	}

	l.window = append(l.window, now)
	return true
}
