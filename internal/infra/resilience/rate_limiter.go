// internal/infra/resilience/rate_limiter.go
package resilience

import (
	"sync"
	"time"
)

// RateLimiter is an in-memory sliding-window limiter shared by all callers of
// one dispatcher. There is no queueing: a rejected call must fail immediately.
type RateLimiter struct {
	mu         sync.Mutex
	maxAllowed int
	window     time.Duration
	timestamps []time.Time

	now func() time.Time
}

func NewRateLimiter(maxAllowed int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxAllowed: maxAllowed,
		window:     window,
		now:        time.Now,
	}
}

// Allow evicts timestamps older than the window, then admits the call only if
// the remaining count is below the cap.
func (rl *RateLimiter) Allow() bool {
	now := rl.now()
	cutoff := now.Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	kept := rl.timestamps[:0]
	for _, ts := range rl.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	rl.timestamps = kept

	if len(rl.timestamps) >= rl.maxAllowed {
		return false
	}
	rl.timestamps = append(rl.timestamps, now)
	return true
}
