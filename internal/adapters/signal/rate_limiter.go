package signal

import (
	"sync"
	"time"

	"github.com/dkeye/callhub/internal/domain"
)

// RateLimiter caps how many frames a connection may send per interval.
// Each connection keeps a ring of its last limit accepted timestamps, so a
// frame is let through only once the oldest of them has left the window.
type RateLimiter struct {
	mu       sync.Mutex
	windows  map[domain.ConnectionID]*window
	limit    int
	interval time.Duration
	now      func() time.Time
}

type window struct {
	stamps []time.Time
	next   int // oldest stamp once the ring is full
}

func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		windows:  make(map[domain.ConnectionID]*window),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

// Allow records a frame from id and reports whether it fits the limit.
// Rejected frames are not recorded.
func (rl *RateLimiter) Allow(id domain.ConnectionID) bool {
	if rl.limit < 1 {
		return false
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[id]
	if !ok {
		w = &window{stamps: make([]time.Time, 0, rl.limit)}
		rl.windows[id] = w
	}
	if len(w.stamps) < rl.limit {
		w.stamps = append(w.stamps, now)
		return true
	}
	if now.Sub(w.stamps[w.next]) < rl.interval {
		return false
	}
	w.stamps[w.next] = now
	w.next = (w.next + 1) % rl.limit
	return true
}

// Forget drops the window of a closed connection.
func (rl *RateLimiter) Forget(id domain.ConnectionID) {
	rl.mu.Lock()
	delete(rl.windows, id)
	rl.mu.Unlock()
}
