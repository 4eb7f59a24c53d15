package ws

import (
	"sync"
	"time"
)

// RateLimiter admits requests per user under a sliding-window policy: at most
// limit requests whose timestamps fall within the trailing window. Admission
// and window maintenance are atomic per user; unrelated users do not contend.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.RWMutex
	windows map[string]*rateWindow
}

type rateWindow struct {
	mu     sync.Mutex
	stamps []time.Time
}

// NewRateLimiter creates a limiter allowing limit admissions per window for
// each user.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		windows: make(map[string]*rateWindow),
	}
}

func (l *RateLimiter) userWindow(userID string) *rateWindow {
	l.mu.RLock()
	w := l.windows[userID]
	l.mu.RUnlock()
	if w != nil {
		return w
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if w = l.windows[userID]; w == nil {
		w = &rateWindow{}
		l.windows[userID] = w
	}
	return w
}

// prune drops timestamps that fell out of the trailing window. Caller holds
// the window lock.
func (w *rateWindow) prune(cutoff time.Time) {
	kept := w.stamps[:0]
	for _, ts := range w.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.stamps = kept
}

// Admit records and allows the request if the user is under the limit, and
// rejects it without mutating state otherwise.
func (l *RateLimiter) Admit(userID string) bool {
	w := l.userWindow(userID)
	now := l.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(now.Add(-l.window))
	if len(w.stamps) >= l.limit {
		return false
	}
	w.stamps = append(w.stamps, now)
	return true
}

// Remaining returns how many admissions the user has left in the current
// window, floored at zero.
func (l *RateLimiter) Remaining(userID string) int {
	l.mu.RLock()
	w := l.windows[userID]
	l.mu.RUnlock()
	if w == nil {
		return l.limit
	}

	cutoff := l.now().Add(-l.window)

	w.mu.Lock()
	defer w.mu.Unlock()

	count := 0
	for _, ts := range w.stamps {
		if ts.After(cutoff) {
			count++
		}
	}
	if count >= l.limit {
		return 0
	}
	return l.limit - count
}
