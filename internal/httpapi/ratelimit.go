package httpapi

import (
	"sync"
	"time"
)

// fixedWindowLimiter throttles login attempts per client IP. Windows
// are fixed rather than sliding; a burst straddling the boundary can
// briefly double the rate, which is acceptable for a brute-force brake.
type fixedWindowLimiter struct {
	max int
	win time.Duration

	mu      sync.Mutex
	buckets map[string]bucket

	stopCh chan struct{}
}

type bucket struct {
	count   int
	resetAt time.Time
}

func newFixedWindowLimiter(max int, window time.Duration) *fixedWindowLimiter {
	l := &fixedWindowLimiter{
		max:     max,
		win:     window,
		buckets: make(map[string]bucket),
		stopCh:  make(chan struct{}),
	}
	go l.janitor()
	return l
}

// Allow records an attempt for key and reports whether it fits in the
// current window, returning the wait until reset when it does not.
func (l *fixedWindowLimiter) Allow(key string) (bool, time.Duration) {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || now.After(b.resetAt) {
		b = bucket{resetAt: now.Add(l.win)}
	}
	b.count++
	l.buckets[key] = b

	if b.count > l.max {
		return false, time.Until(b.resetAt)
	}
	return true, 0
}

func (l *fixedWindowLimiter) Stop() {
	close(l.stopCh)
}

// janitor drops stale buckets so one noisy scanner cannot grow the map
// without bound.
func (l *fixedWindowLimiter) janitor() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-l.stopCh:
			return
		case now := <-ticker.C:
			l.mu.Lock()
			for key, b := range l.buckets {
				if now.After(b.resetAt) {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		}
	}
}
