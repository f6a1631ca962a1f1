package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// staleEntryTTL is how long a per-user limiter can be idle before cleanup.
	staleEntryTTL = 48 * time.Hour

	// cleanupInterval is how often the background goroutine sweeps stale entries.
	cleanupInterval = time.Hour
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter enforces a per-key consumable-point window: points consumptions per
// window duration. State is process-local and resets on restart, which is
// acceptable for abuse mitigation.
type Limiter struct {
	mu       sync.Mutex
	entries  map[string]*entry
	limit    rate.Limit
	burst    int
	nowFunc  func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a limiter allowing points consumptions per window. It starts a
// background goroutine that evicts idle per-key state; call Stop to release
// it.
func New(points int, window time.Duration) *Limiter {
	l := &Limiter{
		entries: make(map[string]*entry),
		limit:   rate.Limit(float64(points) / window.Seconds()),
		burst:   points,
		nowFunc: time.Now,
		stopCh:  make(chan struct{}),
	}

	go l.cleanupLoop()
	return l
}

// Allow consumes one point for key, reporting whether the key is still within
// its window. The consume-and-check is atomic per key.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = l.nowFunc()

	return e.limiter.Allow()
}

// Stop shuts down the background cleanup goroutine. Safe to call multiple
// times.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
	})
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.evictStale()
		}
	}
}

func (l *Limiter) evictStale() {
	now := l.nowFunc()
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, e := range l.entries {
		if now.Sub(e.lastSeen) > staleEntryTTL {
			delete(l.entries, key)
		}
	}
}

// EntryCount returns the number of tracked keys (for tests).
func (l *Limiter) EntryCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
