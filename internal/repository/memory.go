package repository

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MemoryRateLimiter keeps one token bucket per key in process memory. A
// bucket refills limit tokens per window and bursts up to limit. The first
// call for a key fixes its rate.
type MemoryRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*memoryEntry
	now      func() time.Time
}

type memoryEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{
		limiters: make(map[string]*memoryEntry),
		now:      time.Now,
	}
}

func (r *MemoryRateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 || window <= 0 {
		return true, nil
	}
	now := r.now()

	r.mu.Lock()
	entry, ok := r.limiters[key]
	if !ok {
		entry = &memoryEntry{limiter: rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit)}
		r.limiters[key] = entry
	}
	entry.lastSeen = now
	r.mu.Unlock()

	return entry.limiter.AllowN(now, 1), nil
}

// Prune drops buckets idle for longer than idle and returns how many were removed.
func (r *MemoryRateLimiter) Prune(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, e := range r.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(r.limiters, k)
			n++
		}
	}
	return n
}

// PruneEvery runs Prune(idle) on every tick of interval until ctx is done.
func (r *MemoryRateLimiter) PruneEvery(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Prune(idle)
		}
	}
}
