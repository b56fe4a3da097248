package webui

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// GenerateLimiter throttles generate and refine requests per user with a
// token bucket. The per-user in-flight guard in the studio service already
// stops overlapping calls; this bounds how fast they can be repeated.
type GenerateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*userLimiter
	limit    rate.Limit
	burst    int
	idle     time.Duration
}

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewGenerateLimiter allows perMinute requests per user per minute, all of
// which may be spent at once. perMinute <= 0 disables limiting.
func NewGenerateLimiter(perMinute int) *GenerateLimiter {
	l := &GenerateLimiter{
		limiters: make(map[string]*userLimiter),
		limit:    rate.Inf,
		idle:     10 * time.Minute,
	}
	if perMinute > 0 {
		l.limit = rate.Every(time.Minute / time.Duration(perMinute))
		l.burst = perMinute
	}
	return l
}

// Allow consumes one token for userID. When none is left it returns false
// and how long until the next token.
func (l *GenerateLimiter) Allow(userID string) (bool, time.Duration) {
	if l.limit == rate.Inf {
		return true, 0
	}
	now := time.Now()

	l.mu.Lock()
	entry, ok := l.limiters[userID]
	if !ok {
		entry = &userLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[userID] = entry
	}
	entry.lastSeen = now
	l.mu.Unlock()

	reservation := entry.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, time.Minute
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Cleanup forgets users idle for longer than it takes a bucket to refill.
func (l *GenerateLimiter) Cleanup() int {
	cutoff := time.Now().Add(-l.idle)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for userID, entry := range l.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(l.limiters, userID)
			removed++
		}
	}
	return removed
}

// StartCleanupTicker runs Cleanup every interval until ctx is cancelled.
func (l *GenerateLimiter) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Cleanup()
			}
		}
	}()
}

func (l *GenerateLimiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
