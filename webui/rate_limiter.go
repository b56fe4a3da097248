package webui

import (
	"context"
	"sync"
	"time"

	"caricature_studio/core"
)

// RateLimiter blocks a client after too many failed logins.
//
// Each failure increments the client's core.AttemptRecord. Reaching
// maxAttempts extends the record to the block duration. A successful login
// calls Reset.
type RateLimiter struct {
	mu          sync.RWMutex
	attempts    map[string]core.AttemptRecord
	maxAttempts int
	window      time.Duration
	block       time.Duration
}

// NewRateLimiter creates a limiter allowing maxAttempts failures per window
// before blocking for block.
func NewRateLimiter(maxAttempts int, window, block time.Duration) *RateLimiter {
	if maxAttempts < 1 {
		maxAttempts = core.DefaultMaxAttempts
	}
	if window <= 0 {
		window = core.DefaultRateLimitWindow
	}
	if block <= 0 {
		block = window
	}
	return &RateLimiter{
		attempts:    make(map[string]core.AttemptRecord),
		maxAttempts: maxAttempts,
		window:      window,
		block:       block,
	}
}

// Allow returns (true, 0) when key may attempt a login, otherwise false and
// the time left until the block lifts.
func (r *RateLimiter) Allow(key string) (bool, time.Duration) {
	r.mu.RLock()
	record, exists := r.attempts[key]
	r.mu.RUnlock()

	if !exists || !record.IsBlocked(r.maxAttempts) {
		return true, 0
	}
	return false, record.TimeUntilReset()
}

// RecordAttempt counts one failed login for key.
func (r *RateLimiter) RecordAttempt(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.attempts[key]
	if !exists {
		r.attempts[key] = core.NewAttemptRecord(r.window)
		return
	}

	record = record.Increment(r.window)
	if record.Count == r.maxAttempts {
		record.ResetAt = time.Now().Add(r.block)
	}
	r.attempts[key] = record
}

// Reset clears key after a successful login.
func (r *RateLimiter) Reset(key string) {
	r.mu.Lock()
	delete(r.attempts, key)
	r.mu.Unlock()
}

// Cleanup removes records whose window has passed.
func (r *RateLimiter) Cleanup() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key, record := range r.attempts {
		if record.ShouldReset() {
			delete(r.attempts, key)
			removed++
		}
	}
	return removed
}

// StartCleanupTicker runs Cleanup every interval until ctx is cancelled.
func (r *RateLimiter) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Cleanup()
			}
		}
	}()
}

func (r *RateLimiter) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.attempts)
}

// GetAttemptCount returns 0 for unknown keys and expired windows.
func (r *RateLimiter) GetAttemptCount(key string) int {
	r.mu.RLock()
	record, exists := r.attempts[key]
	r.mu.RUnlock()

	if !exists || record.ShouldReset() {
		return 0
	}
	return record.Count
}
