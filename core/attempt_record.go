package core

import (
	"time"
)

// Login throttling defaults.
const (
	DefaultRateLimitWindow = 15 * time.Minute
	DefaultMaxAttempts     = 5
)

// AttemptRecord counts failed login attempts for one client within a window.
type AttemptRecord struct {
	Count   int
	ResetAt time.Time
}

// NewAttemptRecord starts a record at count 1 with the given window.
// A non-positive window uses DefaultRateLimitWindow.
func NewAttemptRecord(window time.Duration) AttemptRecord {
	if window <= 0 {
		window = DefaultRateLimitWindow
	}
	return AttemptRecord{
		Count:   1,
		ResetAt: time.Now().Add(window),
	}
}

func (a AttemptRecord) ShouldReset() bool {
	return time.Now().After(a.ResetAt)
}

// IsBlocked reports whether the record has reached maxAttempts and the
// window is still open.
func (a AttemptRecord) IsBlocked(maxAttempts int) bool {
	return !a.ShouldReset() && a.Count >= maxAttempts
}

// TimeUntilReset is zero once the window has passed.
func (a AttemptRecord) TimeUntilReset() time.Duration {
	return max(time.Until(a.ResetAt), 0)
}

// Increment returns the next record. An expired record restarts at 1.
func (a AttemptRecord) Increment(window time.Duration) AttemptRecord {
	if a.ShouldReset() {
		return NewAttemptRecord(window)
	}
	return AttemptRecord{
		Count:   a.Count + 1,
		ResetAt: a.ResetAt,
	}
}
