package webui

import (
	"context"
	"testing"
	"time"

	"caricature_studio/core"
)

func TestRateLimiter_AllowInitial(t *testing.T) {
	limiter := NewRateLimiter(5, 15*time.Minute, 30*time.Minute)

	allowed, remaining := limiter.Allow("192.168.1.1")
	if !allowed {
		t.Error("Allow() = false for new IP, want true")
	}
	if remaining != 0 {
		t.Errorf("Allow() remaining = %v, want 0", remaining)
	}
}

func TestRateLimiter_BlockAfterMaxAttempts(t *testing.T) {
	limiter := NewRateLimiter(3, 15*time.Minute, 30*time.Minute)
	ip := "192.168.1.100"

	for i := 0; i < 3; i++ {
		if allowed, _ := limiter.Allow(ip); !allowed {
			t.Fatalf("Allow() = false after %d attempts, want true", i)
		}
		limiter.RecordAttempt(ip)
	}

	allowed, remaining := limiter.Allow(ip)
	if allowed {
		t.Error("Allow() = true after max attempts, want false")
	}
	// The block extends past the counting window.
	if remaining <= 15*time.Minute {
		t.Errorf("remaining = %v, want the 30m block", remaining)
	}
	if count := limiter.GetAttemptCount(ip); count != 3 {
		t.Errorf("GetAttemptCount() = %d, want 3", count)
	}
}

func TestRateLimiter_Reset(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute, time.Minute)
	ip := "10.0.0.7"

	limiter.RecordAttempt(ip)
	limiter.RecordAttempt(ip)
	if allowed, _ := limiter.Allow(ip); allowed {
		t.Fatal("Allow() = true before Reset, want false")
	}

	limiter.Reset(ip)

	if allowed, _ := limiter.Allow(ip); !allowed {
		t.Error("Allow() = false after Reset, want true")
	}
	if count := limiter.GetAttemptCount(ip); count != 0 {
		t.Errorf("GetAttemptCount() after Reset = %d, want 0", count)
	}
}

func TestRateLimiter_WindowExpiry(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute, time.Minute)
	ip := "10.0.0.8"

	// A record whose window already passed.
	limiter.attempts[ip] = core.AttemptRecord{Count: 5, ResetAt: time.Now().Add(-time.Second)}

	if allowed, _ := limiter.Allow(ip); !allowed {
		t.Error("Allow() = false for expired record, want true")
	}
	if count := limiter.GetAttemptCount(ip); count != 0 {
		t.Errorf("GetAttemptCount() = %d, want 0", count)
	}

	limiter.RecordAttempt(ip)
	if count := limiter.GetAttemptCount(ip); count != 1 {
		t.Errorf("GetAttemptCount() after new attempt = %d, want 1", count)
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	limiter := NewRateLimiter(5, time.Minute, time.Minute)
	limiter.attempts["expired"] = core.AttemptRecord{Count: 1, ResetAt: time.Now().Add(-time.Minute)}
	limiter.RecordAttempt("active")

	if removed := limiter.Cleanup(); removed != 1 {
		t.Errorf("Cleanup() = %d, want 1", removed)
	}
	if limiter.Count() != 1 {
		t.Errorf("Count() = %d, want 1", limiter.Count())
	}
}

func TestRateLimiter_Defaults(t *testing.T) {
	limiter := NewRateLimiter(0, 0, 0)
	if limiter.maxAttempts != core.DefaultMaxAttempts {
		t.Errorf("maxAttempts = %d, want %d", limiter.maxAttempts, core.DefaultMaxAttempts)
	}
	if limiter.window != core.DefaultRateLimitWindow || limiter.block != core.DefaultRateLimitWindow {
		t.Errorf("window = %v block = %v, want %v", limiter.window, limiter.block, core.DefaultRateLimitWindow)
	}
}

func TestRateLimiter_CleanupTickerStops(t *testing.T) {
	limiter := NewRateLimiter(5, time.Minute, time.Minute)
	limiter.attempts["expired"] = core.AttemptRecord{Count: 1, ResetAt: time.Now().Add(-time.Minute)}

	ctx, cancel := context.WithCancel(context.Background())
	limiter.StartCleanupTicker(ctx, 5*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for limiter.Count() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if limiter.Count() != 0 {
		t.Errorf("Count() = %d after ticker, want 0", limiter.Count())
	}
}
