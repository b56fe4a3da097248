package core

import (
	"time"
)

// DefaultSessionDuration is the default lifetime for a login session.
const DefaultSessionDuration = 24 * time.Hour

// DefaultRefineSessionTTL bounds how long an idle refinement session, and the
// original photo it holds, stays in memory.
const DefaultRefineSessionTTL = 30 * time.Minute

// Session is a server-side login session. The ID travels in a cookie; the
// user it belongs to never leaves the server.
type Session struct {
	ID     string
	UserID string
	Email  string

	CreatedAt time.Time
	ExpiresAt time.Time
}

// NewSession creates a session for userID that expires after duration.
// A non-positive duration falls back to DefaultSessionDuration.
func NewSession(id, userID, email string, duration time.Duration) Session {
	if duration <= 0 {
		duration = DefaultSessionDuration
	}
	now := time.Now()
	return Session{
		ID:        id,
		UserID:    userID,
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(duration),
	}
}

func (s Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// TimeRemaining returns the duration until the session expires.
// Negative once expired.
func (s Session) TimeRemaining() time.Duration {
	return time.Until(s.ExpiresAt)
}
