// Package webui serves the caricature studio HTTP API.
// This file contains the login session store.
package webui

import (
	"context"
	"errors"
	"sync"
	"time"

	"caricature_studio/core"
)

// ErrSessionNotFound is returned when a session ID is not found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExpired is returned when a session exists but has expired.
var ErrSessionExpired = errors.New("session expired")

// SessionStore keeps login sessions in memory, keyed by the cookie value.
//
// Sessions do not survive a restart; users log in again.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]core.Session
	ttl      time.Duration
}

// NewSessionStore creates a store whose sessions last ttl.
// A non-positive ttl uses core.DefaultSessionDuration.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = core.DefaultSessionDuration
	}
	return &SessionStore{
		sessions: make(map[string]core.Session),
		ttl:      ttl,
	}
}

// Create starts a session for the given user with a fresh random ID.
func (s *SessionStore) Create(userID, email string) (core.Session, error) {
	id, err := core.GenerateSessionID()
	if err != nil {
		return core.Session{}, err
	}
	session := core.NewSession(id, userID, email, s.ttl)

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	return session, nil
}

// Get returns the session for sessionID. Expired sessions are removed and
// reported as ErrSessionExpired.
func (s *SessionStore) Get(sessionID string) (core.Session, error) {
	s.mu.RLock()
	session, exists := s.sessions[sessionID]
	s.mu.RUnlock()

	if !exists {
		return core.Session{}, ErrSessionNotFound
	}
	if session.IsExpired() {
		s.Delete(sessionID)
		return core.Session{}, ErrSessionExpired
	}
	return session, nil
}

// Delete is idempotent.
func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

// DeleteUser removes every session belonging to userID and returns how many
// were removed.
func (s *SessionStore) DeleteUser(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		if session.UserID == userID {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Cleanup removes expired sessions and returns how many were removed.
func (s *SessionStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		if session.IsExpired() {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// StartCleanupTicker runs Cleanup every interval until ctx is cancelled.
func (s *SessionStore) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup()
			}
		}
	}()
}

func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
