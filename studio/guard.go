package studio

import "sync"

// inFlight admits at most one running generation per user.
type inFlight struct {
	mu    sync.Mutex
	users map[string]struct{}
}

func newInFlight() *inFlight {
	return &inFlight{users: make(map[string]struct{})}
}

// acquire marks userID busy. It returns false if it already was.
func (g *inFlight) acquire(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.users[userID]; busy {
		return false
	}
	g.users[userID] = struct{}{}
	return true
}

func (g *inFlight) release(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.users, userID)
}

func (g *inFlight) has(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.users[userID]
	return busy
}
