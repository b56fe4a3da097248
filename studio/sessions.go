package studio

import (
	"time"

	"github.com/patrickmn/go-cache"

	"caricature_studio/core"
	"caricature_studio/imagegen"
)

// DefaultSessionTTL is how long the original photo is kept for refinements.
const DefaultSessionTTL = core.DefaultRefineSessionTTL

// sessionStore keeps one refinement session per user and forgets it after
// ttl without use.
type sessionStore struct {
	cache *cache.Cache
}

func newSessionStore(ttl time.Duration) *sessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &sessionStore{cache: cache.New(ttl, ttl/2)}
}

func (s *sessionStore) get(userID string) (*imagegen.Session, bool) {
	v, ok := s.cache.Get(userID)
	if !ok {
		return nil, false
	}
	session, ok := v.(*imagegen.Session)
	return session, ok
}

// put stores or refreshes the session, restarting its TTL.
func (s *sessionStore) put(userID string, session *imagegen.Session) {
	s.cache.Set(userID, session, cache.DefaultExpiration)
}

func (s *sessionStore) delete(userID string) {
	s.cache.Delete(userID)
}

func (s *sessionStore) count() int {
	return s.cache.ItemCount()
}
