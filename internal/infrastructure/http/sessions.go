package http

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/0xcro3dile/askdocs/internal/domain/ports"
	"github.com/0xcro3dile/askdocs/internal/domain/usecases"
)

// SessionStore keeps chat sessions in memory, keyed by session id.
// Idle sessions expire after the configured TTL.
type SessionStore struct {
	cache *cache.Cache
	index ports.VectorIndex
}

// NewSessionStore creates a store whose sessions share index.
func NewSessionStore(index ports.VectorIndex, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionStore{
		cache: cache.New(ttl, 10*time.Minute),
		index: index,
	}
}

// Resolve returns the session with the given id, or a new one when id is
// empty or unknown. Access extends the session's lifetime.
func (s *SessionStore) Resolve(ctx context.Context, id string) (*usecases.Session, error) {
	if id != "" {
		if x, found := s.cache.Get(id); found {
			sess := x.(*usecases.Session)
			s.cache.Set(sess.ID, sess, cache.DefaultExpiration)
			return sess, nil
		}
	}
	sess, err := usecases.NewSession(ctx, s.index)
	if err != nil {
		return nil, err
	}
	s.cache.Set(sess.ID, sess, cache.DefaultExpiration)
	return sess, nil
}

// Save registers an existing session, e.g. one opened by the command line.
func (s *SessionStore) Save(sess *usecases.Session) {
	s.cache.Set(sess.ID, sess, cache.DefaultExpiration)
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	return s.cache.ItemCount()
}
