package memory

import (
	"time"

	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/store"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps live conversation state in memory with a sliding
// TTL. Expiry is the external teardown path; explicit reset goes through
// Delete.
type SessionRepository struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewSessionRepository(ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionRepository{
		cache: cache.New(ttl, 10*time.Minute),
		ttl:   ttl,
	}
}

func (r *SessionRepository) Save(session *store.Session) {
	r.cache.Set(session.ID, session, r.ttl)
}

func (r *SessionRepository) Get(sessionID string) (*store.Session, bool) {
	if x, found := r.cache.Get(sessionID); found {
		// Refresh the sliding window on every access.
		r.cache.Set(sessionID, x, r.ttl)
		return x.(*store.Session), true
	}
	return nil, false
}

func (r *SessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}
