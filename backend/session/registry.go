package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/vidana-academy/learning-hub/backend/remote"
	"github.com/vidana-academy/learning-hub/backend/utils"
)

// Registry keeps one Store per signed-in identity and forwards auth-state changes
// to it. Stores are dropped after ttl without use or when the cache is full.
type Registry struct {
	auth        remote.Auth
	profiles    ProfileSource
	log         *utils.Logger
	stores      *expirable.LRU[uuid.UUID, *Store]
	unsubscribe func()
}

func NewRegistry(auth remote.Auth, profiles ProfileSource, size int, ttl time.Duration, log *utils.Logger) *Registry {
	if size <= 0 {
		size = 1024
	}
	r := &Registry{
		auth:     auth,
		profiles: profiles,
		log:      log,
	}
	r.stores = expirable.NewLRU[uuid.UUID, *Store](size, func(_ uuid.UUID, s *Store) {
		go s.Close()
	}, ttl)
	r.unsubscribe = auth.OnAuthStateChange(r.dispatch)
	return r
}

func (r *Registry) dispatch(change remote.AuthChange) {
	store, ok := r.stores.Peek(change.UserID)
	if !ok {
		return
	}
	store.HandleEvent(change)
	if change.Event == remote.EventSignedOut {
		r.stores.Remove(change.UserID)
	}
}

// Resolve returns the store for accessToken. Without a live session the result
// is a settled anonymous store that is not cached.
func (r *Registry) Resolve(ctx context.Context, accessToken string) (*Store, error) {
	session, err := r.auth.GetSession(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if session == nil {
		s := NewStore(r.auth, r.profiles, r.log)
		s.LoadSession(ctx, nil)
		return s, nil
	}

	if s, ok := r.stores.Get(session.User.ID); ok && s.State() == StateAuthenticated {
		s.mu.Lock()
		s.accessToken = session.AccessToken
		s.mu.Unlock()
		return s, nil
	}

	s := NewStore(r.auth, r.profiles, r.log)
	s.LoadSession(ctx, session)
	r.stores.Add(session.User.ID, s)
	return s, nil
}

func (r *Registry) Len() int {
	return r.stores.Len()
}

func (r *Registry) Close() {
	r.unsubscribe()
	r.stores.Purge()
}
