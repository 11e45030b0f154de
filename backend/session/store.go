// Package session tracks who is signed in. A Store follows one identity through
// loading, authenticated and anonymous, and reconciles it with the stored profile.
package session

import (
	"context"
	"sync"

	"github.com/vidana-academy/learning-hub/backend/models"
	"github.com/vidana-academy/learning-hub/backend/profiles"
	"github.com/vidana-academy/learning-hub/backend/remote"
	"github.com/vidana-academy/learning-hub/backend/utils"
)

type State int

const (
	StateLoading State = iota
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ProfileSource resolves the stored profile of an identity, creating it when missing.
type ProfileSource interface {
	FetchOrCreate(ctx context.Context, identity models.Identity) (*models.Profile, error)
}

type Store struct {
	auth     remote.Auth
	profiles ProfileSource
	log      *utils.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.RWMutex
	state       State
	identity    *models.Identity
	accessToken string
}

func NewStore(auth remote.Auth, profiles ProfileSource, log *utils.Logger) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		auth:     auth,
		profiles: profiles,
		log:      log.With("component", "session"),
		ctx:      ctx,
		cancel:   cancel,
		state:    StateLoading,
	}
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Identity returns a copy of the current identity.
func (s *Store) Identity() (models.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return models.Identity{}, false
	}
	return *s.identity, true
}

func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// Load resolves the session of accessToken and settles the store.
func (s *Store) Load(ctx context.Context, accessToken string) error {
	session, err := s.auth.GetSession(ctx, accessToken)
	if err != nil {
		s.setAnonymous()
		return err
	}
	s.LoadSession(ctx, session)
	return nil
}

// LoadSession applies an already resolved session. The identity is set from
// session metadata first; the profile then overrides it. When reconciliation
// fails the session-derived identity stays in place. Reconciliation finishes
// before LoadSession returns, so role checks later in the request see the profile role.
func (s *Store) LoadSession(ctx context.Context, session *remote.Session) {
	if session == nil {
		s.setAnonymous()
		return
	}

	base := profiles.IdentityFromUser(session.User)
	s.mu.Lock()
	s.identity = &base
	s.accessToken = session.AccessToken
	s.mu.Unlock()

	s.reconcile(ctx, base)

	s.mu.Lock()
	if s.identity != nil {
		s.state = StateAuthenticated
	}
	s.mu.Unlock()
}

func (s *Store) setAnonymous() {
	s.mu.Lock()
	s.state = StateAnonymous
	s.identity = nil
	s.accessToken = ""
	s.mu.Unlock()
}

func (s *Store) reconcile(ctx context.Context, base models.Identity) {
	profile, err := s.profiles.FetchOrCreate(ctx, base)
	if err != nil {
		s.log.Warn("profile reconciliation failed, keeping session identity", "user_id", base.ID, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// The identity may have been cleared or replaced while the profile was loading.
	if s.identity == nil || s.identity.ID != base.ID {
		return
	}
	merged := profiles.IdentityFromProfile(*s.identity, profile)
	s.identity = &merged
}

func (s *Store) reconcileAsync(base models.Identity) {
	if s.ctx.Err() != nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.reconcile(s.ctx, base)
	}()
}

// SignOut clears the identity immediately, then revokes the session.
func (s *Store) SignOut(ctx context.Context) error {
	s.mu.Lock()
	token := s.accessToken
	s.state = StateAnonymous
	s.identity = nil
	s.accessToken = ""
	s.mu.Unlock()

	if token == "" {
		return nil
	}
	return s.auth.SignOut(ctx, token)
}

// HandleEvent applies an auth-state change. It never returns the store to loading.
func (s *Store) HandleEvent(change remote.AuthChange) {
	switch change.Event {
	case remote.EventSignedIn, remote.EventTokenRefreshed:
		if change.Session == nil {
			return
		}
		s.mu.Lock()
		if s.identity == nil {
			id := profiles.IdentityFromUser(change.Session.User)
			s.identity = &id
		}
		s.accessToken = change.Session.AccessToken
		s.state = StateAuthenticated
		base := *s.identity
		s.mu.Unlock()
		s.reconcileAsync(base)

	case remote.EventUserUpdated:
		s.mu.Lock()
		if s.identity == nil {
			s.mu.Unlock()
			return
		}
		base := *s.identity
		s.mu.Unlock()
		s.reconcileAsync(base)

	case remote.EventSignedOut:
		s.setAnonymous()
	}
}

// Wait blocks until background reconciliation started so far has finished.
func (s *Store) Wait() {
	s.wg.Wait()
}

// Close cancels background reconciliation and waits for it to stop.
func (s *Store) Close() {
	s.cancel()
	s.wg.Wait()
}
