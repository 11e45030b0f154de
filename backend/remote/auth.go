package remote

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidLogin        = errors.New("invalid login credentials")
	ErrAlreadyRegistered   = errors.New("user already registered")
	ErrWeakPassword        = errors.New("password should be at least 6 characters")
	ErrUnsupportedProvider = errors.New("unsupported OAuth provider")
	ErrNoSession           = errors.New("auth session missing")
)

// User is the identity as the auth client knows it.
type User struct {
	ID       uuid.UUID      `json:"id"`
	Email    string         `json:"email"`
	Provider string         `json:"provider"`
	Metadata map[string]any `json:"user_metadata"`
}

// MetaString returns the first non-empty string metadata value among keys.
func (u User) MetaString(keys ...string) string {
	for _, k := range keys {
		if s, ok := u.Metadata[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

type AuthEvent string

const (
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
	EventUserUpdated    AuthEvent = "USER_UPDATED"
)

// AuthChange is delivered to OnAuthStateChange subscribers. Session is nil on sign-out.
type AuthChange struct {
	Event   AuthEvent
	UserID  uuid.UUID
	Session *Session
}

// Auth is the identity-provider contract. GetSession returns (nil, nil) when the
// token does not name a live session.
type Auth interface {
	GetSession(ctx context.Context, accessToken string) (*Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignInWithOAuth(ctx context.Context, provider, redirectTo string) (string, error)
	ExchangeOAuthCode(ctx context.Context, provider, code, state string) (*Session, string, error)
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	UpdatePassword(ctx context.Context, recoveryToken, password string) error
	UpdateUser(ctx context.Context, accessToken string, metadata map[string]any) (*User, error)
	OnAuthStateChange(fn func(AuthChange)) (unsubscribe func())
}

type broadcaster struct {
	mu   sync.RWMutex
	next int
	subs map[int]func(AuthChange)
}

func (b *broadcaster) subscribe(fn func(AuthChange)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = map[int]func(AuthChange){}
	}
	id := b.next
	b.next++
	b.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

func (b *broadcaster) publish(change AuthChange) {
	b.mu.RLock()
	fns := make([]func(AuthChange), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(change)
	}
}
