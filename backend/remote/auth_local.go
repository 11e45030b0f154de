package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vidana-academy/learning-hub/backend/models"
	"github.com/vidana-academy/learning-hub/backend/utils"
)

const (
	minPasswordLength = 6
	recoveryTTL       = time.Hour
	oauthStateTTL     = 10 * time.Minute
)

// OAuthProvider couples an oauth2 config with the endpoint returning the user profile.
type OAuthProvider struct {
	Config      *oauth2.Config
	UserInfoURL string
}

type LocalAuthConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Providers  map[string]OAuthProvider
	Mailer     Mailer

	// SiteURL is the client application. Post-login and recovery redirects
	// must share its origin or one of RedirectOrigins; others fall back to SiteURL.
	SiteURL         string
	RedirectOrigins []string
}

// LocalAuth implements Auth on the auth_accounts table with bcrypt passwords and
// HS256 tokens. An access token and its refresh token share a session id.
// Revoked token and session ids are kept in memory until they expire.
type LocalAuth struct {
	db      *gorm.DB
	cfg     LocalAuthConfig
	log     *utils.Logger
	events  broadcaster
	origins []string

	mu       sync.Mutex
	revoked  map[string]time.Time
	ended    map[string]time.Time
	sessions map[uuid.UUID]map[string]time.Time
}

func NewLocalAuth(db *gorm.DB, cfg LocalAuthConfig, log *utils.Logger) *LocalAuth {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}
	if cfg.Mailer == nil {
		cfg.Mailer = NewLogMailer(log)
	}
	cfg.SiteURL = strings.TrimRight(cfg.SiteURL, "/")
	origins := append([]string{}, cfg.RedirectOrigins...)
	if o := utils.Origin(cfg.SiteURL); o != "" {
		origins = append(origins, o)
	}
	return &LocalAuth{
		db:       db,
		cfg:      cfg,
		log:      log.With("component", "auth"),
		origins:  origins,
		revoked:  map[string]time.Time{},
		ended:    map[string]time.Time{},
		sessions: map[uuid.UUID]map[string]time.Time{},
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func userFromAccount(a *models.Account) User {
	meta := map[string]any{}
	for k, v := range a.UserMetadata {
		meta[k] = v
	}
	return User{ID: a.ID, Email: a.Email, Provider: a.Provider, Metadata: meta}
}

func (a *LocalAuth) OnAuthStateChange(fn func(AuthChange)) func() {
	return a.events.subscribe(fn)
}

func (a *LocalAuth) findAccount(ctx context.Context, q string, arg any) (*models.Account, error) {
	var account models.Account
	err := a.db.WithContext(ctx).Where(q, arg).Take(&account).Error
	if err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

// safeRedirect keeps target only when it points at an allowed origin.
func (a *LocalAuth) safeRedirect(target string) string {
	if utils.RedirectAllowed(target, a.origins) {
		return target
	}
	return a.cfg.SiteURL
}

// issue signs a token pair for account. An empty sessionID starts a new session.
func (a *LocalAuth) issue(account *models.Account, sessionID string) (*Session, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	user := userFromAccount(account)
	access, claims, err := utils.GenerateJWTToken(account.ID.String(), utils.TokenClaims{
		Type:      utils.AccessToken,
		SessionID: sessionID,
		Email:     account.Email,
		Metadata:  user.Metadata,
	}, a.cfg.AccessTTL, a.cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, _, err := utils.GenerateJWTToken(account.ID.String(), utils.TokenClaims{
		Type:      utils.RefreshToken,
		SessionID: sessionID,
	}, a.cfg.RefreshTTL, a.cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	a.mu.Lock()
	if a.sessions[account.ID] == nil {
		a.sessions[account.ID] = map[string]time.Time{}
	}
	a.sessions[account.ID][sessionID] = time.Now().Add(a.cfg.RefreshTTL)
	a.mu.Unlock()

	return &Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    claims.ExpiresAt.Time,
		User:         user,
	}, nil
}

// pruneLocked drops bookkeeping for tokens that expired anyway. Callers hold a.mu.
func (a *LocalAuth) pruneLocked(now time.Time) {
	for id, exp := range a.revoked {
		if exp.Before(now) {
			delete(a.revoked, id)
		}
	}
	for id, exp := range a.ended {
		if exp.Before(now) {
			delete(a.ended, id)
		}
	}
	for user, live := range a.sessions {
		for id, exp := range live {
			if exp.Before(now) {
				delete(live, id)
			}
		}
		if len(live) == 0 {
			delete(a.sessions, user)
		}
	}
}

// revoke invalidates a single token.
func (a *LocalAuth) revoke(claims *utils.TokenClaims) {
	now := time.Now()
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pruneLocked(now)
	if claims.ExpiresAt != nil {
		a.revoked[claims.ID] = claims.ExpiresAt.Time
	}
}

// endSession invalidates every token carrying sessionID, the refresh token included.
func (a *LocalAuth) endSession(userID uuid.UUID, sessionID string) {
	if sessionID == "" {
		return
	}
	now := time.Now()
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pruneLocked(now)
	a.ended[sessionID] = now.Add(a.cfg.RefreshTTL)
	delete(a.sessions[userID], sessionID)
}

// endAllSessions signs the account out everywhere.
func (a *LocalAuth) endAllSessions(userID uuid.UUID) {
	now := time.Now()
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pruneLocked(now)
	for id := range a.sessions[userID] {
		a.ended[id] = now.Add(a.cfg.RefreshTTL)
	}
	delete(a.sessions, userID)
}

func (a *LocalAuth) isRevoked(claims *utils.TokenClaims) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.revoked[claims.ID]; ok {
		return true
	}
	if claims.SessionID == "" {
		return false
	}
	_, ok := a.ended[claims.SessionID]
	return ok
}

// parse validates a token and rejects revoked ones.
func (a *LocalAuth) parse(token string, want utils.TokenType) (*utils.TokenClaims, uuid.UUID, error) {
	claims, err := utils.ParseJWTToken(token, want, a.cfg.Secret)
	if err != nil {
		return nil, uuid.Nil, err
	}
	if a.isRevoked(claims) {
		return nil, uuid.Nil, utils.ErrInvalidToken
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, uuid.Nil, utils.ErrInvalidToken
	}
	return claims, id, nil
}

func (a *LocalAuth) GetSession(ctx context.Context, accessToken string) (*Session, error) {
	if accessToken == "" {
		return nil, nil
	}
	claims, id, err := a.parse(accessToken, utils.AccessToken)
	if err != nil {
		return nil, nil
	}
	account, err := a.findAccount(ctx, "id = ?", id)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &Session{
		AccessToken: accessToken,
		ExpiresAt:   claims.ExpiresAt.Time,
		User:        userFromAccount(account),
	}, nil
}

func (a *LocalAuth) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	account, err := a.findAccount(ctx, "email = ?", normalizeEmail(email))
	if IsNotFound(err) {
		return nil, ErrInvalidLogin
	}
	if err != nil {
		return nil, err
	}
	if account.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidLogin
	}

	session, err := a.issue(account, "")
	if err != nil {
		return nil, err
	}
	a.events.publish(AuthChange{Event: EventSignedIn, UserID: account.ID, Session: session})
	return session, nil
}

func (a *LocalAuth) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*Session, error) {
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	account := &models.Account{
		ID:           uuid.New(),
		Email:        normalizeEmail(email),
		PasswordHash: string(hash),
		Provider:     "email",
		UserMetadata: datatypes.JSONMap(metadata),
	}
	if account.UserMetadata == nil {
		account.UserMetadata = datatypes.JSONMap{}
	}
	if err := translate(a.db.WithContext(ctx).Create(account).Error); err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrAlreadyRegistered
		}
		return nil, err
	}

	session, err := a.issue(account, "")
	if err != nil {
		return nil, err
	}
	a.log.Info("account created", "user_id", account.ID, "provider", account.Provider)
	a.events.publish(AuthChange{Event: EventSignedIn, UserID: account.ID, Session: session})
	return session, nil
}

// SignOut ends the session of the access token, so its refresh token stops
// working too. An invalid token is not an error.
func (a *LocalAuth) SignOut(ctx context.Context, accessToken string) error {
	claims, id, err := a.parse(accessToken, utils.AccessToken)
	if err != nil {
		return nil
	}
	a.revoke(claims)
	a.endSession(id, claims.SessionID)
	a.events.publish(AuthChange{Event: EventSignedOut, UserID: id})
	return nil
}

func (a *LocalAuth) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	claims, id, err := a.parse(refreshToken, utils.RefreshToken)
	if err != nil {
		return nil, ErrNoSession
	}
	account, err := a.findAccount(ctx, "id = ?", id)
	if IsNotFound(err) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	a.revoke(claims)

	session, err := a.issue(account, claims.SessionID)
	if err != nil {
		return nil, err
	}
	a.events.publish(AuthChange{Event: EventTokenRefreshed, UserID: id, Session: session})
	return session, nil
}

// ResetPasswordForEmail mails a recovery link. Unknown addresses succeed silently.
// A redirect outside the allowed origins is replaced by the site URL.
func (a *LocalAuth) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	redirectTo = a.safeRedirect(redirectTo)
	account, err := a.findAccount(ctx, "email = ?", normalizeEmail(email))
	if IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	token, _, err := utils.GenerateJWTToken(account.ID.String(), utils.TokenClaims{
		Type:       utils.RecoveryToken,
		Email:      account.Email,
		RedirectTo: redirectTo,
	}, recoveryTTL, a.cfg.Secret)
	if err != nil {
		return fmt.Errorf("sign recovery token: %w", err)
	}

	link := fmt.Sprintf("%s#type=recovery&access_token=%s", redirectTo, url.QueryEscape(token))
	return a.cfg.Mailer.Send(ctx, Message{
		To:      account.Email,
		Subject: "Reset your password",
		Text:    "Follow this link to reset your password: " + link,
		HTML:    fmt.Sprintf(`<p>Follow <a href="%s">this link</a> to reset your password.</p>`, link),
	})
}

func (a *LocalAuth) UpdatePassword(ctx context.Context, recoveryToken, password string) error {
	claims, id, err := a.parse(recoveryToken, utils.RecoveryToken)
	if err != nil {
		return ErrNoSession
	}
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	res := a.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", id).Update("password_hash", string(hash))
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNoSession
	}
	a.revoke(claims)
	// Sessions opened with the old password end with it.
	a.endAllSessions(id)
	a.events.publish(AuthChange{Event: EventSignedOut, UserID: id})
	return nil
}

// UpdateUser merges metadata into the account of the access token's owner.
func (a *LocalAuth) UpdateUser(ctx context.Context, accessToken string, metadata map[string]any) (*User, error) {
	session, err := a.GetSession(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNoSession
	}
	merged := datatypes.JSONMap{}
	for k, v := range session.User.Metadata {
		merged[k] = v
	}
	for k, v := range metadata {
		merged[k] = v
	}
	err = a.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", session.User.ID).
		Update("user_metadata", merged).Error
	if err != nil {
		return nil, translate(err)
	}

	session.User.Metadata = merged
	a.events.publish(AuthChange{Event: EventUserUpdated, UserID: session.User.ID, Session: session})
	return &session.User, nil
}

// SignInWithOAuth returns the provider consent URL. The state parameter is a
// short-lived signed token carrying the post-login redirect.
func (a *LocalAuth) SignInWithOAuth(ctx context.Context, provider, redirectTo string) (string, error) {
	p, ok := a.cfg.Providers[provider]
	if !ok || p.Config == nil {
		return "", ErrUnsupportedProvider
	}
	state, _, err := utils.GenerateJWTToken(provider, utils.TokenClaims{
		Type:       utils.OAuthStateToken,
		RedirectTo: a.safeRedirect(redirectTo),
	}, oauthStateTTL, a.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign oauth state: %w", err)
	}
	return p.Config.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

type oauthUserInfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// ExchangeOAuthCode completes the provider callback and returns the session
// together with the redirect requested when the flow started, re-checked
// against the allowed origins.
func (a *LocalAuth) ExchangeOAuthCode(ctx context.Context, provider, code, state string) (*Session, string, error) {
	p, ok := a.cfg.Providers[provider]
	if !ok || p.Config == nil {
		return nil, "", ErrUnsupportedProvider
	}
	claims, err := utils.ParseJWTToken(state, utils.OAuthStateToken, a.cfg.Secret)
	if err != nil || claims.Subject != provider {
		return nil, "", fmt.Errorf("oauth state: %w", utils.ErrInvalidToken)
	}

	token, err := p.Config.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("oauth exchange: %w", err)
	}
	info, err := fetchUserInfo(ctx, p.Config.Client(ctx, token), p.UserInfoURL)
	if err != nil {
		return nil, "", err
	}
	if info.Email == "" {
		return nil, "", errors.New("oauth provider returned no email")
	}

	account, err := a.findAccount(ctx, "email = ?", normalizeEmail(info.Email))
	switch {
	case IsNotFound(err):
		account = &models.Account{
			ID:       uuid.New(),
			Email:    normalizeEmail(info.Email),
			Provider: provider,
			UserMetadata: datatypes.JSONMap{
				"full_name":  info.Name,
				"name":       info.Name,
				"avatar_url": info.Picture,
				"picture":    info.Picture,
			},
		}
		if err := translate(a.db.WithContext(ctx).Create(account).Error); err != nil {
			return nil, "", err
		}
		a.log.Info("account created", "user_id", account.ID, "provider", provider)
	case err != nil:
		return nil, "", err
	}

	session, err := a.issue(account, "")
	if err != nil {
		return nil, "", err
	}
	a.events.publish(AuthChange{Event: EventSignedIn, UserID: account.ID, Session: session})
	return session, a.safeRedirect(claims.RedirectTo), nil
}

func fetchUserInfo(ctx context.Context, client *http.Client, endpoint string) (*oauthUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oauth userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oauth userinfo: status %d", resp.StatusCode)
	}
	var info oauthUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("oauth userinfo: %w", err)
	}
	return &info, nil
}
