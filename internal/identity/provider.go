// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/taibuivan/mknursery/internal/backend"
	"github.com/taibuivan/mknursery/internal/platform/apperr"
	"github.com/taibuivan/mknursery/internal/platform/sec"
	"github.com/taibuivan/mknursery/pkg/uuid"
)

// # Contracts & Types

// TokenProvider signs and verifies access tokens.
type TokenProvider interface {
	GenerateAccessToken(sessionID, userID, email string, recovery bool, expiresAt time.Time) (string, error)
	VerifyToken(tokenString string) (*sec.SessionClaims, error)
}

// Options wires a [Provider]. Bus is optional; without it events stay in process.
type Options struct {
	Users       UserRepository
	Sessions    SessionRepository
	ResetTokens ResetTokenRepository
	Bus         EventBus
	Mailer      Mailer
	Tokens      TokenProvider
	SessionTTL  time.Duration
	Logger      *slog.Logger
}

// Provider implements [backend.Auth].
type Provider struct {
	users       UserRepository
	sessions    SessionRepository
	resetTokens ResetTokenRepository
	bus         EventBus
	mailer      Mailer
	tokens      TokenProvider
	sessionTTL  time.Duration
	logger      *slog.Logger
	now         func() time.Time

	// origin tags events this instance published, so Run can skip their echo.
	origin string

	mu        sync.RWMutex
	listeners map[uint64]backend.SessionListener
	nextID    uint64
}

var _ backend.Auth = (*Provider)(nil)

// NewProvider constructs a [Provider].
func NewProvider(options Options) *Provider {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := options.SessionTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Provider{
		users:       options.Users,
		sessions:    options.Sessions,
		resetTokens: options.ResetTokens,
		bus:         options.Bus,
		mailer:      options.Mailer,
		tokens:      options.Tokens,
		sessionTTL:  ttl,
		logger:      logger,
		now:         time.Now,
		origin:      uuid.New(),
		listeners:   make(map[uint64]backend.SessionListener),
	}
}

// # Account Management

// CreateUser validates, hashes and persists a new admin account.
func (provider *Provider) CreateUser(context context.Context, email, password string) (*User, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.ValidationError("A valid email address is required")
	}
	if len(password) < MinPasswordLength {
		return nil, apperr.ValidationError(MsgPasswordTooShort)
	}

	if _, err := provider.users.FindByEmail(context, email); err == nil {
		return nil, apperr.Conflict("Email is already registered")
	} else if !apperr.IsNotFound(err) {
		return nil, provider.remote(err)
	}

	hashedPassword, err := sec.HashPassword(password)
	if errors.Is(err, sec.ErrPasswordTooLong) {
		return nil, apperr.ValidationError(MsgPasswordTooLong)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}

	now := provider.now().UTC()
	user := &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hashedPassword,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := provider.users.Create(context, user); err != nil {
		return nil, provider.remote(err)
	}

	provider.logger.InfoContext(context, "admin_user_created", slog.String("user_id", user.ID))
	return user, nil
}

// # Authentication Flow

/*
SignIn validates credentials and opens a session.

Returns:
  - *backend.Session: the new session, carrying its access token
  - error: apperr.Unauthorized with a generic message for any credential failure
*/
func (provider *Provider) SignIn(context context.Context, email, password string) (*backend.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperr.Unauthorized(MsgInvalidCredentials)
	}

	user, err := provider.users.FindByEmail(context, email)
	if err != nil {
		if apperr.IsNotFound(err) {
			// Same message for unknown accounts, to prevent enumeration.
			return nil, apperr.Unauthorized(MsgInvalidCredentials)
		}
		return nil, provider.remote(err)
	}

	if !sec.CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperr.Unauthorized(MsgInvalidCredentials)
	}

	session, err := provider.openSession(context, user, false, provider.sessionTTL)
	if err != nil {
		return nil, err
	}

	provider.logger.InfoContext(context, "admin_signed_in", slog.String("user_id", user.ID))
	provider.emit(context, backend.SessionEvent{
		Kind:      backend.EventSignedIn,
		SessionID: session.ID,
		UserID:    session.UserID,
		Session:   session,
	})
	return session, nil
}

// SignOut ends the session of the access token. Unknown or invalid tokens are ignored.
func (provider *Provider) SignOut(context context.Context, accessToken string) error {
	claims, err := provider.tokens.VerifyToken(accessToken)
	if err != nil {
		return nil
	}

	session, err := provider.sessions.Find(context, claims.SessionID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil
		}
		return provider.remote(err)
	}

	if err := provider.sessions.Delete(context, session); err != nil {
		return provider.remote(err)
	}

	provider.logger.InfoContext(context, "admin_signed_out", slog.String("user_id", session.UserID))
	provider.emit(context, backend.SessionEvent{
		Kind:      backend.EventSignedOut,
		SessionID: session.ID,
		UserID:    session.UserID,
	})
	return nil
}

// GetSession returns the live session for an access token, or (nil, nil).
//
// A token is live while its session exists and carries it as the current
// token, or as the previous one within [RefreshGracePeriod] of a refresh.
func (provider *Provider) GetSession(context context.Context, accessToken string) (*backend.Session, error) {
	session, err := provider.liveSession(context, accessToken)
	if err != nil || session == nil {
		return nil, err
	}
	return published(session), nil
}

// SessionLive reports whether the session named by a validly signed token
// still exists, even if the token itself has been superseded.
func (provider *Provider) SessionLive(context context.Context, accessToken string) bool {
	claims, err := provider.tokens.VerifyToken(accessToken)
	if err != nil {
		return false
	}
	session, err := provider.sessions.Find(context, claims.SessionID)
	if err != nil {
		return false
	}
	return !session.Expired(provider.now())
}

/*
Refresh extends a live session with a new access token.

The previous token keeps resolving for [RefreshGracePeriod], then stops. A
refresh with that previous token returns the current session unchanged.
Listeners receive token_refreshed with the new session so watchers replace
their copy without a round trip.
*/
func (provider *Provider) Refresh(context context.Context, accessToken string) (*backend.Session, error) {
	current, err := provider.liveSession(context, accessToken)
	if err != nil {
		return nil, err
	}
	if current == nil || current.Recovery {
		return nil, apperr.Unauthorized(MsgSessionMissing)
	}
	if current.AccessToken != accessToken {
		// Already refreshed by a parallel request.
		return published(current), nil
	}

	now := provider.now()
	expiresAt := now.Add(provider.sessionTTL)
	token, err := provider.tokens.GenerateAccessToken(current.ID, current.UserID, current.Email, false, expiresAt)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	refreshed := *current
	refreshed.PreviousToken = current.AccessToken
	refreshed.PreviousValidUntil = now.Add(RefreshGracePeriod)
	refreshed.AccessToken = token
	refreshed.ExpiresAt = expiresAt
	if err := provider.sessions.Save(context, &refreshed, provider.sessionTTL); err != nil {
		return nil, provider.remote(err)
	}

	public := published(&refreshed)
	provider.emit(context, backend.SessionEvent{
		Kind:      backend.EventTokenRefreshed,
		SessionID: public.ID,
		UserID:    public.UserID,
		Session:   public,
	})
	return public, nil
}

// liveSession returns the stored session the token opens, or (nil, nil).
func (provider *Provider) liveSession(context context.Context, accessToken string) (*backend.Session, error) {
	if accessToken == "" {
		return nil, nil
	}

	claims, err := provider.tokens.VerifyToken(accessToken)
	if err != nil {
		return nil, nil
	}

	session, err := provider.sessions.Find(context, claims.SessionID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, nil
		}
		return nil, provider.remote(err)
	}

	if !session.Accepts(accessToken, provider.now()) {
		return nil, nil
	}
	return session, nil
}

// published strips the grace window bookkeeping from a stored session.
func published(session *backend.Session) *backend.Session {
	public := *session
	public.PreviousToken = ""
	public.PreviousValidUntil = time.Time{}
	return &public
}

// # Password Recovery

/*
RequestPasswordReset mails a reset link that points at redirectTo.

Unknown addresses succeed silently, to prevent account enumeration.
*/
func (provider *Provider) RequestPasswordReset(context context.Context, email, redirectTo string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperr.ValidationError("Email is required")
	}

	user, err := provider.users.FindByEmail(context, email)
	if err != nil {
		if apperr.IsNotFound(err) {
			provider.logger.DebugContext(context, "password_reset_unknown_email")
			return nil
		}
		return provider.remote(err)
	}

	token, err := sec.GenerateSecureToken(ResetTokenLength)
	if err != nil {
		return apperr.Internal(err)
	}

	if err := provider.resetTokens.Set(context, sec.HashToken(token), user.ID, ResetTokenTTL); err != nil {
		return provider.remote(err)
	}

	link, err := resetLink(redirectTo, token)
	if err != nil {
		return apperr.Internal(err)
	}

	if err := provider.mailer.SendPasswordReset(context, user.Email, link); err != nil {
		return provider.remote(err)
	}

	provider.logger.InfoContext(context, "password_reset_requested", slog.String("user_id", user.ID))
	return nil
}

// ExchangeRecoveryToken turns a reset link token into a short recovery session.
// Each token works once.
func (provider *Provider) ExchangeRecoveryToken(context context.Context, token string) (*backend.Session, error) {
	if token == "" {
		return nil, apperr.Unauthorized(MsgInvalidResetLink)
	}

	tokenHash := sec.HashToken(token)
	userID, err := provider.resetTokens.Get(context, tokenHash)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Unauthorized(MsgInvalidResetLink)
		}
		return nil, provider.remote(err)
	}

	if err := provider.resetTokens.Delete(context, tokenHash); err != nil {
		return nil, provider.remote(err)
	}

	user, err := provider.users.FindByID(context, userID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Unauthorized(MsgInvalidResetLink)
		}
		return nil, provider.remote(err)
	}

	session, err := provider.openSession(context, user, true, min(RecoverySessionTTL, provider.sessionTTL))
	if err != nil {
		return nil, err
	}

	provider.emit(context, backend.SessionEvent{
		Kind:      backend.EventPasswordRecovery,
		SessionID: session.ID,
		UserID:    session.UserID,
		Session:   session,
	})
	return session, nil
}

/*
UpdatePassword sets a new password for the user of the session.

Every session of the user is revoked afterwards, the calling one included, and
a signed_out event is pushed for each of them.
*/
func (provider *Provider) UpdatePassword(context context.Context, accessToken, newPassword string) error {
	session, err := provider.GetSession(context, accessToken)
	if err != nil {
		return err
	}
	if session == nil {
		return apperr.Unauthorized(MsgSessionMissing)
	}

	if len(newPassword) < MinPasswordLength {
		return apperr.ValidationError(MsgPasswordTooShort)
	}

	hashedPassword, err := sec.HashPassword(newPassword)
	if errors.Is(err, sec.ErrPasswordTooLong) {
		return apperr.ValidationError(MsgPasswordTooLong)
	}
	if err != nil {
		return apperr.Internal(err)
	}

	if err := provider.users.UpdatePassword(context, session.UserID, hashedPassword); err != nil {
		return provider.remote(err)
	}

	revoked, err := provider.sessions.DeleteAllForUser(context, session.UserID)
	if err != nil {
		return provider.remote(err)
	}

	for _, sessionID := range revoked {
		provider.emit(context, backend.SessionEvent{
			Kind:      backend.EventSignedOut,
			SessionID: sessionID,
			UserID:    session.UserID,
		})
	}
	provider.emit(context, backend.SessionEvent{Kind: backend.EventUserUpdated, UserID: session.UserID})

	provider.logger.InfoContext(context, "password_updated",
		slog.String("user_id", session.UserID),
		slog.Int("sessions_revoked", len(revoked)),
	)
	return nil
}

// # Session Events

// OnSessionChange registers a listener. The returned function releases it and
// is safe to call more than once.
func (provider *Provider) OnSessionChange(listener backend.SessionListener) func() {
	provider.mu.Lock()
	id := provider.nextID
	provider.nextID++
	provider.listeners[id] = listener
	provider.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			provider.mu.Lock()
			delete(provider.listeners, id)
			provider.mu.Unlock()
		})
	}
}

// Run relays events published by other instances to local listeners until
// context is done. Without a bus it returns immediately.
func (provider *Provider) Run(context context.Context) error {
	if provider.bus == nil {
		return nil
	}

	err := provider.bus.Listen(context, func(envelope Envelope) {
		if envelope.Origin == provider.origin {
			return
		}
		provider.dispatch(envelope.Event)
	})
	if err != nil && !errors.Is(err, context.Err()) {
		return fmt.Errorf("identity: session event relay stopped: %w", err)
	}
	return nil
}

func (provider *Provider) emit(context context.Context, event backend.SessionEvent) {
	provider.dispatch(event)

	if provider.bus == nil {
		return
	}
	if err := provider.bus.Publish(context, Envelope{Origin: provider.origin, Event: event}); err != nil {
		provider.logger.WarnContext(context, "session_event_publish_failed",
			slog.String("kind", string(event.Kind)),
			slog.Any("error", err),
		)
	}
}

func (provider *Provider) dispatch(event backend.SessionEvent) {
	provider.mu.RLock()
	listeners := make([]backend.SessionListener, 0, len(provider.listeners))
	for _, listener := range provider.listeners {
		listeners = append(listeners, listener)
	}
	provider.mu.RUnlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// # Helpers

func (provider *Provider) openSession(context context.Context, user *User, recovery bool, ttl time.Duration) (*backend.Session, error) {
	expiresAt := provider.now().Add(ttl)
	session := &backend.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: expiresAt,
		Recovery:  recovery,
	}

	token, err := provider.tokens.GenerateAccessToken(session.ID, user.ID, user.Email, recovery, expiresAt)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	session.AccessToken = token

	if err := provider.sessions.Save(context, session, ttl); err != nil {
		return nil, provider.remote(err)
	}
	return session, nil
}

// remote classifies a store failure. Errors the stores already classified pass through.
func (provider *Provider) remote(err error) error {
	if apperr.IsAppError(err) {
		return err
	}
	return apperr.Remote(err)
}

func resetLink(redirectTo, token string) (string, error) {
	target, err := url.Parse(redirectTo)
	if err != nil {
		return "", fmt.Errorf("identity: invalid reset redirect %q: %w", redirectTo, err)
	}
	query := target.Query()
	query.Set("token", token)
	target.RawQuery = query.Encode()
	return target.String(), nil
}
