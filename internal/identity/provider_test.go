// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity_test

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mknursery/internal/backend"
	"github.com/taibuivan/mknursery/internal/identity"
	"github.com/taibuivan/mknursery/internal/platform/apperr"
	"github.com/taibuivan/mknursery/internal/platform/sec"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testEmail    = "admin@mknursery.com"
	testPassword = "correct horse"
)

type fixture struct {
	provider *identity.Provider
	mailer   *identity.LogMailer

	mu     sync.Mutex
	events []backend.SessionEvent
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tokens, err := sec.NewTokenService(testSecret, "mknursery")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mailer := identity.NewLogMailer(logger)
	f := &fixture{
		provider: identity.NewMemoryProvider(tokens, mailer, time.Hour, logger),
		mailer:   mailer,
	}

	unsubscribe := f.provider.OnSessionChange(func(event backend.SessionEvent) {
		f.mu.Lock()
		f.events = append(f.events, event)
		f.mu.Unlock()
	})
	t.Cleanup(unsubscribe)

	_, err = f.provider.CreateUser(context.Background(), testEmail, testPassword)
	require.NoError(t, err)
	return f
}

func (f *fixture) kinds() []backend.EventKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	kinds := make([]backend.EventKind, 0, len(f.events))
	for _, event := range f.events {
		kinds = append(kinds, event.Kind)
	}
	return kinds
}

/*
TestSignIn_Credentials covers accepted and rejected credentials.
*/
func TestSignIn_Credentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  bool
	}{
		{"valid", testEmail, testPassword, false},
		{"email_case_insensitive", "ADMIN@mknursery.com", testPassword, false},
		{"wrong_password", testEmail, "nope", true},
		{"unknown_user", "ghost@mknursery.com", testPassword, true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := f.provider.SignIn(ctx, tt.email, tt.password)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))
				assert.Equal(t, identity.MsgInvalidCredentials, apperr.Message(err))
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, session.AccessToken)
			assert.Equal(t, testEmail, session.Email)
		})
	}
}

/*
TestGetSession_Lifecycle follows a session from sign-in to sign-out.
*/
func TestGetSession_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	session, err := f.provider.SignIn(ctx, testEmail, testPassword)
	require.NoError(t, err)

	current, err := f.provider.GetSession(ctx, session.AccessToken)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, session.ID, current.ID)

	require.NoError(t, f.provider.SignOut(ctx, session.AccessToken))

	current, err = f.provider.GetSession(ctx, session.AccessToken)
	require.NoError(t, err)
	assert.Nil(t, current)

	for _, token := range []string{"", "garbage"} {
		current, err = f.provider.GetSession(ctx, token)
		require.NoError(t, err)
		assert.Nil(t, current)
	}

	assert.NoError(t, f.provider.SignOut(ctx, "garbage"))
	assert.Equal(t, []backend.EventKind{backend.EventSignedIn, backend.EventSignedOut}, f.kinds())
}

/*
TestRefresh_GraceWindow keeps the superseded token working for requests
already in flight, without rotating it a second time.
*/
func TestRefresh_GraceWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	session, err := f.provider.SignIn(ctx, testEmail, testPassword)
	require.NoError(t, err)

	// Tokens are signed with second precision.
	time.Sleep(1100 * time.Millisecond)

	refreshed, err := f.provider.Refresh(ctx, session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.ID, refreshed.ID)
	assert.NotEqual(t, session.AccessToken, refreshed.AccessToken)
	assert.Empty(t, refreshed.PreviousToken)
	assert.Contains(t, f.kinds(), backend.EventTokenRefreshed)

	old, err := f.provider.GetSession(ctx, session.AccessToken)
	require.NoError(t, err)
	require.NotNil(t, old)
	assert.Equal(t, refreshed.AccessToken, old.AccessToken)
	assert.Empty(t, old.PreviousToken)
	assert.True(t, old.PreviousValidUntil.IsZero())

	again, err := f.provider.Refresh(ctx, session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, refreshed.AccessToken, again.AccessToken)

	assert.True(t, f.provider.SessionLive(ctx, session.AccessToken))

	require.NoError(t, f.provider.SignOut(ctx, refreshed.AccessToken))
	assert.False(t, f.provider.SessionLive(ctx, session.AccessToken))

	old, err = f.provider.GetSession(ctx, session.AccessToken)
	require.NoError(t, err)
	assert.Nil(t, old)
}

/*
TestSessionLive rejects tokens that are not signed by the provider.
*/
func TestSessionLive(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.provider.SessionLive(context.Background(), ""))
	assert.False(t, f.provider.SessionLive(context.Background(), "not.a.token"))
}

/*
TestPasswordRecovery_Flow walks the reset link from request to new password.
*/
func TestPasswordRecovery_Flow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	existing, err := f.provider.SignIn(ctx, testEmail, testPassword)
	require.NoError(t, err)

	require.NoError(t, f.provider.RequestPasswordReset(ctx, testEmail, "http://localhost:8080/reset-password"))

	link, ok := f.mailer.LastLink(testEmail)
	require.True(t, ok)
	parsed, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "/reset-password", parsed.Path)
	token := parsed.Query().Get("token")
	require.NotEmpty(t, token)

	recovery, err := f.provider.ExchangeRecoveryToken(ctx, token)
	require.NoError(t, err)
	assert.True(t, recovery.Recovery)

	// Single use
	_, err = f.provider.ExchangeRecoveryToken(ctx, token)
	assert.Equal(t, identity.MsgInvalidResetLink, apperr.Message(err))

	err = f.provider.UpdatePassword(ctx, recovery.AccessToken, "short")
	assert.Equal(t, identity.MsgPasswordTooShort, apperr.Message(err))

	require.NoError(t, f.provider.UpdatePassword(ctx, recovery.AccessToken, "new password"))

	// Every session of the user is gone.
	for _, accessToken := range []string{existing.AccessToken, recovery.AccessToken} {
		current, err := f.provider.GetSession(ctx, accessToken)
		require.NoError(t, err)
		assert.Nil(t, current)
	}

	_, err = f.provider.SignIn(ctx, testEmail, testPassword)
	assert.Error(t, err)
	_, err = f.provider.SignIn(ctx, testEmail, "new password")
	assert.NoError(t, err)

	assert.Contains(t, f.kinds(), backend.EventPasswordRecovery)
	assert.Contains(t, f.kinds(), backend.EventUserUpdated)
}

/*
TestRequestPasswordReset_UnknownEmail succeeds without sending anything.
*/
func TestRequestPasswordReset_UnknownEmail(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.provider.RequestPasswordReset(context.Background(), "ghost@mknursery.com", "http://localhost/reset-password"))
	_, ok := f.mailer.LastLink("ghost@mknursery.com")
	assert.False(t, ok)
}

/*
TestUpdatePassword_WithoutSession mirrors the provider's missing-session message.
*/
func TestUpdatePassword_WithoutSession(t *testing.T) {
	f := newFixture(t)

	err := f.provider.UpdatePassword(context.Background(), "", "new password")
	assert.Equal(t, identity.MsgSessionMissing, apperr.Message(err))
}

/*
TestCreateUser_Validation rejects bad input and duplicates.
*/
func TestCreateUser_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.provider.CreateUser(ctx, "not-an-email", testPassword)
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	_, err = f.provider.CreateUser(ctx, "other@mknursery.com", "12345")
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	_, err = f.provider.CreateUser(ctx, "Admin@MKNursery.com", testPassword)
	assert.True(t, apperr.HasCode(err, "CONFLICT"))
}

/*
TestOnSessionChange_Unsubscribe stops delivery and tolerates repeated calls.
*/
func TestOnSessionChange_Unsubscribe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var received int
	unsubscribe := f.provider.OnSessionChange(func(backend.SessionEvent) { received++ })

	_, err := f.provider.SignIn(ctx, testEmail, testPassword)
	require.NoError(t, err)
	assert.Equal(t, 1, received)

	unsubscribe()
	unsubscribe()

	_, err = f.provider.SignIn(ctx, testEmail, testPassword)
	require.NoError(t, err)
	assert.Equal(t, 1, received)
}

type loopbackBus struct {
	mu       sync.Mutex
	handlers []func(identity.Envelope)
	ready    chan struct{}
}

func (bus *loopbackBus) Publish(_ context.Context, envelope identity.Envelope) error {
	bus.mu.Lock()
	handlers := append([]func(identity.Envelope){}, bus.handlers...)
	bus.mu.Unlock()
	for _, handler := range handlers {
		handler(envelope)
	}
	return nil
}

func (bus *loopbackBus) Listen(ctx context.Context, handler func(identity.Envelope)) error {
	bus.mu.Lock()
	bus.handlers = append(bus.handlers, handler)
	bus.mu.Unlock()
	close(bus.ready)
	<-ctx.Done()
	return ctx.Err()
}

/*
TestRun_RelaysRemoteEventsOnly delivers events from other instances and skips its own echo.
*/
func TestRun_RelaysRemoteEventsOnly(t *testing.T) {
	tokens, err := sec.NewTokenService(testSecret, "mknursery")
	require.NoError(t, err)

	bus := &loopbackBus{ready: make(chan struct{})}
	provider := identity.NewProvider(identity.Options{
		Users:       identity.NewMemoryUserRepository(),
		Sessions:    identity.NewMemorySessionRepository(),
		ResetTokens: identity.NewMemoryResetTokenRepository(),
		Bus:         bus,
		Mailer:      identity.NewLogMailer(slog.New(slog.NewTextHandler(io.Discard, nil))),
		Tokens:      tokens,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	var mu sync.Mutex
	var kinds []backend.EventKind
	provider.OnSessionChange(func(event backend.SessionEvent) {
		mu.Lock()
		kinds = append(kinds, event.Kind)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- provider.Run(ctx) }()
	<-bus.ready

	_, err = provider.CreateUser(ctx, testEmail, testPassword)
	require.NoError(t, err)
	_, err = provider.SignIn(ctx, testEmail, testPassword)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, identity.Envelope{
		Origin: "another-instance",
		Event:  backend.SessionEvent{Kind: backend.EventSignedOut, SessionID: "s-remote"},
	}))

	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []backend.EventKind{backend.EventSignedIn, backend.EventSignedOut}, kinds)
}
