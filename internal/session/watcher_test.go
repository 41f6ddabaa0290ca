// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mknursery/internal/backend"
	"github.com/taibuivan/mknursery/internal/session"
)

func adminSession() *backend.Session {
	return &backend.Session{
		ID:          "sess-1",
		UserID:      "user-1",
		Email:       "admin@mknursery.com",
		AccessToken: "token-1",
		ExpiresAt:   time.Now().Add(time.Hour),
	}
}

// next waits for one value on the watcher's change channel.
func next(t *testing.T, watcher *session.Watcher) session.State {
	t.Helper()
	select {
	case state, ok := <-watcher.Changes():
		require.True(t, ok, "changes channel closed")
		return state
	case <-time.After(2 * time.Second):
		t.Fatal("no state change")
		return session.State{}
	}
}

/*
TestWatch_ResolvesSession covers the initial fetch for known, unknown and empty tokens.
*/
func TestWatch_ResolvesSession(t *testing.T) {
	tests := []struct {
		name        string
		token       string
		wantSession bool
	}{
		{"known_token", "token-1", true},
		{"unknown_token", "token-2", false},
		{"empty_token", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := newFakeSource(adminSession())
			watcher := session.Watch(context.Background(), source, tt.token, time.Second)
			defer watcher.Close()

			state := watcher.Wait(context.Background())
			assert.False(t, state.Loading)
			assert.Equal(t, tt.wantSession, state.Session != nil)
		})
	}
}

/*
TestWatch_LoadingUntilFetchResolves keeps the state loading while the provider is slow.
*/
func TestWatch_LoadingUntilFetchResolves(t *testing.T) {
	source := newFakeSource(adminSession())
	gate := source.block()

	watcher := session.Watch(context.Background(), source, "token-1", time.Second)
	defer watcher.Close()

	assert.True(t, watcher.State().Loading)

	close(gate)
	state := next(t, watcher)
	assert.False(t, state.Loading)
	require.NotNil(t, state.Session)
	assert.Equal(t, "sess-1", state.Session.ID)
}

/*
TestWatch_ErrorMeansNoSession treats provider failures and timeouts as signed out.
*/
func TestWatch_ErrorMeansNoSession(t *testing.T) {
	t.Run("provider_error", func(t *testing.T) {
		source := newFakeSource(adminSession())
		source.err = errors.New("connection refused")

		watcher := session.Watch(context.Background(), source, "token-1", time.Second)
		defer watcher.Close()

		state := watcher.Wait(context.Background())
		assert.False(t, state.Loading)
		assert.Nil(t, state.Session)
	})

	t.Run("timeout", func(t *testing.T) {
		source := newFakeSource(adminSession())
		source.block()

		watcher := session.Watch(context.Background(), source, "token-1", 50*time.Millisecond)
		defer watcher.Close()

		state := watcher.Wait(context.Background())
		assert.False(t, state.Loading)
		assert.Nil(t, state.Session)
	})
}

/*
TestWatch_AppliesPushedEvents follows sign-out and refresh for the watched session only.
*/
func TestWatch_AppliesPushedEvents(t *testing.T) {
	source := newFakeSource(adminSession())
	watcher := session.Watch(context.Background(), source, "token-1", time.Second)
	defer watcher.Close()

	next(t, watcher)

	// Another session signing out changes nothing.
	source.push(backend.SessionEvent{Kind: backend.EventSignedOut, SessionID: "sess-9"})
	assert.NotNil(t, watcher.State().Session)

	refreshed := adminSession()
	refreshed.AccessToken = "token-1b"
	source.push(backend.SessionEvent{Kind: backend.EventTokenRefreshed, SessionID: "sess-1", Session: refreshed})
	state := next(t, watcher)
	require.NotNil(t, state.Session)
	assert.Equal(t, "token-1b", state.Session.AccessToken)

	source.push(backend.SessionEvent{Kind: backend.EventSignedOut, SessionID: "sess-1", UserID: "user-1"})
	state = next(t, watcher)
	assert.False(t, state.Loading)
	assert.Nil(t, state.Session)
}

/*
TestWatch_EventDuringLoadIsNotLost applies a sign-out that races the initial fetch.
*/
func TestWatch_EventDuringLoadIsNotLost(t *testing.T) {
	source := newFakeSource(adminSession())
	gate := source.block()

	watcher := session.Watch(context.Background(), source, "token-1", time.Second)
	defer watcher.Close()

	source.push(backend.SessionEvent{Kind: backend.EventSignedOut, SessionID: "sess-1"})
	close(gate)

	state := watcher.Wait(context.Background())
	assert.False(t, state.Loading)
	assert.Nil(t, state.Session)
}

/*
TestWatch_SignedInWithWatchedToken turns an absent session into a present one.
*/
func TestWatch_SignedInWithWatchedToken(t *testing.T) {
	source := newFakeSource()
	watcher := session.Watch(context.Background(), source, "token-1", time.Second)
	defer watcher.Close()

	require.Nil(t, next(t, watcher).Session)

	source.push(backend.SessionEvent{Kind: backend.EventSignedIn, Session: adminSession()})
	state := next(t, watcher)
	require.NotNil(t, state.Session)
	assert.Equal(t, "user-1", state.Session.UserID)
}

/*
TestWatch_UserUpdatedRefetches asks the provider again after a user change.
*/
func TestWatch_UserUpdatedRefetches(t *testing.T) {
	source := newFakeSource(adminSession())
	watcher := session.Watch(context.Background(), source, "token-1", time.Second)
	defer watcher.Close()

	next(t, watcher)
	source.remove("token-1")

	source.push(backend.SessionEvent{Kind: backend.EventUserUpdated, UserID: "user-1"})
	state := next(t, watcher)
	assert.Nil(t, state.Session)
	assert.Equal(t, int32(2), source.calls.Load())
}

/*
TestWatch_CloseReleasesSubscription checks that Close is idempotent and late events are dropped.
*/
func TestWatch_CloseReleasesSubscription(t *testing.T) {
	source := newFakeSource(adminSession())
	watcher := session.Watch(context.Background(), source, "token-1", time.Second)
	watcher.Wait(context.Background())
	require.Equal(t, 1, source.listenerCount())

	watcher.Close()
	watcher.Close()
	assert.Equal(t, 0, source.listenerCount())

	source.push(backend.SessionEvent{Kind: backend.EventSignedOut, SessionID: "sess-1"})
	assert.NotNil(t, watcher.State().Session)

	// Drain the resolved value; the channel must then be closed.
	for range watcher.Changes() {
	}
}
