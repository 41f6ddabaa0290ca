// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package session tracks whether the admin viewing a page is signed in.

A [Watcher] is the client-side cache of one session: it fetches the session
once, then applies the change events the identity provider pushes. The
[Guard] turns a watcher's state into an admission decision for every
protected request and for the admin session stream.

A watcher lives exactly as long as the view that opened it: one guarded
request, or one open session stream.
*/
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/taibuivan/mknursery/internal/backend"
	"github.com/taibuivan/mknursery/internal/platform/ctxutil"
)

// DefaultCheckTimeout bounds the initial session fetch.
const DefaultCheckTimeout = 5 * time.Second

// Source is the part of the identity provider a watcher needs.
type Source interface {
	GetSession(ctx context.Context, accessToken string) (*backend.Session, error)
	OnSessionChange(listener backend.SessionListener) (unsubscribe func())
}

// State is the observable value of a watcher.
// While Loading is true, Session is meaningless.
type State struct {
	Loading bool
	Session *backend.Session
}

// Watcher caches one admin session and follows its pushed changes.
type Watcher struct {
	source  Source
	token   string
	timeout time.Duration
	logger  *slog.Logger

	mu          sync.Mutex
	state       State
	pending     []backend.SessionEvent
	closed      bool
	unsubscribe func()

	changes  chan State
	resolved chan struct{}
	done     chan struct{}
	base     context.Context
	cancel   context.CancelFunc
	once     sync.Once
}

/*
Watch opens a watcher for an access token.

The watcher subscribes before it fetches, so no event between the two is lost;
events that arrive while loading are applied once the fetch resolves. A fetch
error or timeout resolves to "no session". An empty token resolves at once.

The parent context only carries the logger and cancellation; the fetch itself
runs under its own timeout.
*/
func Watch(ctx context.Context, source Source, accessToken string, timeout time.Duration) *Watcher {
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}

	fetchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	watcher := &Watcher{
		source:   source,
		token:    accessToken,
		timeout:  timeout,
		logger:   ctxutil.GetLogger(ctx),
		state:    State{Loading: true},
		changes:  make(chan State, 1),
		resolved: make(chan struct{}),
		done:     make(chan struct{}),
		base:     fetchCtx,
		cancel:   cancel,
	}

	if accessToken == "" {
		watcher.unsubscribe = func() {}
		watcher.resolve(nil)
		return watcher
	}

	watcher.unsubscribe = source.OnSessionChange(watcher.handle)
	go watcher.fetch(fetchCtx, true)
	return watcher
}

// State returns the current value.
func (watcher *Watcher) State() State {
	watcher.mu.Lock()
	defer watcher.mu.Unlock()
	return watcher.state
}

// Changes delivers the latest state after each change. Intermediate values
// may be skipped; the last one is never lost. The channel closes on Close.
func (watcher *Watcher) Changes() <-chan State {
	return watcher.changes
}

// Wait blocks until the initial fetch resolves, the watcher closes or ctx ends,
// and returns the state at that moment.
func (watcher *Watcher) Wait(ctx context.Context) State {
	select {
	case <-watcher.resolved:
	case <-watcher.done:
	case <-ctx.Done():
	}
	return watcher.State()
}

// Close releases the subscription. It is safe to call more than once, and
// callbacks that arrive afterwards are dropped.
func (watcher *Watcher) Close() {
	watcher.once.Do(func() {
		watcher.mu.Lock()
		watcher.closed = true
		watcher.pending = nil
		close(watcher.changes)
		watcher.mu.Unlock()

		watcher.unsubscribe()
		watcher.cancel()
		close(watcher.done)
	})
}

// # Internals

func (watcher *Watcher) fetch(ctx context.Context, initial bool) {
	fetchCtx, cancel := context.WithTimeout(ctx, watcher.timeout)
	defer cancel()

	session, err := watcher.source.GetSession(fetchCtx, watcher.token)
	if err != nil {
		// A closed watcher cancels its own fetch; that is not worth a warning.
		if ctx.Err() == nil {
			watcher.logger.Warn("session_watch_failed", slog.Any("error", err))
		}
		session = nil
	}

	if initial {
		watcher.resolve(session)
		return
	}

	watcher.mu.Lock()
	defer watcher.mu.Unlock()
	if watcher.closed {
		return
	}
	watcher.state.Session = session
	watcher.publish()
}

func (watcher *Watcher) resolve(session *backend.Session) {
	watcher.mu.Lock()
	if watcher.closed {
		watcher.mu.Unlock()
		return
	}

	watcher.state = State{Loading: false, Session: session}
	pending := watcher.pending
	watcher.pending = nil
	for _, event := range pending {
		watcher.apply(event)
	}
	watcher.publish()
	watcher.mu.Unlock()

	close(watcher.resolved)
}

func (watcher *Watcher) handle(event backend.SessionEvent) {
	watcher.mu.Lock()
	defer watcher.mu.Unlock()

	if watcher.closed {
		return
	}
	if watcher.state.Loading {
		watcher.pending = append(watcher.pending, event)
		return
	}
	if watcher.apply(event) {
		watcher.publish()
	}
}

// apply must be called with mu held. It reports whether the state changed.
func (watcher *Watcher) apply(event backend.SessionEvent) bool {
	current := watcher.state.Session

	switch event.Kind {
	case backend.EventSignedOut:
		if current != nil && event.SessionID == current.ID {
			watcher.state.Session = nil
			return true
		}

	case backend.EventTokenRefreshed:
		if current != nil && event.Session != nil && event.SessionID == current.ID {
			watcher.state.Session = event.Session
			return true
		}

	case backend.EventSignedIn, backend.EventPasswordRecovery:
		if event.Session != nil && event.Session.AccessToken == watcher.token {
			watcher.state.Session = event.Session
			return true
		}

	case backend.EventUserUpdated:
		if current != nil && event.UserID == current.UserID {
			go watcher.refetch()
		}
	}
	return false
}

func (watcher *Watcher) refetch() {
	select {
	case <-watcher.done:
		return
	default:
	}
	watcher.fetch(watcher.base, false)
}

// publish must be called with mu held.
func (watcher *Watcher) publish() {
	select {
	case watcher.changes <- watcher.state:
	default:
		// Drop the stale value and keep the latest.
		select {
		case <-watcher.changes:
		default:
		}
		watcher.changes <- watcher.state
	}
}
