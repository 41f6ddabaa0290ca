// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session_test

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/taibuivan/mknursery/internal/backend"
)

// fakeSource answers GetSession from a map and lets tests push events.
type fakeSource struct {
	mu        sync.Mutex
	sessions  map[string]*backend.Session
	listeners map[int]backend.SessionListener
	nextID    int
	err       error

	// gate, when set, blocks GetSession until it is closed.
	gate  chan struct{}
	calls atomic.Int32
}

func newFakeSource(sessions ...*backend.Session) *fakeSource {
	source := &fakeSource{
		sessions:  map[string]*backend.Session{},
		listeners: map[int]backend.SessionListener{},
	}
	for _, session := range sessions {
		source.sessions[session.AccessToken] = session
	}
	return source
}

func (source *fakeSource) GetSession(ctx context.Context, accessToken string) (*backend.Session, error) {
	source.calls.Add(1)

	source.mu.Lock()
	gate := source.gate
	source.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	source.mu.Lock()
	defer source.mu.Unlock()
	if source.err != nil {
		return nil, source.err
	}
	return source.sessions[accessToken], nil
}

func (source *fakeSource) OnSessionChange(listener backend.SessionListener) func() {
	source.mu.Lock()
	defer source.mu.Unlock()
	id := source.nextID
	source.nextID++
	source.listeners[id] = listener
	return func() {
		source.mu.Lock()
		delete(source.listeners, id)
		source.mu.Unlock()
	}
}

func (source *fakeSource) push(event backend.SessionEvent) {
	source.mu.Lock()
	listeners := make([]backend.SessionListener, 0, len(source.listeners))
	for _, listener := range source.listeners {
		listeners = append(listeners, listener)
	}
	source.mu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

func (source *fakeSource) listenerCount() int {
	source.mu.Lock()
	defer source.mu.Unlock()
	return len(source.listeners)
}

func (source *fakeSource) block() chan struct{} {
	gate := make(chan struct{})
	source.mu.Lock()
	source.gate = gate
	source.mu.Unlock()
	return gate
}

func (source *fakeSource) remove(accessToken string) {
	source.mu.Lock()
	delete(source.sessions, accessToken)
	source.mu.Unlock()
}
