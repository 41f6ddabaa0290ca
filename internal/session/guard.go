// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/taibuivan/mknursery/internal/backend"
	"github.com/taibuivan/mknursery/internal/platform/constants"
	"github.com/taibuivan/mknursery/internal/platform/ctxutil"
	"github.com/taibuivan/mknursery/internal/platform/middleware"
)

// # Decisions

// Decision is what the guard does with a view.
type Decision int

const (
	Checking Decision = iota
	Authorized
	Unauthorized
)

func (decision Decision) String() string {
	switch decision {
	case Checking:
		return "checking"
	case Authorized:
		return "authorized"
	default:
		return "unauthorized"
	}
}

// Decide maps a watcher state to a decision.
func Decide(state State) Decision {
	switch {
	case state.Loading:
		return Checking
	case state.Session != nil:
		return Authorized
	default:
		return Unauthorized
	}
}

// # Guard

// Refresher extends a session that is getting old.
type Refresher interface {
	Refresh(ctx context.Context, accessToken string) (*backend.Session, error)

	// SessionLive reports whether the token's session still exists, even when
	// the token itself has been superseded by a refresh.
	SessionLive(ctx context.Context, accessToken string) bool
}

// DecisionRecorder receives every guard decision, for metrics.
type DecisionRecorder interface {
	RecordSessionDecision(decision string)
}

// GuardOptions configures a [Guard]. Only Source is required.
type GuardOptions struct {
	Source       Source
	Cookies      Cookies
	CheckTimeout time.Duration
	LoginPath    string

	// Refresher and SessionTTL enable sliding sessions: a session past half
	// its lifetime gets a new token.
	Refresher  Refresher
	SessionTTL time.Duration

	Recorder DecisionRecorder
}

// Guard admits signed-in admins to the protected subtree.
type Guard struct {
	source     Source
	cookies    Cookies
	timeout    time.Duration
	loginPath  string
	refresher  Refresher
	sessionTTL time.Duration
	recorder   DecisionRecorder
	now        func() time.Time
}

// NewGuard constructs a [Guard].
func NewGuard(options GuardOptions) *Guard {
	loginPath := options.LoginPath
	if loginPath == "" {
		loginPath = "/login"
	}
	return &Guard{
		source:     options.Source,
		cookies:    options.Cookies,
		timeout:    options.CheckTimeout,
		loginPath:  loginPath,
		refresher:  options.Refresher,
		sessionTTL: options.SessionTTL,
		recorder:   options.Recorder,
		now:        time.Now,
	}
}

/*
Protect wraps the admin subtree.

The session is resolved once per request and never cached across requests. A
request that is still checking when its wait ends is treated as unauthorized.
Either way the response is marked no-store, so the browser never redisplays a
protected page from history after sign-out.
*/
func (guard *Guard) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		ctx := request.Context()
		writer.Header().Set(constants.HeaderCacheControl, "no-store")

		token := guard.cookies.Token(request)
		watcher := Watch(ctx, guard.source, token, guard.timeout)
		state := watcher.Wait(ctx)
		watcher.Close()

		state = admit(state)
		decision := Decide(state)
		guard.record(decision)

		if decision != Authorized {
			if token != "" && !guard.sessionLive(ctx, token) {
				guard.cookies.Clear(writer)
			}
			http.Redirect(writer, request, guard.loginPath, http.StatusSeeOther)
			return
		}

		current := guard.maybeRefresh(ctx, token, state.Session)
		if current.AccessToken != token {
			// Refreshed here, or admitted on a token a parallel request superseded.
			guard.cookies.Set(writer, current)
		}

		middleware.NoteUser(ctx, current.UserID)
		next.ServeHTTP(writer, request.WithContext(ctxutil.WithSession(ctx, current)))
	})
}

/*
Stream serves the watcher state as server-sent events for as long as an admin
page stays open.

It sends "checking" first, then "authorized" or "unauthorized". After an
"unauthorized" event the stream ends; the page script replaces its location
with the login page.
*/
func (guard *Guard) Stream(writer http.ResponseWriter, request *http.Request) {
	flusher, ok := writer.(http.Flusher)
	if !ok {
		http.Error(writer, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx := request.Context()
	header := writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set(constants.HeaderCacheControl, "no-store")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	writer.WriteHeader(http.StatusOK)

	watcher := Watch(ctx, guard.source, guard.cookies.Token(request), guard.timeout)
	defer watcher.Close()

	writeEvent(writer, Checking)
	flusher.Flush()

	heartbeat := time.NewTicker(constants.SessionStreamHeartbeat)
	defer heartbeat.Stop()

	last := Checking
	for {
		select {
		case <-ctx.Done():
			return

		case <-heartbeat.C:
			fmt.Fprint(writer, ": ping\n\n")
			flusher.Flush()

		case state, open := <-watcher.Changes():
			if !open {
				return
			}
			decision := Decide(admit(state))
			if decision == last {
				continue
			}
			last = decision

			writeEvent(writer, decision)
			flusher.Flush()

			if decision == Unauthorized {
				ctxutil.GetLogger(ctx).InfoContext(ctx, "session_stream_unauthorized")
				return
			}
		}
	}
}

// # Helpers

// admit drops recovery sessions. They may only set a new password.
func admit(state State) State {
	if state.Session != nil && state.Session.Recovery {
		return State{Loading: state.Loading}
	}
	return state
}

func (guard *Guard) record(decision Decision) {
	if guard.recorder != nil {
		guard.recorder.RecordSessionDecision(decision.String())
	}
}

// sessionLive keeps the cookie of a session that was refreshed by a parallel
// request. Clearing it could delete the newer cookie set by that response.
func (guard *Guard) sessionLive(ctx context.Context, token string) bool {
	return guard.refresher != nil && guard.refresher.SessionLive(ctx, token)
}

// maybeRefresh rotates the token of a session past half its lifetime. It
// refreshes with the request's own token, so a superseded one gets the current
// session back instead of a second rotation.
func (guard *Guard) maybeRefresh(ctx context.Context, token string, current *backend.Session) *backend.Session {
	if guard.refresher == nil || guard.sessionTTL <= 0 || current.ExpiresAt.IsZero() {
		return current
	}
	if current.ExpiresAt.Sub(guard.now()) > guard.sessionTTL/2 {
		return current
	}

	refreshed, err := guard.refresher.Refresh(ctx, token)
	if err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "session_refresh_failed", slog.Any("error", err))
		return current
	}
	return refreshed
}

func writeEvent(writer http.ResponseWriter, decision Decision) {
	fmt.Fprintf(writer, "event: session\ndata: %s\n\n", decision)
}
