// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mknursery/internal/api"
	"github.com/taibuivan/mknursery/internal/backend/memory"
	"github.com/taibuivan/mknursery/internal/identity"
	"github.com/taibuivan/mknursery/internal/platform/config"
	"github.com/taibuivan/mknursery/internal/platform/sec"
	"github.com/taibuivan/mknursery/internal/session"
	"github.com/taibuivan/mknursery/internal/web"
)

func newRouter(t *testing.T, checks ...api.Check) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens, err := sec.NewTokenService("0123456789abcdef0123456789abcdef", "mknursery")
	require.NoError(t, err)
	provider := identity.NewMemoryProvider(tokens, identity.NewLogMailer(logger), time.Hour, logger)
	guard := session.NewGuard(session.GuardOptions{Source: provider, CheckTimeout: time.Second})

	site, err := web.NewServer(web.Options{
		Auth:    provider,
		Data:    memory.NewData(),
		Storage: memory.NewStorage("/storage"),
		Guard:   guard,
		Timeout: time.Second,
		Logger:  logger,
	})
	require.NoError(t, err)

	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{Checks: checks}, logger)
	server := api.NewServer(context.Background(), &config.Config{ServerPort: "0"}, logger, api.Handlers{
		Liveness:      liveness,
		Readiness:     readiness,
		Site:          site.Routes(),
		SessionStream: guard.Stream,
	})
	return server.Handler()
}

/*
TestHealth covers the liveness and readiness probes.
*/
func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		target string
		checks []api.Check
		status int
		body   string
	}{
		{"liveness", "/health", nil, http.StatusOK, `"status":"ok"`},
		{"ready", "/ready", []api.Check{{Name: "postgres", Run: func(context.Context) error { return nil }}}, http.StatusOK, `"status":"ready"`},
		{"degraded", "/ready", []api.Check{{Name: "redis", Run: func(context.Context) error { return errors.New("dial tcp: refused") }}}, http.StatusServiceUnavailable, `"status":"degraded"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			newRouter(t, tt.checks...).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, tt.target, nil))

			assert.Equal(t, tt.status, recorder.Code)
			assert.Contains(t, recorder.Body.String(), tt.body)
		})
	}
}

/*
TestSite_CSRF rejects a form post that does not echo the token cookie.
*/
func TestSite_CSRF(t *testing.T) {
	router := newRouter(t)
	form := url.Values{"name": {"Jane"}, "email": {"jane@example.com"}, "message": {"Hello"}}

	t.Run("missing_token", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(form.Encode()))
		request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusForbidden, recorder.Code)
	})

	t.Run("matching_token", func(t *testing.T) {
		withToken := url.Values{"csrf_token": {"token-1"}}
		for key, values := range form {
			withToken[key] = values
		}
		request := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(withToken.Encode()))
		request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		request.AddCookie(&http.Cookie{Name: "csrf_token", Value: "token-1"})
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "Message Sent!")
	})
}

/*
TestSessionStream_NoCookie ends the stream with an unauthorized event.
*/
func TestSessionStream_NoCookie(t *testing.T) {
	recorder := httptest.NewRecorder()
	newRouter(t).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/admin/session/stream", nil))

	assert.Equal(t, "text/event-stream", recorder.Header().Get("Content-Type"))
	assert.Contains(t, recorder.Body.String(), "data: checking")
	assert.Contains(t, recorder.Body.String(), "data: unauthorized")
}
