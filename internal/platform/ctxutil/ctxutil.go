// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxutil provides helpers for interacting with values stored in [context.Context].
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/taibuivan/mknursery/internal/backend"
	"github.com/taibuivan/mknursery/internal/platform/ctxkey"
)

// # Request Tracing

// WithRequestID returns a new context with the provided request ID attached.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns an empty string if not found.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyRequestID).(string)
	return id
}

// # Structured Logging

// WithLogger returns a new context with the provided logger attached.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger retrieves the logger from the context.
// If no logger is found, it returns the global default logger.
func GetLogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return logger
}

// # Session

// WithSession returns a new context carrying the authorized admin session.
func WithSession(ctx context.Context, session *backend.Session) context.Context {
	return context.WithValue(ctx, ctxkey.KeySession, session)
}

// GetSession retrieves the [*backend.Session] placed by the route guard, or nil.
func GetSession(ctx context.Context) *backend.Session {
	session, ok := ctx.Value(ctxkey.KeySession).(*backend.Session)
	if !ok {
		return nil
	}
	return session
}

// # Forms

// WithCSRFToken returns a new context carrying the token forms must echo.
func WithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyCSRFToken, token)
}

// GetCSRFToken returns the double-submit token, or "" outside the CSRF middleware.
func GetCSRFToken(ctx context.Context) string {
	token, _ := ctx.Value(ctxkey.KeyCSRFToken).(string)
	return token
}
