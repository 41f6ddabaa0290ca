// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ctxutil_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/mknursery/internal/backend"
	"github.com/taibuivan/mknursery/internal/platform/ctxutil"
)

/*
TestContext_RequestID verifies that Request IDs can be injected and retrieved.
*/
func TestContext_RequestID(t *testing.T) {
	ctx := context.Background()
	requestID := "test-request-id"

	// 1. Initially should be empty
	assert.Empty(t, ctxutil.GetRequestID(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithRequestID(ctx, requestID)
	assert.Equal(t, requestID, ctxutil.GetRequestID(ctx))
}

/*
TestContext_Logger verifies that a custom logger can be stored in context.
*/
func TestContext_Logger(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// 1. Initially should return the default logger
	assert.Equal(t, slog.Default(), ctxutil.GetLogger(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithLogger(ctx, logger)
	assert.Equal(t, logger, ctxutil.GetLogger(ctx))
}

/*
TestContext_Session verifies that the guard's session can be stored in context.
*/
func TestContext_Session(t *testing.T) {
	ctx := context.Background()
	session := &backend.Session{ID: "sess-1", UserID: "user-123", Email: "owner@mknursery.com"}

	assert.Nil(t, ctxutil.GetSession(ctx))

	ctx = ctxutil.WithSession(ctx, session)
	retrieved := ctxutil.GetSession(ctx)

	assert.NotNil(t, retrieved)
	assert.Equal(t, "user-123", retrieved.UserID)
	assert.Equal(t, "owner@mknursery.com", retrieved.Email)
}

/*
TestContext_CSRFToken verifies the form token round trip.
*/
func TestContext_CSRFToken(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, ctxutil.GetCSRFToken(ctx))

	ctx = ctxutil.WithCSRFToken(ctx, "abc")
	assert.Equal(t, "abc", ctxutil.GetCSRFToken(ctx))
}
