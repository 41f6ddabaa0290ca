// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"context"
	"time"

	"github.com/taibuivan/mknursery/internal/backend"
)

// # User Data Access

// UserRepository defines the data access contract for admin accounts.
type UserRepository interface {

	/*
		FindByEmail returns the account with the given email, compared case-insensitively.

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	// FindByID returns the account with the given ID.
	FindByID(context context.Context, id string) (*User, error)

	// Create persists a new account. A taken email is an apperr conflict.
	Create(context context.Context, user *User) error

	// UpdatePassword replaces only the user's password hash.
	UpdatePassword(context context.Context, userID, newHash string) error
}

// # Session Data Access

// SessionRepository stores live sessions until they expire.
type SessionRepository interface {

	/*
		Save stores or replaces a session for ttl.

		Parameters:
		  - context: context.Context
		  - session: *backend.Session
		  - ttl: time.Duration

		Returns:
		  - error: Persistence failures
	*/
	Save(context context.Context, session *backend.Session, ttl time.Duration) error

	// Find returns the session, or apperr.NotFound once it is gone or expired.
	Find(context context.Context, sessionID string) (*backend.Session, error)

	// Delete removes one session. Missing sessions are not an error.
	Delete(context context.Context, session *backend.Session) error

	// DeleteAllForUser removes every session of a user and returns their ids.
	DeleteAllForUser(context context.Context, userID string) ([]string, error)
}

// # Volatile Data Access

// ResetTokenRepository stores password reset tokens, keyed by their hash.
type ResetTokenRepository interface {
	Set(context context.Context, tokenHash, userID string, ttl time.Duration) error

	// Get returns apperr.NotFound for unknown or expired tokens.
	Get(context context.Context, tokenHash string) (string, error)

	Delete(context context.Context, tokenHash string) error
}

// # Event Distribution

// Envelope is a session event as it travels between instances.
type Envelope struct {
	Origin string               `json:"origin"`
	Event  backend.SessionEvent `json:"event"`
}

// EventBus carries session events to the other instances of the site.
type EventBus interface {
	Publish(context context.Context, envelope Envelope) error

	// Listen delivers envelopes to handler until context is done.
	Listen(context context.Context, handler func(Envelope)) error
}

// # Delivery

// Mailer sends password reset links.
type Mailer interface {
	SendPasswordReset(context context.Context, email, link string) error
}
