// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package backend declares the boundary between the site and its auth, data and
storage provider.

The site never talks to a database, an identity service or a bucket directly.
It consumes exactly the operations below. Concrete providers live in
sub-packages (postgres, memory, objectstore) and in the identity package.
*/
package backend

import (
	"context"
	"encoding/json"
	"io"
	"time"
)

// # Auth

// Session is the provider's record of a signed-in admin.
//
// A copy held by the site is a cache, refreshed on pushed change events.
// The provider remains authoritative.
type Session struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`

	// Recovery marks a short-lived session obtained from a password reset link.
	// It may only be used to set a new password.
	Recovery bool `json:"recovery,omitempty"`

	// PreviousToken keeps resolving until PreviousValidUntil after a refresh,
	// so requests already in flight with the old cookie are still admitted.
	// Providers clear both fields on every copy they hand out.
	PreviousToken      string    `json:"previous_token,omitempty"`
	PreviousValidUntil time.Time `json:"previous_valid_until,omitempty"`
}

// Expired reports whether the session is past its expiry at the given instant.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Accepts reports whether accessToken opens the session at the given instant.
func (s *Session) Accepts(accessToken string, now time.Time) bool {
	if accessToken == "" || s.Expired(now) {
		return false
	}
	if accessToken == s.AccessToken {
		return true
	}
	return accessToken == s.PreviousToken && now.Before(s.PreviousValidUntil)
}

// EventKind names a session change pushed by the provider.
type EventKind string

const (
	EventSignedIn         EventKind = "signed_in"
	EventSignedOut        EventKind = "signed_out"
	EventTokenRefreshed   EventKind = "token_refreshed"
	EventPasswordRecovery EventKind = "password_recovery"
	EventUserUpdated      EventKind = "user_updated"
)

// SessionEvent is one pushed change. Session is set for sign-in, refresh and
// recovery events. SessionID and UserID identify whose state changed.
type SessionEvent struct {
	Kind      EventKind `json:"kind"`
	SessionID string    `json:"session_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Session   *Session  `json:"session,omitempty"`
}

// SessionListener receives pushed session events. It must not block.
type SessionListener func(SessionEvent)

// Auth is the identity half of the provider.
type Auth interface {
	// SignIn exchanges credentials for a session.
	SignIn(ctx context.Context, email, password string) (*Session, error)

	// SignOut ends the session identified by the access token. Unknown tokens are ignored.
	SignOut(ctx context.Context, accessToken string) error

	// GetSession returns the live session for the token, or (nil, nil) when there is none.
	GetSession(ctx context.Context, accessToken string) (*Session, error)

	// OnSessionChange registers a listener and returns the function that releases it.
	OnSessionChange(listener SessionListener) (unsubscribe func())

	// RequestPasswordReset sends a reset link pointing at redirectTo.
	// It succeeds for unknown addresses too.
	RequestPasswordReset(ctx context.Context, email, redirectTo string) error

	// ExchangeRecoveryToken turns a reset link token into a recovery session.
	ExchangeRecoveryToken(ctx context.Context, token string) (*Session, error)

	// UpdatePassword sets a new password for the session's user.
	UpdatePassword(ctx context.Context, accessToken, newPassword string) error
}

// # Data

// Op is a comparison operator understood by every data provider.
type Op string

const (
	OpEq  Op = "eq"
	OpLte Op = "lte"
	OpGte Op = "gte"
)

// Filter restricts a query to rows whose column compares to value.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

// Eq builds an equality filter.
func Eq(column string, value any) Filter { return Filter{Column: column, Op: OpEq, Value: value} }

// Lte builds a less-than-or-equal filter.
func Lte(column string, value any) Filter { return Filter{Column: column, Op: OpLte, Value: value} }

// Gte builds a greater-than-or-equal filter.
func Gte(column string, value any) Filter { return Filter{Column: column, Op: OpGte, Value: value} }

// Order sorts query results by one column.
type Order struct {
	Column    string
	Ascending bool
}

// Query describes a select. Zero Limit means no limit.
type Query struct {
	Filters []Filter
	Order   []Order
	Limit   int
	Offset  int
}

// Record is a partial or complete row keyed by column name.
// Nested maps are stored as structured values (e.g. business_hours).
type Record map[string]any

// Data is the relational half of the provider. Rows travel as JSON objects.
//
// Update and Delete of a missing id return a not-found error.
type Data interface {
	Select(ctx context.Context, collection string, query Query) ([]json.RawMessage, error)
	Insert(ctx context.Context, collection string, record Record) (json.RawMessage, error)
	Update(ctx context.Context, collection, id string, record Record) error
	Delete(ctx context.Context, collection, id string) error
	Count(ctx context.Context, collection string, filters ...Filter) (int, error)
}

// # Storage

// Storage is the blob half of the provider.
type Storage interface {
	Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) error
	PublicURL(bucket, key string) string
}
