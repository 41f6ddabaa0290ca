// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package identity implements the auth half of the backend.

It owns admin accounts, live sessions and password reset links, and pushes
every session change to in-process listeners and, through Redis Pub/Sub, to
every other instance of the site.

Architecture:

  - Provider: implements backend.Auth (sign-in, sign-out, session lookup,
    password recovery) and fans session events out to listeners.
  - Repositories: users in PostgreSQL, sessions and reset tokens in Redis with
    a TTL. In-memory versions back local runs and tests.
  - Security: bcrypt password hashes and HS256 access tokens from platform/sec.
*/
package identity

import (
	"time"
)

// # Domain Entities

// User is an admin account. Accounts are created by the operator CLI only.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// # Constraints

const (
	// ResetTokenTTL is how long a password reset link stays valid.
	ResetTokenTTL = 1 * time.Hour

	// ResetTokenLength is the byte length of the random reset token.
	ResetTokenLength = 32

	// RecoverySessionTTL bounds the session obtained from a reset link.
	RecoverySessionTTL = 15 * time.Minute

	// RefreshGracePeriod is how long a superseded access token keeps working.
	RefreshGracePeriod = 30 * time.Second

	// MinPasswordLength is the shortest password UpdatePassword accepts.
	MinPasswordLength = 6
)

// Messages shown verbatim on the auth pages.
const (
	MsgInvalidCredentials = "Invalid login credentials"
	MsgSessionMissing     = "Auth session missing!"
	MsgInvalidResetLink   = "Reset link is invalid or has expired"
	MsgPasswordTooShort   = "Password should be at least 6 characters."
	MsgPasswordTooLong    = "Password should be at most 72 characters."
)
