// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Session: cookie names and token issuer.
  - Redis Prefixes: the key taxonomy of volatile state.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "mknursery"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	// Uploads are multipart bodies of a few megabytes, hence the generous value.
	DefaultReadTimeout = 30 * time.Second

	// DefaultWriteTimeout is zero so the admin session stream can stay open.
	// Regular handlers are bounded by GlobalRequestTimeout instead.
	DefaultWriteTimeout = 0

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second

	// SessionStreamHeartbeat keeps proxies from closing an idle admin session stream.
	SessionStreamHeartbeat = 25 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 50.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 100

	// LoginRateLimitRPS throttles credential attempts per IP.
	LoginRateLimitRPS = 0.2

	// LoginRateLimitBurst allows a handful of quick retries before throttling.
	LoginRateLimitBurst = 5

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Session

const (
	// AuthIssuer is the standard 'iss' claim in access tokens.
	AuthIssuer = "mknursery"

	// SessionCookieName carries the access token of the signed-in admin.
	SessionCookieName = "mk_session"

	// RecoveryCookieName carries the short-lived session of a password reset link.
	RecoveryCookieName = "mk_recovery"

	// CSRFCookieName carries the double-submit token.
	CSRFCookieName = "csrf_token"

	// CSRFFormField is the hidden form field that must echo the cookie.
	CSRFFormField = "csrf_token"

	// CSRFHeaderName is accepted instead of the form field for scripted clients.
	CSRFHeaderName = "X-CSRF-Token"

	// FormInstanceField identifies one rendered form across its requests.
	FormInstanceField = "form_instance"
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderCacheControl  = "Cache-Control"
)

// # JSON Field Identifiers

const (
	FieldData    = "data"
	FieldError   = "error"
	FieldCode    = "code"
	FieldStatus  = "status"
	FieldChecks  = "checks"
	FieldVersion = "version"
)

// # Redis Prefixes (Cache Taxonomy)

const (
	RedisPrefixResetToken  = "auth:reset_token:"
	RedisPrefixSession     = "auth:session:"
	RedisPrefixUserSession = "auth:user_sessions:"
	RedisPrefixFormLock    = "form:lock:"
	RedisChannelSession    = "auth:session_events"
)
