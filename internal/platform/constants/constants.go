// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants holds the fixed values shared across layers: server
timing, throttling, federated-account shapes, header names and the Redis
key taxonomy. Tunables that operators change live in config instead.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "yomira-auth"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	DefaultReadTimeout       = 5 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the request deadline and the Postgres statement_timeout.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long in-flight requests may run after SIGTERM.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	DefaultRateLimitRPS   = 100.0
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often idle buckets are swept.
	RateLimitCleanupInterval = time.Minute

	// RateLimitClientTTL is the idle time after which a client's bucket is dropped.
	RateLimitClientTTL = 3 * time.Minute
)

// # Federated Accounts

const (
	// SocialPasswordLength is the length of the unusable random password of a federated account.
	SocialPasswordLength = 16

	// SocialEmailLocalLength is the length of the random local part of a federated placeholder email.
	SocialEmailLocalLength = 8
)

// # HTTP Headers

const (
	HeaderXRequestID      = "X-Request-ID"
	HeaderOrigin          = "Origin"
	HeaderXRealIP         = "X-Real-IP"
	HeaderXForwardedFor   = "X-Forwarded-For"
	HeaderXForwardedProto = "X-Forwarded-Proto"
	HeaderAuthorization   = "Authorization"
	HeaderUserAgent       = "User-Agent"

	// AuthorizationBearer is compared case-insensitively.
	AuthorizationBearer = "bearer"
)

// # Health Payload Keys

const (
	FieldStatus  = "status"
	FieldApp     = "app"
	FieldVersion = "version"
	FieldChecks  = "checks"
)

// # Redis Keys

// RedisPrefixRevoked prefixes the jti of every revoked token.
const RedisPrefixRevoked = "auth:revoked:"
