// Copyright (c) 2026 zco.mx. All rights reserved.
// Author: zcomix developers <dev@zco.mx>

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Publishing: Coalescer thresholds, requeue bounds, feed windows.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "zcomix-api"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Publishing Pipeline

const (
	// CoalesceThreshold is the minimum age a tentative activity log must reach
	// before the coalescer folds it into a feed-visible activity log.
	CoalesceThreshold = 4 * time.Hour

	// MaxJobRequeues bounds the cooperative release pipeline. A job refusing
	// to finish within this many requeues is disabled.
	MaxJobRequeues = 25

	// ReleasingFlagTTL bounds how long a book may sit with releasing=true
	// before the flag is considered stranded and cleared.
	ReleasingFlagTTL = 1 * time.Hour

	// FeedMaxAgeAll is the item window for the site-wide RSS channel.
	FeedMaxAgeAll = 7 * 24 * time.Hour

	// FeedMaxAgeScoped is the item window for per-book and per-creator channels.
	FeedMaxAgeScoped = 30 * 24 * time.Hour

	// JobPollInterval is how long an idle job worker sleeps between polls.
	JobPollInterval = 2 * time.Second
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderOrigin        = "Origin"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
)

// # JSON Field Identifiers

const (
	FieldData    = "data"
	FieldMeta    = "meta"
	FieldError   = "error"
	FieldCode    = "code"
	FieldDetails = "details"
	FieldFiles   = "files"
	FieldStatus  = "status"
	FieldApp     = "app"
	FieldVersion = "version"
	FieldChecks  = "checks"
)

// # Redis Prefixes (Cache Taxonomy)

const (
	RedisPrefixOptimizeLog    = "img:optimized:"
	RedisPrefixSearchPrefetch = "search:prefetch:"
	RedisKeyCoalescerLock     = "activity:coalescer_lock"
)
