// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

/*
Package constants provides centralized, immutable values for the entire client.

It defines default timeouts, backoff schedules, and cross-cutting keys that are
shared between the REST layer, the realtime layer, and the session store.

Categories:

  - Network Timing: Request timeouts and handshake deadlines.
  - Realtime: The reconnect backoff schedule and keepalive interval.
  - Storage: Key names for the persisted client state file.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "carvia-client"
	AppVersion = "0.1.0-dev"
)

// # Network Timing

const (
	// DefaultRequestTimeout is the deadline for a single REST call.
	DefaultRequestTimeout = 30 * time.Second

	// HubHandshakeTimeout is the deadline for the realtime hub handshake exchange.
	HubHandshakeTimeout = 10 * time.Second

	// HubKeepAliveInterval is how often the realtime client sends a ping frame.
	HubKeepAliveInterval = 15 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the outbound requests per second the client allows itself.
	DefaultRateLimitRPS = 20.0

	// DefaultRateLimitBurst is the maximum outbound burst allowed before throttling.
	DefaultRateLimitBurst = 40
)

// # Realtime Reconnect

// ReconnectSchedule is the delay before each automatic reconnect attempt after
// an unexpected drop. The final entry repeats for all subsequent attempts.
//
// The schedule is a hard contract shared with the server operators, balancing
// fast recovery against reconnect storms. It is not a tuning knob.
var ReconnectSchedule = []time.Duration{
	0,
	2 * time.Second,
	10 * time.Second,
	30 * time.Second,
}

// # Refetch Coalescing

const (
	// RefetchWindow is the minimum spacing between event-triggered background
	// refetches of the conversation and friend lists.
	RefetchWindow = 500 * time.Millisecond
)

// # Persisted State Keys

const (
	StateKeyAccessToken        = "access_token"
	StateKeyRefreshToken       = "refresh_token"
	StateKeyExpiresAt          = "expires_at"
	StateKeyRefreshExpiresAt   = "refresh_token_expires_at"
	StateKeyUser               = "user"
	StateKeyOriginalAdminState = "original_admin_session"
)

// # Headers

const (
	HeaderAuthorization = "Authorization"
	HeaderXRequestID    = "X-Request-ID"
	HeaderContentType   = "Content-Type"
)

// # JSON Field Identifiers

const (
	FieldData    = "data"
	FieldMeta    = "meta"
	FieldError   = "error"
	FieldCode    = "code"
	FieldDetails = "details"
	FieldMessage = "message"
	FieldTitle   = "title"
	FieldStatus  = "status"
)
