// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

// Package sec provides token inspection and role primitives for the client.
//
// # Architecture
//
// The client never signs or verifies tokens — signature verification is the
// server's job. What the client does need is a safe way to look inside its own
// access token for scheduling decisions (expiry) and identity display
// (user id, role) when the login payload omits them.
package sec

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims represents the payload embedded inside a JWT access token.
//
// Custom application claims are abbreviated to keep the JWT payload small.
type AuthClaims struct {
	jwt.RegisteredClaims

	UserID   string `json:"uid"`
	Username string `json:"unm"`
	Role     string `json:"rol"`
}

// PeekClaims decodes the claims of an access token WITHOUT verifying its
// signature.
//
// # Why unverified?
//
// The token was handed to us by the server over TLS; we are not making an
// authorization decision, only reading metadata the server put there for our
// benefit. A forged token would simply be rejected by the server on the next
// call.
func PeekClaims(accessToken string) (*AuthClaims, error) {
	claims := &AuthClaims{}

	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return nil, fmt.Errorf("sec_peek_claims_failed: %w", err)
	}

	return claims, nil
}

// TokenExpiry returns the 'exp' claim of an access token.
// The zero time is returned when the token is malformed or carries no expiry.
func TokenExpiry(accessToken string) time.Time {
	claims, err := PeekClaims(accessToken)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
