// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

/*
Package session implements the client's session store: the single owner of
the persisted tokens, the signed-in user profile, and the admin
impersonation snapshot.

It defines the core domain entities (User, Session) and the lifecycle rules
around them.

# Architecture

This layer is the "Truth" of the client. Every other component treats its own
copy of the session as a cache invalidated by the auth-changed and
user-updated broadcasts; only this package writes the durable state.
*/
package session

import (
	"encoding/json"
	"time"

	"github.com/carvia/carvia-go/internal/platform/sec"
)

// # Domain Entities

// User represents the signed-in member of the Carvia platform.
type User struct {
	ID           string       `json:"id"`
	Username     string       `json:"username"`
	Email        string       `json:"email"`
	DisplayName  string       `json:"display_name"`
	AvatarURL    string       `json:"avatar_url,omitempty"`
	Role         sec.UserRole `json:"role"`
	DealershipID string       `json:"dealership_id,omitempty"`
}

// Session is the bundle of tokens, expiry, and profile identifying the
// current authenticated actor.
//
// # Lifecycle
//
// Created on login/registration, replaced wholesale on refresh or
// impersonation, destroyed on logout. There is no partial mutation: tokens
// are always replaced as a unit.
type Session struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	ExpiresAt             time.Time `json:"expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	User                  *User     `json:"user,omitempty"`
}

// Valid reports whether the session can authenticate a call right now:
// a token is present AND the expiry lies in the future. Purely client-side —
// a server-side revoked token is only discovered when a call fails.
func (s *Session) Valid(now time.Time) bool {
	if s == nil || s.AccessToken == "" {
		return false
	}
	return now.Before(s.ExpiresAt)
}

// encodeUser serializes the profile for the state file. A nil user is stored
// as an absent key, not "null".
func encodeUser(user *User) (string, bool) {
	if user == nil {
		return "", false
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return "", false
	}
	return string(raw), true
}

// decodeUser deserializes a stored profile, tolerating absence.
func decodeUser(raw string, ok bool) *User {
	if !ok || raw == "" {
		return nil
	}
	user := &User{}
	if err := json.Unmarshal([]byte(raw), user); err != nil {
		return nil
	}
	return user
}
