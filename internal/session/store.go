// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

package session

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/carvia/carvia-go/internal/platform/constants"
	"github.com/carvia/carvia-go/internal/platform/eventbus"
	"github.com/carvia/carvia-go/internal/platform/sec"
	"github.com/carvia/carvia-go/internal/platform/storage"
)

// Store is the sole writer of session state in durable storage.
//
// # Concurrency
//
// Store is safe for concurrent use. Reads are synchronous against the
// storage layer's in-memory mirror; the mutex only serializes the
// impersonation transitions, which must be indivisible for observers.
type Store struct {
	mu sync.Mutex

	kv     *storage.KV
	bus    *eventbus.Bus
	logger *slog.Logger
}

// NewStore constructs a session Store over the persisted state file.
func NewStore(kv *storage.KV, bus *eventbus.Bus, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: kv, bus: bus, logger: logger}
}

// # Session Lifecycle

/*
Store persists a session wholesale, overwriting any prior one, then
broadcasts auth-changed and user-updated so cached copies invalidate.

Description: All five fields reach the state file in a single persist pass.
A session arriving without an explicit expiry gets one from the 'exp' claim
inside its access token.

Parameters:
  - current: *Session

Returns: nothing. Storage unavailability is a silent no-op by contract.
*/
func (store *Store) Store(current *Session) {
	if current == nil {
		return
	}

	// Fallback: derive expiry from the JWT when the payload omitted it.
	if current.ExpiresAt.IsZero() {
		current.ExpiresAt = sec.TokenExpiry(current.AccessToken)
	}

	entries := map[string]string{
		constants.StateKeyAccessToken:      current.AccessToken,
		constants.StateKeyRefreshToken:     current.RefreshToken,
		constants.StateKeyExpiresAt:        current.ExpiresAt.UTC().Format(time.RFC3339Nano),
		constants.StateKeyRefreshExpiresAt: current.RefreshTokenExpiresAt.UTC().Format(time.RFC3339Nano),
	}
	if raw, ok := encodeUser(current.User); ok {
		entries[constants.StateKeyUser] = raw
	}

	store.kv.SetAll(entries)

	store.bus.Publish(eventbus.TopicAuthStateChanged, nil)
	store.bus.Publish(eventbus.TopicUserDataUpdated, current.User)
}

// Read returns the last stored session, or nil when none exists.
// Expiry is NOT validated here; use [Store.IsValid] for gating.
func (store *Store) Read() *Session {
	token, ok := store.kv.Get(constants.StateKeyAccessToken)
	if !ok || token == "" {
		return nil
	}

	current := &Session{
		AccessToken: token,
		User:        decodeUser(store.kv.Get(constants.StateKeyUser)),
	}
	current.RefreshToken, _ = store.kv.Get(constants.StateKeyRefreshToken)
	current.ExpiresAt = readTime(store.kv, constants.StateKeyExpiresAt)
	current.RefreshTokenExpiresAt = readTime(store.kv, constants.StateKeyRefreshExpiresAt)

	return current
}

// IsValid is the sole gate every component checks before attempting a REST
// or realtime call. No network round-trip is involved.
func (store *Store) IsValid() bool {
	return store.Read().Valid(time.Now())
}

// CurrentUser returns the stored profile, or nil when signed out.
func (store *Store) CurrentUser() *User {
	current := store.Read()
	if current == nil {
		return nil
	}
	return current.User
}

// Clear deletes the whole session plus any impersonation snapshot, then
// broadcasts the same two events as Store. Idempotent.
func (store *Store) Clear() {
	store.kv.Delete(
		constants.StateKeyAccessToken,
		constants.StateKeyRefreshToken,
		constants.StateKeyExpiresAt,
		constants.StateKeyRefreshExpiresAt,
		constants.StateKeyUser,
		constants.StateKeyOriginalAdminState,
	)

	store.bus.Publish(eventbus.TopicAuthStateChanged, nil)
	store.bus.Publish(eventbus.TopicUserDataUpdated, (*User)(nil))
}

// # Impersonation

/*
BeginImpersonation saves the admin's own session under a separate key, then
stores the target session as the active one.

Description: Deliberately two-step. If the process dies between the steps the
snapshot exists without an active impersonation, which is recoverable: the
caller detects the orphan via [Store.IsImpersonating] and re-attempts Store.

Parameters:
  - savedAdmin: *Session (the admin's own session to restore later)
  - target: *Session (the user being impersonated)
*/
func (store *Store) BeginImpersonation(savedAdmin, target *Session) {
	store.mu.Lock()
	defer store.mu.Unlock()

	raw, err := json.Marshal(savedAdmin)
	if err != nil {
		store.logger.Warn("impersonation_snapshot_encode_failed", slog.String("error", err.Error()))
		return
	}

	store.kv.Set(constants.StateKeyOriginalAdminState, string(raw))
	store.Store(target)
}

/*
EndImpersonation restores the saved admin session and deletes the snapshot.

Description: Atomic from the caller's perspective — after this returns the
client is in exactly one of {impersonating, not impersonating}; no observer
sees both the snapshot and an active non-impersonated session persist.

Returns:
  - bool: false when no snapshot exists (not impersonating), true on restore
*/
func (store *Store) EndImpersonation() bool {
	store.mu.Lock()
	defer store.mu.Unlock()

	raw, ok := store.kv.Get(constants.StateKeyOriginalAdminState)
	if !ok {
		return false
	}

	saved := &Session{}
	if err := json.Unmarshal([]byte(raw), saved); err != nil {
		store.logger.Warn("impersonation_snapshot_corrupt", slog.String("error", err.Error()))
		store.kv.Delete(constants.StateKeyOriginalAdminState)
		return false
	}

	store.Store(saved)
	store.kv.Delete(constants.StateKeyOriginalAdminState)

	store.bus.Publish(eventbus.TopicImpersonationStopped, saved.User)
	return true
}

// IsImpersonating reports whether an admin snapshot is currently saved.
func (store *Store) IsImpersonating() bool {
	_, ok := store.kv.Get(constants.StateKeyOriginalAdminState)
	return ok
}

// # Token Source

// AccessToken implements the REST layer's TokenSource: the interceptor
// attaches whatever token is stored, and the server remains the authority on
// whether it still works.
func (store *Store) AccessToken() (string, bool) {
	token, ok := store.kv.Get(constants.StateKeyAccessToken)
	return token, ok && token != ""
}

// readTime parses a stored RFC3339 timestamp, zero time when absent/garbled.
func readTime(kv *storage.KV, key string) time.Time {
	raw, ok := kv.Get(key)
	if !ok {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
