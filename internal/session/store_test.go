// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carvia/carvia-go/internal/platform/eventbus"
	"github.com/carvia/carvia-go/internal/platform/sec"
	"github.com/carvia/carvia-go/internal/platform/storage"
	"github.com/carvia/carvia-go/internal/session"
)

func newStore(t *testing.T) (*session.Store, *eventbus.Bus) {
	t.Helper()
	bus := eventbus.New()
	return session.NewStore(storage.Open(t.TempDir(), nil), bus, nil), bus
}

func sampleSession(expiresIn time.Duration) *session.Session {
	return &session.Session{
		AccessToken:           "access-token",
		RefreshToken:          "refresh-token",
		ExpiresAt:             time.Now().Add(expiresIn),
		RefreshTokenExpiresAt: time.Now().Add(24 * time.Hour),
		User: &session.User{
			ID:       "u1",
			Username: "driver",
			Role:     sec.RoleMember,
		},
	}
}

/*
TestStore_Validity pins the validity predicate: token present AND
now < expiresAt, with timestamps before, at, and after expiry.
*/
func TestStore_Validity(t *testing.T) {
	tests := []struct {
		name    string
		session *session.Session
		valid   bool
	}{
		{"future_expiry", sampleSession(time.Hour), true},
		{"past_expiry", sampleSession(-time.Hour), false},
		{"at_expiry", sampleSession(0), false},
		{"missing_token", &session.Session{ExpiresAt: time.Now().Add(time.Hour)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newStore(t)
			store.Store(tt.session)
			assert.Equal(t, tt.valid, store.IsValid())
		})
	}

	t.Run("nothing_stored", func(t *testing.T) {
		store, _ := newStore(t)
		assert.False(t, store.IsValid())
	})
}

/*
TestStore_RoundTrip verifies Store then Read preserves every field.
*/
func TestStore_RoundTrip(t *testing.T) {
	store, _ := newStore(t)
	original := sampleSession(time.Hour)

	store.Store(original)
	got := store.Read()

	require.NotNil(t, got)
	assert.Equal(t, original.AccessToken, got.AccessToken)
	assert.Equal(t, original.RefreshToken, got.RefreshToken)
	assert.WithinDuration(t, original.ExpiresAt, got.ExpiresAt, time.Millisecond)
	require.NotNil(t, got.User)
	assert.Equal(t, "driver", got.User.Username)
}

/*
TestStore_ClearThenReadAbsent: clear() then read() yields absent, for any
prior stored session, and clearing twice stays harmless.
*/
func TestStore_ClearThenReadAbsent(t *testing.T) {
	store, _ := newStore(t)
	store.Store(sampleSession(time.Hour))

	store.Clear()
	assert.Nil(t, store.Read())
	assert.False(t, store.IsValid())

	// Idempotent.
	store.Clear()
	assert.Nil(t, store.Read())
}

/*
TestStore_Broadcasts verifies Store and Clear each publish auth-changed and
user-updated exactly once.
*/
func TestStore_Broadcasts(t *testing.T) {
	store, bus := newStore(t)

	authEvents, userEvents := 0, 0
	bus.Subscribe(eventbus.TopicAuthStateChanged, func(any) { authEvents++ })
	bus.Subscribe(eventbus.TopicUserDataUpdated, func(any) { userEvents++ })

	store.Store(sampleSession(time.Hour))
	assert.Equal(t, 1, authEvents)
	assert.Equal(t, 1, userEvents)

	store.Clear()
	assert.Equal(t, 2, authEvents)
	assert.Equal(t, 2, userEvents)
}

/*
TestStore_ImpersonationRoundTrip: beginImpersonation(A, B) followed by
endImpersonation() restores a session deep-equal to A; a second call
returns false because no snapshot is left.
*/
func TestStore_ImpersonationRoundTrip(t *testing.T) {
	store, bus := newStore(t)

	stopped := 0
	bus.Subscribe(eventbus.TopicImpersonationStopped, func(any) { stopped++ })

	admin := sampleSession(time.Hour)
	admin.User.ID = "admin-1"
	admin.User.Role = sec.RoleAdmin

	target := sampleSession(time.Hour)
	target.AccessToken = "target-token"
	target.User.ID = "member-9"

	store.Store(admin)
	store.BeginImpersonation(admin, target)

	// While impersonating, the active session belongs to the target.
	assert.True(t, store.IsImpersonating())
	assert.Equal(t, "member-9", store.Read().User.ID)

	// Restore: the active session is deep-equal to the admin's.
	require.True(t, store.EndImpersonation())
	restored := store.Read()
	assert.Equal(t, admin.AccessToken, restored.AccessToken)
	assert.Equal(t, "admin-1", restored.User.ID)
	assert.WithinDuration(t, admin.ExpiresAt, restored.ExpiresAt, time.Millisecond)

	// Exactly one of {impersonating, not impersonating} after return.
	assert.False(t, store.IsImpersonating())
	assert.Equal(t, 1, stopped)

	// No snapshot left: a second end fails.
	assert.False(t, store.EndImpersonation())
	assert.Equal(t, 1, stopped)
}

/*
TestStore_UnavailableStorageNeverPanics verifies the SSR-context analog:
with no usable storage every operation is a no-op returning absent/false.
*/
func TestStore_UnavailableStorageNeverPanics(t *testing.T) {
	bus := eventbus.New()
	store := session.NewStore(storage.Open("", nil), bus, nil)

	store.Store(sampleSession(time.Hour))
	assert.Nil(t, store.Read())
	assert.False(t, store.IsValid())
	assert.False(t, store.EndImpersonation())
	store.Clear()
}
