// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carvia/carvia-go/internal/platform/storage"
)

/*
TestKV_RoundTrip verifies values survive a close/reopen cycle.
*/
func TestKV_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	kv := storage.Open(dir, nil)
	require.True(t, kv.Available())

	kv.Set("access_token", "abc")
	kv.SetAll(map[string]string{
		"refresh_token": "def",
		"user":          `{"id":"u1"}`,
	})

	// Reopen from disk: a fresh instance must see every value.
	reopened := storage.Open(dir, nil)

	got, ok := reopened.Get("access_token")
	assert.True(t, ok)
	assert.Equal(t, "abc", got)

	got, ok = reopened.Get("refresh_token")
	assert.True(t, ok)
	assert.Equal(t, "def", got)
}

/*
TestKV_Delete verifies multi-key deletion and idempotency.
*/
func TestKV_Delete(t *testing.T) {
	kv := storage.Open(t.TempDir(), nil)

	kv.Set("a", "1")
	kv.Set("b", "2")

	kv.Delete("a", "b", "never-existed")

	_, ok := kv.Get("a")
	assert.False(t, ok)
	_, ok = kv.Get("b")
	assert.False(t, ok)

	// Deleting again is harmless.
	kv.Delete("a")
}

/*
TestKV_Unavailable verifies the no-op contract when no directory is usable.
*/
func TestKV_Unavailable(t *testing.T) {
	kv := storage.Open("", nil)

	assert.False(t, kv.Available())

	// All operations are silent no-ops, reads come back absent.
	kv.Set("k", "v")
	kv.SetAll(map[string]string{"x": "y"})
	kv.Delete("k")

	_, ok := kv.Get("k")
	assert.False(t, ok)
}
