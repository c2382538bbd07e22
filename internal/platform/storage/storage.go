// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

/*
Package storage implements the persisted client state: a small key-value file
playing the role browser localStorage plays for the web client.

Architecture:

  - KV: An in-memory map mirrored to a single JSON file.
  - Atomicity: Every mutation rewrites the file via temp-file + rename, so a
    crash never leaves a half-written state file.
  - Unavailability: When the backing directory cannot be used (read-only
    filesystem, missing home), every operation degrades to a silent no-op and
    reads return absent. Callers never see an error from this package.

Reads are synchronous from memory; the file is only consulted once at
construction time.
*/
package storage

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

const stateFileName = "state.json"

// KV is the persisted key-value store backing the session layer.
//
// # Concurrency
//
// KV is safe for concurrent use. Writes are serialized; reads share a lock
// with writers because both touch the in-memory map only.
type KV struct {
	mu sync.RWMutex

	path      string
	available bool
	values    map[string]string

	logger *slog.Logger
}

// Open loads (or creates) the state file under dir.
//
// An unusable dir yields an unavailable store, never an error: the client
// still works, it just cannot remember the session across restarts.
func Open(dir string, logger *slog.Logger) *KV {
	if logger == nil {
		logger = slog.Default()
	}

	kv := &KV{
		values: make(map[string]string),
		logger: logger,
	}

	if dir == "" {
		logger.Warn("storage_unavailable", slog.String("reason", "no state directory"))
		return kv
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		logger.Warn("storage_unavailable", slog.String("reason", err.Error()))
		return kv
	}

	kv.path = filepath.Join(dir, stateFileName)
	kv.available = true

	raw, err := os.ReadFile(kv.path)
	if err != nil {
		// Missing file is the fresh-install case, anything else is logged
		// and treated as an empty store.
		if !os.IsNotExist(err) {
			logger.Warn("storage_read_failed", slog.String("error", err.Error()))
		}
		return kv
	}

	if err := json.Unmarshal(raw, &kv.values); err != nil {
		logger.Warn("storage_corrupt_state_discarded", slog.String("error", err.Error()))
		kv.values = make(map[string]string)
	}

	return kv
}

// Available reports whether the store persists across restarts.
func (kv *KV) Available() bool {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	return kv.available
}

// Get returns the stored value and whether the key is present.
func (kv *KV) Get(key string) (string, bool) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()

	value, ok := kv.values[key]
	return value, ok
}

// Set stores a single key. No-op when the store is unavailable.
func (kv *KV) Set(key, value string) {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	if !kv.available {
		return
	}

	kv.values[key] = value
	kv.persistLocked()
}

// SetAll stores every entry in one persist pass, so a multi-field write (a
// whole session) reaches the file as a unit.
func (kv *KV) SetAll(entries map[string]string) {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	if !kv.available {
		return
	}

	for key, value := range entries {
		kv.values[key] = value
	}
	kv.persistLocked()
}

// Delete removes the given keys in one persist pass. Idempotent.
func (kv *KV) Delete(keys ...string) {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	if !kv.available {
		return
	}

	for _, key := range keys {
		delete(kv.values, key)
	}
	kv.persistLocked()
}

// persistLocked writes the map to disk atomically. Callers hold kv.mu.
func (kv *KV) persistLocked() {
	raw, err := json.MarshalIndent(kv.values, "", "  ")
	if err != nil {
		kv.logger.Warn("storage_marshal_failed", slog.String("error", err.Error()))
		return
	}

	// Temp file + rename keeps the visible file whole at all times.
	tmp := kv.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		kv.logger.Warn("storage_write_failed", slog.String("error", err.Error()))
		return
	}

	if err := os.Rename(tmp, kv.path); err != nil {
		kv.logger.Warn("storage_rename_failed", slog.String("error", err.Error()))
	}
}
