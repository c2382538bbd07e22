// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

/*
Package collection provides the shared state container behind every
data-access service: a list of items plus the (loading, error) pair the
presentation layer renders from.

Architecture:

  - Store: One instance per fetched collection (listings, friends,
    conversations, ...). Holds the best-effort local mirror of server state.
  - Optimistic patching: Mutations patch the mirror in place (prepend,
    replace-by-id, remove-by-id) instead of forcing a full refetch; the mirror
    is fully reconciled only on the next snapshot load.
  - Identity: Items are recognized by primary-key identity alone. An item
    already present by id is never re-inserted.

Overlapping operations against the same Store are intentionally not
de-duplicated: whichever finishes last wins the final state. This mirrors the
behavior the backend's consumers already depend on.
*/
package collection

import (
	"sync"

	"github.com/carvia/carvia-go/pkg/slice"
)

// Snapshot is the render-ready view of a Store.
type Snapshot[T any] struct {
	Items   []T
	Loading bool
	// Err is the display message of the last failure, "" when clear.
	Err string
}

// Store holds one collection plus its loading/error state.
//
// # Concurrency
//
// Store is safe for concurrent use.
type Store[T any] struct {
	mu sync.RWMutex

	items   []T
	loading bool
	err     string

	// identity extracts the primary key used for patch-by-id operations.
	identity func(T) string
}

// NewStore constructs an empty Store keyed by the given identity function.
func NewStore[T any](identity func(T) string) *Store[T] {
	if identity == nil {
		panic("collection: identity function must not be nil")
	}
	return &Store[T]{identity: identity}
}

// # Fetch Lifecycle

// Begin marks a user-initiated fetch: loading on, previous error cleared.
// Background reconciliations skip Begin so no spinner appears.
func (store *Store[T]) Begin() {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.loading = true
	store.err = ""
}

// Fail records a failure message and ends the loading state.
func (store *Store[T]) Fail(message string) {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.loading = false
	store.err = message
}

// SetItems replaces the mirror wholesale with a fresh snapshot.
func (store *Store[T]) SetItems(items []T) {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.items = items
	store.loading = false
	store.err = ""
}

// ClearError dismisses the current error message, e.g. on the next user
// action in a form.
func (store *Store[T]) ClearError() {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.err = ""
}

// # Optimistic Patching

// Prepend inserts a freshly created item at the head of the list, unless an
// item with the same id is already present.
func (store *Store[T]) Prepend(item T) {
	store.mu.Lock()
	defer store.mu.Unlock()

	id := store.identity(item)
	for _, existing := range store.items {
		if store.identity(existing) == id {
			return
		}
	}

	store.items = append([]T{item}, store.items...)
}

// Upsert replaces the item with the same id, or appends when absent.
func (store *Store[T]) Upsert(item T) {
	store.mu.Lock()
	defer store.mu.Unlock()

	id := store.identity(item)
	for i, existing := range store.items {
		if store.identity(existing) == id {
			store.items[i] = item
			return
		}
	}

	store.items = append(store.items, item)
}

// RemoveByID filters out the item with the given id. No-op when absent.
func (store *Store[T]) RemoveByID(id string) {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.items = slice.Filter(store.items, func(existing T) bool {
		return store.identity(existing) != id
	})
}

// Patch applies an arbitrary in-place transformation to every item.
// Used for field-level updates such as zeroing an unread counter.
func (store *Store[T]) Patch(transform func(T) T) {
	store.mu.Lock()
	defer store.mu.Unlock()

	for i, existing := range store.items {
		store.items[i] = transform(existing)
	}
}

// # Reads

// Snapshot returns a copy of the current render state.
func (store *Store[T]) Snapshot() Snapshot[T] {
	store.mu.RLock()
	defer store.mu.RUnlock()

	items := make([]T, len(store.items))
	copy(items, store.items)

	return Snapshot[T]{
		Items:   items,
		Loading: store.loading,
		Err:     store.err,
	}
}

// Find returns the item with the given id.
func (store *Store[T]) Find(id string) (T, bool) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	for _, existing := range store.items {
		if store.identity(existing) == id {
			return existing, true
		}
	}

	var zero T
	return zero, false
}

// Len returns the current item count.
func (store *Store[T]) Len() int {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return len(store.items)
}
