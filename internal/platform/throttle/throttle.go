// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

/*
Package throttle implements the refetch coalescing policy for realtime-driven
background reconciliation.

When a burst of push events arrives (several messages delivered together, a
flurry of friend-request updates), re-fetching the affected list once per
event would hammer the backend. A [Refetcher] collapses every trigger inside
a fixed window into a single trailing execution.

The refetches driven through this package are background reconciliations:
they never flip a loading flag, so the user never sees a spinner for them.
*/
package throttle

import (
	"sync"
	"time"
)

// Refetcher coalesces triggers into at most one execution per window.
//
// # Policy
//
// A trigger arriving at least one window after the last execution runs
// immediately, on the caller's goroutine. A trigger inside the window
// schedules one deferred execution for the remainder of the window; further
// triggers while one is scheduled collapse into it. The window starts closed:
// construction counts as an execution, because the owning service has just
// loaded its initial snapshot.
type Refetcher struct {
	mu sync.Mutex

	window  time.Duration
	execute func()

	lastRun time.Time
	timer   *time.Timer
	stopped bool
}

// New constructs a Refetcher around the given refetch function.
func New(window time.Duration, execute func()) *Refetcher {
	return &Refetcher{
		window:  window,
		execute: execute,
		lastRun: time.Now(),
	}
}

// Trigger records a qualifying event and runs or schedules the refetch per
// the coalescing policy.
func (r *Refetcher) Trigger() {
	r.mu.Lock()

	if r.stopped {
		r.mu.Unlock()
		return
	}

	// A deferred run is already pending; this trigger collapses into it.
	if r.timer != nil {
		r.mu.Unlock()
		return
	}

	elapsed := time.Since(r.lastRun)
	if elapsed >= r.window {
		r.lastRun = time.Now()
		r.mu.Unlock()
		r.execute()
		return
	}

	r.timer = time.AfterFunc(r.window-elapsed, r.fire)
	r.mu.Unlock()
}

// fire runs a previously scheduled deferred refetch.
func (r *Refetcher) fire() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.timer = nil
	r.lastRun = time.Now()
	r.mu.Unlock()

	r.execute()
}

// Stop cancels any pending deferred refetch and disables the Refetcher.
// Safe to call more than once; used for unmount-time cleanup.
func (r *Refetcher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopped = true
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
