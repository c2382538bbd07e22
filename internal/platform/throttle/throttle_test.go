// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

package throttle_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/carvia/carvia-go/internal/platform/throttle"
)

/*
TestRefetcher_BurstCoalesces verifies the core contract: five triggers inside
the window produce exactly one refetch, issued once the window elapses.
*/
func TestRefetcher_BurstCoalesces(t *testing.T) {
	var calls atomic.Int32
	r := throttle.New(500*time.Millisecond, func() { calls.Add(1) })
	defer r.Stop()

	// 5 events within ~100ms.
	for i := 0; i < 5; i++ {
		r.Trigger()
		time.Sleep(20 * time.Millisecond)
	}

	// Nothing may have run yet: the window is still open.
	assert.Equal(t, int32(0), calls.Load())

	// After the window closes, exactly one deferred refetch has run.
	assert.Eventually(t, func() bool {
		return calls.Load() == 1
	}, time.Second, 10*time.Millisecond)

	// And it stays at one.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

/*
TestRefetcher_QuietPeriodRunsImmediately verifies a trigger arriving after a
full quiet window executes synchronously.
*/
func TestRefetcher_QuietPeriodRunsImmediately(t *testing.T) {
	var calls atomic.Int32
	r := throttle.New(50*time.Millisecond, func() { calls.Add(1) })
	defer r.Stop()

	time.Sleep(80 * time.Millisecond)
	r.Trigger()

	// Immediate path, no timer involved.
	assert.Equal(t, int32(1), calls.Load())
}

/*
TestRefetcher_StopCancelsPending verifies unmount-time cleanup: a scheduled
refetch never fires after Stop.
*/
func TestRefetcher_StopCancelsPending(t *testing.T) {
	var calls atomic.Int32
	r := throttle.New(100*time.Millisecond, func() { calls.Add(1) })

	r.Trigger() // scheduled, window still open from construction
	r.Stop()

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())

	// Triggers after Stop are ignored.
	r.Trigger()
	assert.Equal(t, int32(0), calls.Load())
}
