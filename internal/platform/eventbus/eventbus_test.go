// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

package eventbus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carvia/carvia-go/internal/platform/eventbus"
)

/*
TestBus_PublishSubscribe verifies payload delivery to a registered handler.
*/
func TestBus_PublishSubscribe(t *testing.T) {
	bus := eventbus.New()

	var got []any
	bus.Subscribe(eventbus.TopicMessageReceived, func(payload any) {
		got = append(got, payload)
	})

	bus.Publish(eventbus.TopicMessageReceived, "hello")
	bus.Publish(eventbus.TopicMessageReceived, 42)

	assert.Equal(t, []any{"hello", 42}, got)
}

/*
TestBus_ZeroListeners verifies fire-and-forget: publishing without
subscribers must not panic or block.
*/
func TestBus_ZeroListeners(t *testing.T) {
	bus := eventbus.New()

	assert.NotPanics(t, func() {
		bus.Publish(eventbus.TopicFriendRemoved, nil)
	})
}

/*
TestBus_Unsubscribe verifies removal stops delivery and is idempotent.
*/
func TestBus_Unsubscribe(t *testing.T) {
	bus := eventbus.New()

	calls := 0
	sub := bus.Subscribe(eventbus.TopicAuthStateChanged, func(any) { calls++ })

	bus.Publish(eventbus.TopicAuthStateChanged, nil)
	bus.Unsubscribe(sub)
	bus.Publish(eventbus.TopicAuthStateChanged, nil)

	// Second unsubscribe is harmless.
	bus.Unsubscribe(sub)

	assert.Equal(t, 1, calls)
}

/*
TestBus_TopicsAreIsolated verifies handlers only see their own topic.
*/
func TestBus_TopicsAreIsolated(t *testing.T) {
	bus := eventbus.New()

	friendEvents := 0
	chatEvents := 0
	bus.Subscribe(eventbus.TopicFriendRequestSent, func(any) { friendEvents++ })
	bus.Subscribe(eventbus.TopicMessageReceived, func(any) { chatEvents++ })

	bus.Publish(eventbus.TopicFriendRequestSent, nil)

	assert.Equal(t, 1, friendEvents)
	assert.Equal(t, 0, chatEvents)
}
