// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

/*
Package eventbus implements the client-wide publish/subscribe channel that
decouples the session store, the realtime hubs, and the data-access services.

The browser client broadcast these signals as window events; here the bus is
an explicit injectable value passed by constructor to every component that
needs it, which preserves the decoupling without ambient globals.

Architecture:

  - Topics: A closed set of cross-cutting signal names.
  - Payloads: Opaque to the bus; subscribers assert the concrete type.
  - Delivery: Fire-and-forget, synchronous on the publisher's goroutine.
    Zero subscribers is fine; handlers must tolerate repeated delivery.
*/
package eventbus

import (
	"sync"

	"github.com/google/uuid"
)

// # Topics

// Topic names the cross-cutting signals carried by the bus. This is the
// complete set; components must not invent ad hoc topics.
type Topic string

const (
	// Session lifecycle.
	TopicAuthStateChanged     Topic = "auth_state_changed"
	TopicUserDataUpdated      Topic = "user_data_updated"
	TopicImpersonationStopped Topic = "impersonation_stopped"

	// Friend graph.
	TopicFriendRemoved         Topic = "friend_removed"
	TopicFriendRequestSent     Topic = "friend_request_sent"
	TopicFriendRequestRejected Topic = "friend_request_rejected"

	// Messaging.
	TopicMessageReceived        Topic = "message_received"
	TopicMessagesMarkedRead     Topic = "messages_marked_read"
	TopicMessageRequestAccepted Topic = "message_request_accepted"
)

// # Bus

// Handler receives a published payload. Payloads are opaque at the bus level.
type Handler func(payload any)

// Subscription identifies one registered handler for later removal.
type Subscription struct {
	topic Topic
	id    string
}

// Bus is the in-process publish/subscribe hub.
//
// # Concurrency
//
// Bus is safe for concurrent use. Handlers run synchronously on the
// publishing goroutine; long-running subscribers should hand off internally.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Topic]map[string]Handler
}

// New constructs an empty Bus.
func New() *Bus {
	return &Bus{
		handlers: make(map[Topic]map[string]Handler),
	}
}

// Subscribe registers a handler for a topic and returns its Subscription.
func (bus *Bus) Subscribe(topic Topic, handler Handler) Subscription {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	id := uuid.NewString()
	if bus.handlers[topic] == nil {
		bus.handlers[topic] = make(map[string]Handler)
	}
	bus.handlers[topic][id] = handler

	return Subscription{topic: topic, id: id}
}

// Unsubscribe removes a previously registered handler. Idempotent.
func (bus *Bus) Unsubscribe(sub Subscription) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	delete(bus.handlers[sub.topic], sub.id)
}

// Publish delivers the payload to every current subscriber of the topic.
// Fire-and-forget: no subscribers means the event simply evaporates.
func (bus *Bus) Publish(topic Topic, payload any) {
	bus.mu.RLock()
	registered := make([]Handler, 0, len(bus.handlers[topic]))
	for _, handler := range bus.handlers[topic] {
		registered = append(registered, handler)
	}
	bus.mu.RUnlock()

	// Deliver outside the lock so a handler may subscribe/unsubscribe.
	for _, handler := range registered {
		handler(payload)
	}
}
