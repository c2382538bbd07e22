// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

package realtime

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/carvia/carvia-go/internal/platform/eventbus"
)

// Friend hub event names, fixed by the server contract. The friend hub is
// push-only: every mutation goes through REST, the hub just notifies.
const (
	friendEventRequestReceived  = "FriendRequestReceived"
	friendEventRequestAccepted  = "FriendRequestAccepted"
	friendEventRequestRejected  = "FriendRequestRejected"
	friendEventRequestCancelled = "FriendRequestCancelled"
	friendEventFriendRemoved    = "FriendRemoved"
)

// FriendEvent is the hub's wire shape for a friend-graph notification.
type FriendEvent struct {
	RequestID   string `json:"requestId,omitempty"`
	RequesterID string `json:"requesterId,omitempty"`
	AddresseeID string `json:"addresseeId,omitempty"`
	UserID      string `json:"userId,omitempty"`
}

// FriendHub bridges friend-graph push notifications onto the event bus.
// Consumers react by refetching; push payloads never patch local state
// directly (they are hints, not authoritative snapshots).
type FriendHub struct {
	client *Client
	bus    *eventbus.Bus
	logger *slog.Logger
}

// NewFriendHub wires a hub client for the friends endpoint and registers the
// event-to-bus bridge.
func NewFriendHub(hubURL string, tokens TokenSource, bus *eventbus.Bus, logger *slog.Logger) *FriendHub {
	if logger == nil {
		logger = slog.Default()
	}

	hub := &FriendHub{
		client: NewClient("friends", hubURL, tokens, logger),
		bus:    bus,
		logger: logger,
	}

	hub.client.On(friendEventRequestReceived, hub.republish(eventbus.TopicFriendRequestSent))
	hub.client.On(friendEventRequestAccepted, hub.republish(eventbus.TopicMessageRequestAccepted))
	hub.client.On(friendEventRequestRejected, hub.republish(eventbus.TopicFriendRequestRejected))
	// A cancelled request disappears from the pending list exactly like a
	// rejected one; both land on the rejected topic.
	hub.client.On(friendEventRequestCancelled, hub.republish(eventbus.TopicFriendRequestRejected))
	hub.client.On(friendEventFriendRemoved, hub.republish(eventbus.TopicFriendRemoved))

	return hub
}

// Connect opens the friends connection; no-op without a session.
func (hub *FriendHub) Connect(ctx context.Context) error {
	return hub.client.Connect(ctx)
}

// Disconnect closes the connection and stops reconnecting. Idempotent.
func (hub *FriendHub) Disconnect() {
	hub.client.Disconnect()
}

// State exposes the underlying connection state.
func (hub *FriendHub) State() State {
	return hub.client.State()
}

// OnError registers the optional hub-failure callback.
func (hub *FriendHub) OnError(callback func(error)) {
	hub.client.OnError(callback)
}

// republish builds a handler decoding the event payload and forwarding it to
// the bus under the given topic.
func (hub *FriendHub) republish(topic eventbus.Topic) Handler {
	return func(arguments []json.RawMessage) {
		var event FriendEvent
		if len(arguments) > 0 {
			if err := json.Unmarshal(arguments[0], &event); err != nil {
				hub.logger.Warn("friend_event_decode_failed", slog.String("error", err.Error()))
				return
			}
		}
		hub.bus.Publish(topic, event)
	}
}
