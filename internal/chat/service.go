// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

/*
Package chat implements the direct-messaging surface: the conversation list
and the send/mark-read operations.

Conversations are a derived view keyed by counterpart user id, rebuilt
wholesale from REST snapshots. Push events from the chat hub never patch a
conversation directly — they only schedule a throttled background refetch, so
the mirror can lag the server by at most one window but is never internally
inconsistent.
*/
package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/carvia/carvia-go/internal/api"
	"github.com/carvia/carvia-go/internal/platform/apperr"
	"github.com/carvia/carvia-go/internal/platform/collection"
	"github.com/carvia/carvia-go/internal/platform/constants"
	"github.com/carvia/carvia-go/internal/platform/eventbus"
	"github.com/carvia/carvia-go/internal/platform/throttle"
	"github.com/carvia/carvia-go/internal/platform/validate"
	"github.com/carvia/carvia-go/internal/realtime"
	"github.com/carvia/carvia-go/internal/session"
	"github.com/carvia/carvia-go/pkg/slice"
)

// Message is one direct message as the REST snapshot shape.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Content    string    `json:"content"`
	SentAt     time.Time `json:"sentAt"`
	IsRead     bool      `json:"isRead"`
}

// Conversation is the derived per-counterpart view the inbox renders.
type Conversation struct {
	CounterpartID string        `json:"counterpartId"`
	Counterpart   *session.User `json:"counterpart,omitempty"`
	LastMessage   *Message      `json:"lastMessage,omitempty"`
	UnreadCount   int           `json:"unreadCount"`
}

// Hub is the slice of the realtime chat client this service invokes.
// [realtime.ChatHub] satisfies it; tests substitute a recorder.
type Hub interface {
	SendMessage(ctx context.Context, receiverID, content string) error
	MarkAsRead(ctx context.Context, messageID string) error
}

// Service maintains the conversation mirror and routes sends through the hub.
type Service struct {
	api    *api.Client
	hub    Hub
	bus    *eventbus.Bus
	logger *slog.Logger

	Conversations *collection.Store[Conversation]

	refetch       *throttle.Refetcher
	subscriptions []eventbus.Subscription
}

// NewService constructs the chat Service and subscribes it to the messaging
// signals that drive background reconciliation.
func NewService(client *api.Client, hub Hub, bus *eventbus.Bus, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	service := &Service{
		api:    client,
		hub:    hub,
		bus:    bus,
		logger: logger,
		Conversations: collection.NewStore(func(conversation Conversation) string {
			return conversation.CounterpartID
		}),
	}
	service.refetch = throttle.New(constants.RefetchWindow, service.reconcile)

	trigger := func(any) { service.refetch.Trigger() }
	for _, topic := range []eventbus.Topic{
		eventbus.TopicMessageReceived,
		eventbus.TopicMessagesMarkedRead,
		eventbus.TopicMessageRequestAccepted,
	} {
		service.subscriptions = append(service.subscriptions, bus.Subscribe(topic, trigger))
	}

	return service
}

// Close detaches from the bus and cancels any pending refetch.
func (service *Service) Close() {
	service.refetch.Stop()
	for _, subscription := range service.subscriptions {
		service.bus.Unsubscribe(subscription)
	}
}

// # Fetches

// LoadConversations rebuilds the mirror from a REST snapshot.
// User-initiated: shows loading.
func (service *Service) LoadConversations(ctx context.Context) error {
	service.Conversations.Begin()

	var conversations []Conversation
	if err := service.api.Get(ctx, "/api/chat/conversations", nil, &conversations); err != nil {
		service.Conversations.Fail(apperr.Message(err))
		return err
	}

	service.Conversations.SetItems(conversations)
	return nil
}

// History fetches the full message thread with one counterpart. Threads are
// not mirrored; the conversation view refetches on demand.
func (service *Service) History(ctx context.Context, counterpartID string) ([]Message, error) {
	var messages []Message
	if err := service.api.Get(ctx, "/api/chat/conversations/"+counterpartID, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// reconcile is the throttled background rebuild behind push events: same
// snapshot, no loading flag, failures only logged.
func (service *Service) reconcile() {
	var conversations []Conversation
	if err := service.api.Get(context.Background(), "/api/chat/conversations", nil, &conversations); err != nil {
		service.logger.Warn("chat_reconcile_failed", slog.String("error", apperr.Message(err)))
		return
	}
	service.Conversations.SetItems(conversations)
}

// # Mutations

/*
Send delivers a message through the chat hub.

Description: Delivery is realtime-only and fail-fast — when the hub cannot be
reached the send reports failure immediately and nothing is queued. The
server echoes the persisted message back as a hub event, which drives the
refetch that surfaces it in the conversation list.
*/
func (service *Service) Send(ctx context.Context, receiverID, content string) error {
	v := &validate.Validator{}
	if err := v.
		Required("content", content).
		MaxLen("content", content, 4000).
		Err(); err != nil {
		return err
	}

	return service.hub.SendMessage(ctx, receiverID, content)
}

/*
MarkRead marks one received message as read and zeroes the counterpart's
unread count locally.

Description: The local patch makes the badge disappear instantly; the
authoritative count returns with the next snapshot.
*/
func (service *Service) MarkRead(ctx context.Context, counterpartID, messageID string) error {
	if err := service.hub.MarkAsRead(ctx, messageID); err != nil {
		return err
	}

	service.Conversations.Patch(func(conversation Conversation) Conversation {
		if conversation.CounterpartID == counterpartID {
			conversation.UnreadCount = 0
		}
		return conversation
	})
	return nil
}

// UnreadTotal sums the unread counts across the mirror for the badge.
func (service *Service) UnreadTotal() int {
	return slice.Reduce(service.Conversations.Snapshot().Items, 0,
		func(total int, conversation Conversation) int {
			return total + conversation.UnreadCount
		})
}

var _ Hub = (*realtime.ChatHub)(nil)
