// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

package realtime

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/carvia/carvia-go/internal/platform/eventbus"
)

// Chat hub event and procedure names, fixed by the server contract.
const (
	chatEventReceiveMessage = "ReceiveMessage"
	chatEventMessageSent    = "MessageSent"
	chatEventMessageRead    = "MessageRead"

	chatProcSendMessage = "SendMessage"
	chatProcMarkAsRead  = "MarkAsRead"
)

// ChatMessage is the hub's wire shape for one direct message.
type ChatMessage struct {
	ID         string `json:"id"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
	SentAt     string `json:"sentAt"`
	IsRead     bool   `json:"isRead"`
}

// ChatHub is the typed wrapper over the chat hub connection. Inbound events
// are decoded and republished on the event bus; consumers never touch frames.
type ChatHub struct {
	client *Client
	bus    *eventbus.Bus
	logger *slog.Logger
}

// NewChatHub wires a hub client for the chat endpoint and registers the
// event-to-bus bridge.
func NewChatHub(hubURL string, tokens TokenSource, bus *eventbus.Bus, logger *slog.Logger) *ChatHub {
	if logger == nil {
		logger = slog.Default()
	}

	hub := &ChatHub{
		client: NewClient("chat", hubURL, tokens, logger),
		bus:    bus,
		logger: logger,
	}

	hub.client.On(chatEventReceiveMessage, hub.onReceiveMessage)
	hub.client.On(chatEventMessageSent, hub.onMessageSent)
	hub.client.On(chatEventMessageRead, hub.onMessageRead)

	return hub
}

// Connect opens the chat connection; no-op without a session.
func (hub *ChatHub) Connect(ctx context.Context) error {
	return hub.client.Connect(ctx)
}

// Disconnect closes the connection and stops reconnecting. Idempotent.
func (hub *ChatHub) Disconnect() {
	hub.client.Disconnect()
}

// State exposes the underlying connection state.
func (hub *ChatHub) State() State {
	return hub.client.State()
}

// OnError registers the optional hub-failure callback.
func (hub *ChatHub) OnError(callback func(error)) {
	hub.client.OnError(callback)
}

// # Procedures

// SendMessage delivers a direct message through the hub. Fails fast when the
// connection cannot be established; nothing is queued.
func (hub *ChatHub) SendMessage(ctx context.Context, receiverID, content string) error {
	return hub.client.Invoke(ctx, chatProcSendMessage, receiverID, content)
}

// MarkAsRead flags a received message as read on the server.
func (hub *ChatHub) MarkAsRead(ctx context.Context, messageID string) error {
	return hub.client.Invoke(ctx, chatProcMarkAsRead, messageID)
}

// # Event Bridge

func (hub *ChatHub) onReceiveMessage(arguments []json.RawMessage) {
	message, ok := decodeChatMessage(arguments, hub.logger)
	if !ok {
		return
	}
	hub.bus.Publish(eventbus.TopicMessageReceived, message)
}

// onMessageSent is the server's echo of the caller's own send; it carries the
// persisted message (with its id) and refreshes the conversation snapshot the
// same way an inbound message does.
func (hub *ChatHub) onMessageSent(arguments []json.RawMessage) {
	message, ok := decodeChatMessage(arguments, hub.logger)
	if !ok {
		return
	}
	hub.bus.Publish(eventbus.TopicMessageReceived, message)
}

func (hub *ChatHub) onMessageRead(arguments []json.RawMessage) {
	if len(arguments) == 0 {
		return
	}
	var messageID string
	if err := json.Unmarshal(arguments[0], &messageID); err != nil {
		hub.logger.Warn("chat_event_decode_failed", slog.String("error", err.Error()))
		return
	}
	hub.bus.Publish(eventbus.TopicMessagesMarkedRead, messageID)
}

func decodeChatMessage(arguments []json.RawMessage, logger *slog.Logger) (ChatMessage, bool) {
	var message ChatMessage
	if len(arguments) == 0 {
		return message, false
	}
	if err := json.Unmarshal(arguments[0], &message); err != nil {
		logger.Warn("chat_event_decode_failed", slog.String("error", err.Error()))
		return message, false
	}
	return message, true
}
