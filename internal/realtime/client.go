// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

/*
Package realtime implements the persistent bidirectional hub connections that
deliver server-pushed events (messages, friend-graph changes) and accept
client-invoked procedures (send message, mark read).

Architecture:

  - Client: One per hub, owning exactly one live connection at a time. A
    connect request while Connected or Connecting is a no-op.
  - Dispatch table: Each inbound event name maps to exactly one callback;
    re-registering swaps the table entry and never requires a reconnect.
  - Reconnect: Unexpected drops trigger automatic retries on the fixed
    0s/2s/10s/30s schedule, 30s repeating, unbounded.

The token rides as a connection query parameter because the transport is a
bidirectional socket without per-frame headers.
*/
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/carvia/carvia-go/internal/platform/apperr"
	"github.com/carvia/carvia-go/internal/platform/constants"
	"github.com/carvia/carvia-go/pkg/uuid"
)

// TokenSource supplies the bearer token used as the connection parameter.
type TokenSource interface {
	AccessToken() (string, bool)
}

// Handler receives the raw argument list of one inbound hub event.
type Handler func(arguments []json.RawMessage)

// # Connection State

// State is the lifecycle position of a hub connection.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	Reconnecting
)

// String renders the state for logs.
func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// ReconnectDelay returns the backoff before the given retry attempt
// (0-indexed). The schedule is a hard contract; see constants.
func ReconnectDelay(attempt int) time.Duration {
	schedule := constants.ReconnectSchedule
	if attempt >= len(schedule) {
		return schedule[len(schedule)-1]
	}
	return schedule[attempt]
}

// # Client

// Client is one hub connection with automatic reconnection.
//
// # Concurrency
//
// Client is safe for concurrent use. A single in-flight flag collapses
// concurrent Connect calls into one socket, so at most one live connection
// per hub exists per process.
type Client struct {
	name   string
	hubURL string
	tokens TokenSource
	logger *slog.Logger

	mu         sync.Mutex
	state      State
	dialing    bool
	conn       *websocket.Conn
	generation int
	cancelLoop context.CancelFunc
	stopped    bool

	handlers map[string]Handler
	onError  func(error)
}

// NewClient constructs a hub client; no connection is opened yet.
func NewClient(name, hubURL string, tokens TokenSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		name:     name,
		hubURL:   hubURL,
		tokens:   tokens,
		logger:   logger.With(slog.String("hub", name)),
		handlers: make(map[string]Handler),
	}
}

// On registers THE callback for an event name, replacing any previous one.
// Swapping callbacks never touches the underlying connection.
func (client *Client) On(event string, handler Handler) {
	client.mu.Lock()
	defer client.mu.Unlock()
	client.handlers[event] = handler
}

// OnError registers the optional callback for hub-level failures and
// server-sent Error events.
func (client *Client) OnError(callback func(error)) {
	client.mu.Lock()
	defer client.mu.Unlock()
	client.onError = callback
}

// State returns the current lifecycle position.
func (client *Client) State() State {
	client.mu.Lock()
	defer client.mu.Unlock()
	return client.state
}

// # Connect / Disconnect

/*
Connect opens the hub connection.

Description: No-op when already Connected or Connecting, or when another
Connect is in flight — concurrent callers never open two sockets. A missing
or expired token is logged and treated as a no-op, not an error: the caller
signs in first, then connects.

Returns:
  - error: transport or handshake failure of THIS attempt (no retries here;
    automatic retries only follow unexpected drops of an established
    connection)
*/
func (client *Client) Connect(ctx context.Context) error {
	client.mu.Lock()
	if client.state == Connected || client.state == Connecting || client.dialing {
		client.mu.Unlock()
		return nil
	}

	token, ok := client.tokens.AccessToken()
	if !ok {
		client.mu.Unlock()
		client.logger.Info("realtime_connect_skipped_no_session")
		return nil
	}

	client.dialing = true
	client.state = Connecting
	client.stopped = false
	client.mu.Unlock()

	conn, err := client.dial(ctx, token)

	client.mu.Lock()
	defer client.mu.Unlock()
	client.dialing = false

	if err != nil {
		client.state = Disconnected
		return err
	}
	if client.stopped {
		// Disconnect raced the dial; honor it.
		_ = conn.Close(websocket.StatusNormalClosure, "stopped")
		client.state = Disconnected
		return nil
	}

	client.startLocked(conn)
	return nil
}

// Disconnect stops the connection and any reconnect attempts. Idempotent;
// always safe on an already-stopped client.
func (client *Client) Disconnect() {
	client.mu.Lock()
	defer client.mu.Unlock()

	client.stopped = true
	client.state = Disconnected

	if client.cancelLoop != nil {
		client.cancelLoop()
		client.cancelLoop = nil
	}
	if client.conn != nil {
		_ = client.conn.Close(websocket.StatusNormalClosure, "client disconnect")
		client.conn = nil
	}
}

// # Invocations

/*
Invoke calls a server-side procedure.

Description: Fails fast when not Connected, after attempting one connect
cycle. Invocations are never queued or buffered — a caller invoking "send
message" while offline is told the send did not happen.

Parameters:
  - procedure: string (hub method name)
  - arguments: values marshaled as the invocation argument list
*/
func (client *Client) Invoke(ctx context.Context, procedure string, arguments ...any) error {
	if client.State() != Connected {
		if err := client.Connect(ctx); err != nil {
			return apperr.NotConnected(err)
		}
	}

	client.mu.Lock()
	conn := client.conn
	state := client.state
	client.mu.Unlock()

	if state != Connected || conn == nil {
		return apperr.NotConnected(nil)
	}

	encoded := make([]json.RawMessage, 0, len(arguments))
	for _, argument := range arguments {
		raw, err := json.Marshal(argument)
		if err != nil {
			return apperr.NotConnected(fmt.Errorf("realtime_encode_argument_failed: %w", err))
		}
		encoded = append(encoded, raw)
	}

	invocation := frame{
		Type:         frameInvocation,
		Target:       procedure,
		Arguments:    encoded,
		InvocationID: uuid.New(),
	}

	if err := writeFrame(ctx, conn, invocation); err != nil {
		return apperr.NotConnected(err)
	}
	return nil
}

// # Internals

// dial opens the socket and completes the protocol handshake.
func (client *Client) dial(ctx context.Context, token string) (*websocket.Conn, error) {
	target, err := url.Parse(client.hubURL)
	if err != nil {
		return nil, fmt.Errorf("realtime_invalid_hub_url: %w", err)
	}

	// Token as a connection parameter: sockets carry no per-frame headers.
	query := target.Query()
	query.Set("access_token", token)
	target.RawQuery = query.Encode()

	dialCtx, cancel := context.WithTimeout(ctx, constants.HubHandshakeTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("realtime_dial_failed: %w", err)
	}

	if err := handshake(dialCtx, conn); err != nil {
		_ = conn.Close(websocket.StatusProtocolError, "handshake failed")
		return nil, err
	}

	return conn, nil
}

// startLocked installs an established connection. Callers hold client.mu.
func (client *Client) startLocked(conn *websocket.Conn) {
	if client.cancelLoop != nil {
		client.cancelLoop()
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	client.cancelLoop = cancel
	client.conn = conn
	client.state = Connected
	client.generation++

	client.logger.Info("realtime_connected")

	go client.readLoop(loopCtx, conn, client.generation)
	go client.pingLoop(loopCtx, conn)
}

// readLoop pumps inbound frames until the connection drops.
func (client *Client) readLoop(ctx context.Context, conn *websocket.Conn, generation int) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			client.handleDrop(generation, err)
			return
		}

		for _, raw := range splitFrames(data) {
			client.handleFrame(raw)
		}
	}
}

// pingLoop keeps intermediaries from idling the socket out.
func (client *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(constants.HubKeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := writeFrame(ctx, conn, frame{Type: framePing}); err != nil {
				return // read loop observes the same failure and reconnects
			}
		}
	}
}

// handleFrame routes one inbound frame.
func (client *Client) handleFrame(raw []byte) {
	var inbound frame
	if err := json.Unmarshal(raw, &inbound); err != nil {
		client.logger.Warn("realtime_frame_decode_failed", slog.String("error", err.Error()))
		return
	}

	switch inbound.Type {
	case frameInvocation:
		client.dispatch(inbound)
	case framePing:
		// Keepalive from the server; nothing to do.
	case frameClose:
		client.logger.Info("realtime_server_close", slog.String("error", inbound.Error))
	default:
		client.logger.Debug("realtime_frame_ignored", slog.Int("type", inbound.Type))
	}
}

// dispatch delivers an event to its single registered callback. Unknown and
// Error events are logged and forwarded to the error callback; they never
// close the connection.
func (client *Client) dispatch(inbound frame) {
	client.mu.Lock()
	handler := client.handlers[inbound.Target]
	onError := client.onError
	client.mu.Unlock()

	if inbound.Target == "Error" {
		message := "hub error"
		if len(inbound.Arguments) > 0 {
			_ = json.Unmarshal(inbound.Arguments[0], &message)
		}
		client.logger.Warn("realtime_server_error", slog.String("message", message))
		if onError != nil {
			onError(fmt.Errorf("realtime_server_error: %s", message))
		}
		return
	}

	if handler == nil {
		client.logger.Warn("realtime_unknown_event", slog.String("target", inbound.Target))
		if onError != nil {
			onError(fmt.Errorf("realtime_unknown_event: %s", inbound.Target))
		}
		return
	}

	handler(inbound.Arguments)
}

// handleDrop reacts to a connection loss observed by the read loop.
func (client *Client) handleDrop(generation int, cause error) {
	client.mu.Lock()
	if client.stopped || generation != client.generation {
		// Explicit disconnect, or a stale loop from a replaced connection.
		client.mu.Unlock()
		return
	}

	client.conn = nil
	client.state = Reconnecting
	client.mu.Unlock()

	client.logger.Warn("realtime_connection_lost", slog.String("error", cause.Error()))
	go client.reconnectLoop()
}

// reconnectLoop retries on the fixed schedule until it succeeds, the session
// disappears, or the client is stopped.
func (client *Client) reconnectLoop() {
	for attempt := 0; ; attempt++ {
		time.Sleep(ReconnectDelay(attempt))

		client.mu.Lock()
		if client.stopped || client.state != Reconnecting {
			client.mu.Unlock()
			return
		}
		token, ok := client.tokens.AccessToken()
		if !ok {
			// Signed out mid-outage: reconnection is left to a future
			// explicit Connect.
			client.state = Disconnected
			client.mu.Unlock()
			client.logger.Info("realtime_reconnect_abandoned_no_session")
			return
		}
		client.mu.Unlock()

		conn, err := client.dial(context.Background(), token)
		if err != nil {
			client.logger.Warn("realtime_reconnect_failed",
				slog.Int("attempt", attempt+1),
				slog.String("error", err.Error()),
			)
			continue
		}

		client.mu.Lock()
		if client.stopped {
			client.mu.Unlock()
			_ = conn.Close(websocket.StatusNormalClosure, "stopped")
			return
		}
		client.startLocked(conn)
		client.mu.Unlock()
		return
	}
}
