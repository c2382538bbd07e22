// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

package realtime_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/carvia/carvia-go/internal/platform/eventbus"
	"github.com/carvia/carvia-go/internal/realtime"
)

// staticTokens is a TokenSource with a fixed answer.
type staticTokens struct {
	token string
}

func (s staticTokens) AccessToken() (string, bool) {
	return s.token, s.token != ""
}

// hubServer is an in-process hub endpoint: it accepts the socket, completes
// the handshake, and hands the connection to the test for scripted frames.
type hubServer struct {
	server   *httptest.Server
	upgrades atomic.Int32

	mu    sync.Mutex
	conns []*websocket.Conn
}

func newHubServer(t *testing.T) *hubServer {
	t.Helper()

	hub := &hubServer{}
	hub.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		hub.upgrades.Add(1)

		// 1. Consume the protocol handshake.
		ctx := r.Context()
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
		// 2. Acknowledge it.
		if err := conn.Write(ctx, websocket.MessageText, []byte("{}\x1e")); err != nil {
			return
		}

		hub.mu.Lock()
		hub.conns = append(hub.conns, conn)
		hub.mu.Unlock()

		// Keep the socket open until the client or the test closes it.
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}))
	t.Cleanup(hub.server.Close)

	return hub
}

// push sends raw frame bytes on the most recent connection.
func (hub *hubServer) push(t *testing.T, raw string) {
	t.Helper()

	hub.mu.Lock()
	defer hub.mu.Unlock()
	require.NotEmpty(t, hub.conns, "no hub connection established")

	conn := hub.conns[len(hub.conns)-1]
	require.NoError(t, conn.Write(context.Background(), websocket.MessageText, []byte(raw)))
}

/*
TestClient_ConnectIdempotent verifies that concurrent connect calls collapse
into a single socket: two goroutines racing Connect produce exactly one
upgrade, and a third call on an established connection is a no-op.
*/
func TestClient_ConnectIdempotent(t *testing.T) {
	hub := newHubServer(t)
	client := realtime.NewClient("test", hub.server.URL, staticTokens{token: "tkn"}, nil)
	defer client.Disconnect()

	// 1. Race two Connect calls.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, client.Connect(context.Background()))
		}()
	}
	wg.Wait()

	// 2. A third call while Connected must not dial again.
	require.NoError(t, client.Connect(context.Background()))

	assert.Equal(t, int32(1), hub.upgrades.Load())
	assert.Equal(t, realtime.Connected, client.State())
}

/*
TestClient_ConnectWithoutSession verifies the no-session no-op: no error, no
dial, state stays Disconnected.
*/
func TestClient_ConnectWithoutSession(t *testing.T) {
	hub := newHubServer(t)
	client := realtime.NewClient("test", hub.server.URL, staticTokens{}, nil)

	require.NoError(t, client.Connect(context.Background()))

	assert.Equal(t, int32(0), hub.upgrades.Load())
	assert.Equal(t, realtime.Disconnected, client.State())
}

/*
TestClient_Dispatch verifies that a server invocation frame reaches the
registered callback with its raw arguments, and that unknown events only hit
the error callback.
*/
func TestClient_Dispatch(t *testing.T) {
	hub := newHubServer(t)
	client := realtime.NewClient("test", hub.server.URL, staticTokens{token: "tkn"}, nil)
	defer client.Disconnect()

	received := make(chan string, 1)
	client.On("Greet", func(arguments []json.RawMessage) {
		var name string
		_ = json.Unmarshal(arguments[0], &name)
		received <- name
	})

	unknown := make(chan error, 1)
	client.OnError(func(err error) { unknown <- err })

	require.NoError(t, client.Connect(context.Background()))

	// 1. A registered event is dispatched.
	hub.push(t, `{"type":1,"target":"Greet","arguments":["kai"]}`+"\x1e")
	select {
	case name := <-received:
		assert.Equal(t, "kai", name)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not dispatched")
	}

	// 2. An unregistered event is reported, not fatal.
	hub.push(t, `{"type":1,"target":"Nope","arguments":[]}`+"\x1e")
	select {
	case err := <-unknown:
		assert.ErrorContains(t, err, "Nope")
	case <-time.After(2 * time.Second):
		t.Fatal("unknown event was not reported")
	}
	assert.Equal(t, realtime.Connected, client.State())
}

/*
TestClient_InvokeWithoutConnection verifies fail-fast semantics: with no
reachable hub and no session the invocation returns an error immediately and
nothing is queued.
*/
func TestClient_InvokeWithoutConnection(t *testing.T) {
	client := realtime.NewClient("test", "http://127.0.0.1:1/hub", staticTokens{}, nil)

	err := client.Invoke(context.Background(), "SendMessage", "u2", "hello")
	require.Error(t, err)
}

/*
TestClient_DisconnectIdempotent verifies Disconnect on a never-connected and
an already-disconnected client is harmless.
*/
func TestClient_DisconnectIdempotent(t *testing.T) {
	hub := newHubServer(t)
	client := realtime.NewClient("test", hub.server.URL, staticTokens{token: "tkn"}, nil)

	client.Disconnect()

	require.NoError(t, client.Connect(context.Background()))
	client.Disconnect()
	client.Disconnect()

	assert.Equal(t, realtime.Disconnected, client.State())
}

/*
TestReconnectDelay pins the backoff schedule: 0s, 2s, 10s, then 30s for every
further attempt. The schedule is a contract, not tuning.
*/
func TestReconnectDelay(t *testing.T) {
	assert.Equal(t, time.Duration(0), realtime.ReconnectDelay(0))
	assert.Equal(t, 2*time.Second, realtime.ReconnectDelay(1))
	assert.Equal(t, 10*time.Second, realtime.ReconnectDelay(2))
	assert.Equal(t, 30*time.Second, realtime.ReconnectDelay(3))
	assert.Equal(t, 30*time.Second, realtime.ReconnectDelay(7))
	assert.Equal(t, 30*time.Second, realtime.ReconnectDelay(100))
}

/*
TestChatHub_BridgesEvents verifies the chat hub republishes inbound hub
events on the bus: ReceiveMessage lands as a decoded message, MessageRead as
the message id.
*/
func TestChatHub_BridgesEvents(t *testing.T) {
	hub := newHubServer(t)
	bus := eventbus.New()

	messages := make(chan realtime.ChatMessage, 1)
	bus.Subscribe(eventbus.TopicMessageReceived, func(payload any) {
		messages <- payload.(realtime.ChatMessage)
	})
	reads := make(chan string, 1)
	bus.Subscribe(eventbus.TopicMessagesMarkedRead, func(payload any) {
		reads <- payload.(string)
	})

	chat := realtime.NewChatHub(hub.server.URL, staticTokens{token: "tkn"}, bus, nil)
	defer chat.Disconnect()
	require.NoError(t, chat.Connect(context.Background()))

	hub.push(t, `{"type":1,"target":"ReceiveMessage","arguments":[{"id":"m1","senderId":"u2","content":"hi"}]}`+"\x1e")
	select {
	case message := <-messages:
		assert.Equal(t, "m1", message.ID)
		assert.Equal(t, "u2", message.SenderID)
		assert.Equal(t, "hi", message.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("message event did not reach the bus")
	}

	hub.push(t, `{"type":1,"target":"MessageRead","arguments":["m1"]}`+"\x1e")
	select {
	case id := <-reads:
		assert.Equal(t, "m1", id)
	case <-time.After(2 * time.Second):
		t.Fatal("read event did not reach the bus")
	}
}

/*
TestFriendHub_BridgesEvents verifies friend-graph pushes land on their bus
topics; a removal carries the counterpart user id.
*/
func TestFriendHub_BridgesEvents(t *testing.T) {
	hub := newHubServer(t)
	bus := eventbus.New()

	removed := make(chan realtime.FriendEvent, 1)
	bus.Subscribe(eventbus.TopicFriendRemoved, func(payload any) {
		removed <- payload.(realtime.FriendEvent)
	})

	friends := realtime.NewFriendHub(hub.server.URL, staticTokens{token: "tkn"}, bus, nil)
	defer friends.Disconnect()
	require.NoError(t, friends.Connect(context.Background()))

	hub.push(t, `{"type":1,"target":"FriendRemoved","arguments":[{"userId":"u7"}]}`+"\x1e")
	select {
	case event := <-removed:
		assert.Equal(t, "u7", event.UserID)
	case <-time.After(2 * time.Second):
		t.Fatal("removal event did not reach the bus")
	}
}
