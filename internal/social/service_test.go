// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

package social_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carvia/carvia-go/internal/api"
	"github.com/carvia/carvia-go/internal/platform/eventbus"
	"github.com/carvia/carvia-go/internal/social"
)

type memberTokens struct{}

func (memberTokens) AccessToken() (string, bool) { return "member-token", true }

type fixture struct {
	service *social.Service
	bus     *eventbus.Bus
	router  *chi.Mux

	// requestFetches counts hits on the combined requests endpoint.
	requestFetches atomic.Int32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{router: chi.NewRouter(), bus: eventbus.New()}

	server := httptest.NewServer(f.router)
	t.Cleanup(server.Close)

	client, err := api.New(server.URL, memberTokens{})
	require.NoError(t, err)

	f.service = social.NewService(client, f.bus, nil)
	t.Cleanup(f.service.Close)

	// Default handlers so background reconciliation always has a target.
	f.router.Get("/api/friends/requests", func(w http.ResponseWriter, r *http.Request) {
		f.requestFetches.Add(1)
		respond(w, http.StatusOK, map[string]any{"received": []social.FriendRequest{}, "sent": []social.FriendRequest{}})
	})
	f.router.Get("/api/friends", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, []social.Friend{})
	})

	return f
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

/*
TestService_AcceptMovesRequestToFriends pins the acceptance property: the
request leaves the pending-received mirror and a Friend with friendsSince
set appears in the friends mirror.
*/
func TestService_AcceptMovesRequestToFriends(t *testing.T) {
	f := newFixture(t)

	since := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	f.router.Post("/api/friends/requests/{id}/accept", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, social.Friend{UserID: "u2", FriendsSince: since})
	})

	f.service.PendingReceived.SetItems([]social.FriendRequest{
		{ID: "r1", RequesterID: "u2", AddresseeID: "u1", Status: social.StatusPending},
	})

	friend, err := f.service.Accept(context.Background(), "r1")

	require.NoError(t, err)
	assert.Equal(t, "u2", friend.UserID)

	// 1. The pending list no longer holds the request.
	assert.Equal(t, 0, f.service.PendingReceived.Len())

	// 2. The friends list holds the counterpart exactly once, with the
	// friendship timestamp.
	friends := f.service.Friends.Snapshot().Items
	require.Len(t, friends, 1)
	assert.Equal(t, "u2", friends[0].UserID)
	assert.Equal(t, since, friends[0].FriendsSince)
}

/*
TestService_SendRequest verifies the sent mirror gains the new request at the
head and the bus hears about it.
*/
func TestService_SendRequest(t *testing.T) {
	f := newFixture(t)
	f.router.Post("/api/friends/requests", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusCreated, social.FriendRequest{
			ID: "r9", RequesterID: "u1", AddresseeID: "u5", Status: social.StatusPending,
		})
	})

	sent := 0
	f.bus.Subscribe(eventbus.TopicFriendRequestSent, func(any) { sent++ })

	request, err := f.service.SendRequest(context.Background(), "u5")

	require.NoError(t, err)
	assert.Equal(t, social.StatusPending, request.Status)
	assert.Equal(t, 1, f.service.PendingSent.Len())
	assert.Equal(t, 1, sent)
}

/*
TestService_CancelDeletesPending verifies cancellation removes the sent
request locally; it is a deletion, not a status change.
*/
func TestService_CancelDeletesPending(t *testing.T) {
	f := newFixture(t)
	f.router.Delete("/api/friends/requests/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	f.service.PendingSent.SetItems([]social.FriendRequest{
		{ID: "r1", Status: social.StatusPending},
	})

	require.NoError(t, f.service.Cancel(context.Background(), "r1"))
	assert.Equal(t, 0, f.service.PendingSent.Len())
}

/*
TestService_RemoveFriend verifies removal filters the friends mirror and
broadcasts friend-removed.
*/
func TestService_RemoveFriend(t *testing.T) {
	f := newFixture(t)
	f.router.Delete("/api/friends/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	removed := 0
	f.bus.Subscribe(eventbus.TopicFriendRemoved, func(any) { removed++ })

	f.service.Friends.SetItems([]social.Friend{{UserID: "u2"}, {UserID: "u3"}})

	require.NoError(t, f.service.Remove(context.Background(), "u2"))
	assert.Equal(t, 1, f.service.Friends.Len())
	assert.Equal(t, 1, removed)
}

/*
TestService_BurstCollapsesIntoOneRefetch verifies the throttling contract: a
burst of friend-graph events inside the window produces exactly one
background reconciliation once the window elapses.
*/
func TestService_BurstCollapsesIntoOneRefetch(t *testing.T) {
	f := newFixture(t)

	// 1. Five events in quick succession, all inside the 500ms window that
	// opened when the service was constructed.
	for i := 0; i < 5; i++ {
		f.bus.Publish(eventbus.TopicFriendRequestRejected, "r1")
		time.Sleep(10 * time.Millisecond)
	}

	// 2. Nothing has fired yet; the refetch is deferred to the window edge.
	assert.Equal(t, int32(0), f.requestFetches.Load())

	// 3. After the window, exactly one reconciliation ran.
	assert.Eventually(t, func() bool {
		return f.requestFetches.Load() == 1
	}, 2*time.Second, 20*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), f.requestFetches.Load())
}

/*
TestService_LoadFailureSetsBothErrors verifies a failed combined fetch marks
both pending mirrors with the same display message.
*/
func TestService_LoadFailureSetsBothErrors(t *testing.T) {
	router := chi.NewRouter()
	router.Get("/api/friends/requests", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusInternalServerError, map[string]string{"title": "Storage offline"})
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	client, err := api.New(server.URL, memberTokens{})
	require.NoError(t, err)
	service := social.NewService(client, eventbus.New(), nil)
	t.Cleanup(service.Close)

	require.Error(t, service.LoadRequests(context.Background()))

	assert.Equal(t, "Storage offline", service.PendingReceived.Snapshot().Err)
	assert.Equal(t, "Storage offline", service.PendingSent.Snapshot().Err)
}
