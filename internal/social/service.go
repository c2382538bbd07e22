// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

package social

import (
	"context"
	"log/slog"

	"github.com/carvia/carvia-go/internal/api"
	"github.com/carvia/carvia-go/internal/platform/apperr"
	"github.com/carvia/carvia-go/internal/platform/collection"
	"github.com/carvia/carvia-go/internal/platform/constants"
	"github.com/carvia/carvia-go/internal/platform/eventbus"
	"github.com/carvia/carvia-go/internal/platform/throttle"
)

// Service maintains the three mirrors of the friend graph and applies the
// optimistic-patch discipline on REST mutations.
type Service struct {
	api    *api.Client
	bus    *eventbus.Bus
	logger *slog.Logger

	PendingReceived *collection.Store[FriendRequest]
	PendingSent     *collection.Store[FriendRequest]
	Friends         *collection.Store[Friend]

	refetch       *throttle.Refetcher
	subscriptions []eventbus.Subscription
}

/*
NewService constructs the social Service and wires the hub-event handlers.

Description: Friend-graph push events (request sent/rejected, acceptance,
removal) arrive on the bus and feed one shared throttled refetcher. Bursts
collapse into a single background reconciliation of all three lists; the
background fetch never flips a loading flag.
*/
func NewService(client *api.Client, bus *eventbus.Bus, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	service := &Service{
		api:             client,
		bus:             bus,
		logger:          logger,
		PendingReceived: collection.NewStore(requestID),
		PendingSent:     collection.NewStore(requestID),
		Friends:         collection.NewStore(func(friend Friend) string { return friend.UserID }),
	}
	service.refetch = throttle.New(constants.RefetchWindow, service.reconcile)

	trigger := func(any) { service.refetch.Trigger() }
	for _, topic := range []eventbus.Topic{
		eventbus.TopicFriendRequestSent,
		eventbus.TopicFriendRequestRejected,
		eventbus.TopicMessageRequestAccepted,
		eventbus.TopicFriendRemoved,
	} {
		service.subscriptions = append(service.subscriptions, bus.Subscribe(topic, trigger))
	}

	return service
}

// Close detaches the service from the bus and cancels pending refetches.
func (service *Service) Close() {
	service.refetch.Stop()
	for _, subscription := range service.subscriptions {
		service.bus.Unsubscribe(subscription)
	}
}

// # Fetches

// LoadRequests fetches both pending lists. User-initiated: shows loading.
func (service *Service) LoadRequests(ctx context.Context) error {
	service.PendingReceived.Begin()
	service.PendingSent.Begin()

	var lists requestLists
	if err := service.api.Get(ctx, "/api/friends/requests", nil, &lists); err != nil {
		message := apperr.Message(err)
		service.PendingReceived.Fail(message)
		service.PendingSent.Fail(message)
		return err
	}

	service.PendingReceived.SetItems(lists.Received)
	service.PendingSent.SetItems(lists.Sent)
	return nil
}

// LoadFriends fetches the friends list. User-initiated: shows loading.
func (service *Service) LoadFriends(ctx context.Context) error {
	service.Friends.Begin()

	var friends []Friend
	if err := service.api.Get(ctx, "/api/friends", nil, &friends); err != nil {
		service.Friends.Fail(apperr.Message(err))
		return err
	}

	service.Friends.SetItems(friends)
	return nil
}

// reconcile is the background refetch behind hub events: same snapshots,
// no loading flags, failures only logged. Triggered through the throttled
// refetcher, never directly.
func (service *Service) reconcile() {
	ctx := context.Background()

	var lists requestLists
	if err := service.api.Get(ctx, "/api/friends/requests", nil, &lists); err != nil {
		service.logger.Warn("social_reconcile_requests_failed", slog.String("error", apperr.Message(err)))
	} else {
		service.PendingReceived.SetItems(lists.Received)
		service.PendingSent.SetItems(lists.Sent)
	}

	var friends []Friend
	if err := service.api.Get(ctx, "/api/friends", nil, &friends); err != nil {
		service.logger.Warn("social_reconcile_friends_failed", slog.String("error", apperr.Message(err)))
		return
	}
	service.Friends.SetItems(friends)
}

// # Mutations

// SendRequest creates a pending request toward the addressee, mirrors it in
// the sent list, and announces it on the bus.
func (service *Service) SendRequest(ctx context.Context, addresseeID string) (*FriendRequest, error) {
	var request FriendRequest
	payload := map[string]string{"addresseeId": addresseeID}
	if err := service.api.Post(ctx, "/api/friends/requests", payload, &request); err != nil {
		service.PendingSent.Fail(apperr.Message(err))
		return nil, err
	}

	service.PendingSent.Prepend(request)
	service.bus.Publish(eventbus.TopicFriendRequestSent, request)
	return &request, nil
}

/*
Accept transitions a received request to Accepted.

Description: The server responds with the materialized friendship. Locally
the request leaves the pending-received mirror and the new Friend (with its
friendsSince timestamp) enters the friends mirror — an optimistic patch, with
full reconciliation left to the next fetch.
*/
func (service *Service) Accept(ctx context.Context, requestID string) (*Friend, error) {
	var friend Friend
	if err := service.api.Post(ctx, "/api/friends/requests/"+requestID+"/accept", nil, &friend); err != nil {
		service.PendingReceived.Fail(apperr.Message(err))
		return nil, err
	}

	service.PendingReceived.RemoveByID(requestID)
	service.Friends.Upsert(friend)
	service.bus.Publish(eventbus.TopicMessageRequestAccepted, friend)
	return &friend, nil
}

// Reject transitions a received request to Rejected and drops it locally.
func (service *Service) Reject(ctx context.Context, requestID string) error {
	if err := service.api.Post(ctx, "/api/friends/requests/"+requestID+"/reject", nil, nil); err != nil {
		service.PendingReceived.Fail(apperr.Message(err))
		return err
	}

	service.PendingReceived.RemoveByID(requestID)
	service.bus.Publish(eventbus.TopicFriendRequestRejected, requestID)
	return nil
}

// Cancel deletes a pending request the user sent; cancellation is a delete,
// not a status transition.
func (service *Service) Cancel(ctx context.Context, requestID string) error {
	if err := service.api.Delete(ctx, "/api/friends/requests/"+requestID, nil); err != nil {
		service.PendingSent.Fail(apperr.Message(err))
		return err
	}

	service.PendingSent.RemoveByID(requestID)
	return nil
}

// Remove dissolves a friendship from this side and announces the removal.
func (service *Service) Remove(ctx context.Context, userID string) error {
	if err := service.api.Delete(ctx, "/api/friends/"+userID, nil); err != nil {
		service.Friends.Fail(apperr.Message(err))
		return err
	}

	service.Friends.RemoveByID(userID)
	service.bus.Publish(eventbus.TopicFriendRemoved, userID)
	return nil
}

func requestID(request FriendRequest) string { return request.ID }
