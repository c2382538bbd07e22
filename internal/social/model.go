// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

/*
Package social implements the friend graph: directional friend requests and
the symmetric friendships they produce.

State rules:

  - Requests are directional; exactly one of requester/addressee is the
    viewing user. Pending is the only mutable state — Accepted and Rejected
    are terminal, and a requester cancels by deleting the Pending request.
  - A Friend materializes the moment a request is accepted and disappears
    only by an explicit remove from either side.
  - Push notifications from the friend hub are hints: they trigger a
    throttled refetch of the affected lists, never a partial local synthesis.
*/
package social

import (
	"time"

	"github.com/carvia/carvia-go/internal/session"
)

// RequestStatus is the lifecycle state of a friend request.
type RequestStatus string

const (
	StatusPending  RequestStatus = "Pending"
	StatusAccepted RequestStatus = "Accepted"
	StatusRejected RequestStatus = "Rejected"
)

// FriendRequest is one directional request between two users.
type FriendRequest struct {
	ID          string        `json:"id"`
	RequesterID string        `json:"requesterId"`
	AddresseeID string        `json:"addresseeId"`
	Status      RequestStatus `json:"status"`
	// Requester carries the sender's profile on received requests; absent on
	// sent ones.
	Requester   *session.User `json:"requester,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	RespondedAt *time.Time    `json:"respondedAt,omitempty"`
}

// Friend is the symmetric relationship as seen from the viewing user.
type Friend struct {
	// UserID is the other party.
	UserID       string        `json:"userId"`
	User         *session.User `json:"user,omitempty"`
	FriendsSince time.Time     `json:"friendsSince"`
}

// requestLists is the wire shape of the combined requests endpoint.
type requestLists struct {
	Received []FriendRequest `json:"received"`
	Sent     []FriendRequest `json:"sent"`
}
