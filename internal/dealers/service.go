// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

// Package dealers implements dealership management: the dealership records
// themselves, their worker rosters, and the analytics summary a dealer's
// dashboard renders.
package dealers

import (
	"context"
	"log/slog"
	"time"

	"github.com/carvia/carvia-go/internal/api"
	"github.com/carvia/carvia-go/internal/platform/apperr"
	"github.com/carvia/carvia-go/internal/platform/collection"
	"github.com/carvia/carvia-go/internal/platform/validate"
	"github.com/carvia/carvia-go/internal/session"
)

// Dealership is one dealer organization on the platform.
type Dealership struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
}

// DealershipInput carries the create/update form fields.
type DealershipInput struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// Analytics is the dashboard summary for one dealership.
type Analytics struct {
	DealershipID   string  `json:"dealershipId"`
	ActiveListings int     `json:"activeListings"`
	TotalViews     int     `json:"totalViews"`
	SoldThisMonth  int     `json:"soldThisMonth"`
	AverageRating  float64 `json:"averageRating"`
}

// Service exposes dealership operations over a mirrored list.
type Service struct {
	api    *api.Client
	logger *slog.Logger

	Dealerships *collection.Store[Dealership]
	Workers     *collection.Store[session.User]
}

// NewService constructs the dealers Service with empty mirrors.
func NewService(client *api.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		api:         client,
		logger:      logger,
		Dealerships: collection.NewStore(func(dealership Dealership) string { return dealership.ID }),
		Workers:     collection.NewStore(func(worker session.User) string { return worker.ID }),
	}
}

// # Dealerships

// Load replaces the dealership mirror wholesale.
func (service *Service) Load(ctx context.Context) error {
	service.Dealerships.Begin()

	var dealerships []Dealership
	if err := service.api.Get(ctx, "/api/dealerships", nil, &dealerships); err != nil {
		service.Dealerships.Fail(apperr.Message(err))
		return err
	}

	service.Dealerships.SetItems(dealerships)
	return nil
}

// Get fetches one dealership by id.
func (service *Service) Get(ctx context.Context, dealershipID string) (*Dealership, error) {
	var dealership Dealership
	if err := service.api.Get(ctx, "/api/dealerships/"+dealershipID, nil, &dealership); err != nil {
		return nil, err
	}
	return &dealership, nil
}

// Create registers a dealership and inserts it at the head of the mirror.
func (service *Service) Create(ctx context.Context, input DealershipInput) (*Dealership, error) {
	if err := validateDealership(input); err != nil {
		return nil, err
	}

	var dealership Dealership
	if err := service.api.Post(ctx, "/api/dealerships", input, &dealership); err != nil {
		service.Dealerships.Fail(apperr.Message(err))
		return nil, err
	}

	service.Dealerships.Prepend(dealership)
	return &dealership, nil
}

// Update saves edits and replaces the mirrored copy by id.
func (service *Service) Update(ctx context.Context, dealershipID string, input DealershipInput) (*Dealership, error) {
	if err := validateDealership(input); err != nil {
		return nil, err
	}

	var dealership Dealership
	if err := service.api.Put(ctx, "/api/dealerships/"+dealershipID, input, &dealership); err != nil {
		service.Dealerships.Fail(apperr.Message(err))
		return nil, err
	}

	service.Dealerships.Upsert(dealership)
	return &dealership, nil
}

// Delete dissolves a dealership and filters it out of the mirror.
func (service *Service) Delete(ctx context.Context, dealershipID string) error {
	if err := service.api.Delete(ctx, "/api/dealerships/"+dealershipID, nil); err != nil {
		service.Dealerships.Fail(apperr.Message(err))
		return err
	}

	service.Dealerships.RemoveByID(dealershipID)
	return nil
}

// # Workers

// LoadWorkers replaces the worker mirror with one dealership's roster.
func (service *Service) LoadWorkers(ctx context.Context, dealershipID string) error {
	service.Workers.Begin()

	var workers []session.User
	if err := service.api.Get(ctx, "/api/dealerships/"+dealershipID+"/workers", nil, &workers); err != nil {
		service.Workers.Fail(apperr.Message(err))
		return err
	}

	service.Workers.SetItems(workers)
	return nil
}

// AddWorker attaches a user to the dealership's roster and mirrors them.
func (service *Service) AddWorker(ctx context.Context, dealershipID, userID string) error {
	var worker session.User
	payload := map[string]string{"userId": userID}
	if err := service.api.Post(ctx, "/api/dealerships/"+dealershipID+"/workers", payload, &worker); err != nil {
		service.Workers.Fail(apperr.Message(err))
		return err
	}

	service.Workers.Upsert(worker)
	return nil
}

// RemoveWorker detaches a user from the roster and filters them out.
func (service *Service) RemoveWorker(ctx context.Context, dealershipID, userID string) error {
	if err := service.api.Delete(ctx, "/api/dealerships/"+dealershipID+"/workers/"+userID, nil); err != nil {
		service.Workers.Fail(apperr.Message(err))
		return err
	}

	service.Workers.RemoveByID(userID)
	return nil
}

// # Analytics

// AnalyticsFor fetches the dashboard summary of one dealership.
func (service *Service) AnalyticsFor(ctx context.Context, dealershipID string) (*Analytics, error) {
	var analytics Analytics
	if err := service.api.Get(ctx, "/api/dealerships/"+dealershipID+"/analytics", nil, &analytics); err != nil {
		return nil, err
	}
	return &analytics, nil
}

func validateDealership(input DealershipInput) error {
	v := &validate.Validator{}
	return v.
		Required("name", input.Name).
		MaxLen("name", input.Name, 120).
		MaxLen("address", input.Address, 240).
		Err()
}
