// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/carvia/carvia-go/internal/api"
	"github.com/carvia/carvia-go/internal/platform/apperr"
	"github.com/carvia/carvia-go/internal/platform/collection"
	"github.com/carvia/carvia-go/internal/platform/validate"
	"github.com/carvia/carvia-go/pkg/pagination"
)

// Service exposes listing, comment/rating, and favourite operations backed
// by collection stores the presentation layer renders from.
type Service struct {
	api    *api.Client
	logger *slog.Logger

	// Listings mirrors the last search result; Comments mirrors the listing
	// currently open; Favourites mirrors the signed-in user's saved cars.
	Listings   *collection.Store[Car]
	Comments   *collection.Store[Comment]
	Favourites *collection.Store[Car]
}

// NewService constructs the catalog Service with empty stores.
func NewService(client *api.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	carID := func(car Car) string { return car.ID }
	return &Service{
		api:        client,
		logger:     logger,
		Listings:   collection.NewStore(carID),
		Comments:   collection.NewStore(func(comment Comment) string { return comment.ID }),
		Favourites: collection.NewStore(carID),
	}
}

// # Listings

/*
Search fetches one page of listings matching the filter and replaces the
listings mirror wholesale.

Returns:
  - pagination.Meta: for the pager; zero value when the envelope omitted it
  - error: the store's Err holds the same display message
*/
func (service *Service) Search(ctx context.Context, filter SearchFilter) (pagination.Meta, error) {
	service.Listings.Begin()

	raw, err := service.api.GetRaw(ctx, "/api/cars", filter.query())
	if err != nil {
		service.Listings.Fail(apperr.Message(err))
		return pagination.Meta{}, err
	}

	page, err := api.DecodePage[Car](raw)
	if err != nil {
		service.Listings.Fail(apperr.Message(err))
		return pagination.Meta{}, err
	}

	service.Listings.SetItems(page.Items)
	return page.Meta, nil
}

// Get fetches a single listing by id. Does not touch the listings mirror.
func (service *Service) Get(ctx context.Context, carID string) (*Car, error) {
	var car Car
	if err := service.api.Get(ctx, "/api/cars/"+carID, nil, &car); err != nil {
		return nil, err
	}
	return &car, nil
}

// Create publishes a listing and inserts it at the head of the mirror.
func (service *Service) Create(ctx context.Context, input CarInput) (*Car, error) {
	if err := validateCar(input); err != nil {
		return nil, err
	}

	var car Car
	if err := service.api.Post(ctx, "/api/cars", input, &car); err != nil {
		service.Listings.Fail(apperr.Message(err))
		return nil, err
	}

	service.Listings.Prepend(car)
	return &car, nil
}

// Update saves listing edits and replaces the mirrored copy by id.
func (service *Service) Update(ctx context.Context, carID string, input CarInput) (*Car, error) {
	if err := validateCar(input); err != nil {
		return nil, err
	}

	var car Car
	if err := service.api.Put(ctx, "/api/cars/"+carID, input, &car); err != nil {
		service.Listings.Fail(apperr.Message(err))
		return nil, err
	}

	service.Listings.Upsert(car)
	service.Favourites.Upsert(car)
	return &car, nil
}

// Delete removes a listing and filters it out of every mirror.
func (service *Service) Delete(ctx context.Context, carID string) error {
	if err := service.api.Delete(ctx, "/api/cars/"+carID, nil); err != nil {
		service.Listings.Fail(apperr.Message(err))
		return err
	}

	service.Listings.RemoveByID(carID)
	service.Favourites.RemoveByID(carID)
	return nil
}

// # Comments & Ratings

// LoadComments replaces the comment mirror with the listing's comments.
func (service *Service) LoadComments(ctx context.Context, carID string) error {
	service.Comments.Begin()

	var comments []Comment
	if err := service.api.Get(ctx, "/api/cars/"+carID+"/comments", nil, &comments); err != nil {
		service.Comments.Fail(apperr.Message(err))
		return err
	}

	service.Comments.SetItems(comments)
	return nil
}

// AddComment posts a comment and inserts the persisted copy at the head.
func (service *Service) AddComment(ctx context.Context, carID, content string) (*Comment, error) {
	v := &validate.Validator{}
	if err := v.
		Required("content", content).
		MaxLen("content", content, 2000).
		Err(); err != nil {
		return nil, err
	}

	var comment Comment
	payload := map[string]string{"content": content}
	if err := service.api.Post(ctx, "/api/cars/"+carID+"/comments", payload, &comment); err != nil {
		service.Comments.Fail(apperr.Message(err))
		return nil, err
	}

	service.Comments.Prepend(comment)
	return &comment, nil
}

// DeleteComment removes a comment and filters it out of the mirror.
func (service *Service) DeleteComment(ctx context.Context, carID, commentID string) error {
	if err := service.api.Delete(ctx, "/api/cars/"+carID+"/comments/"+commentID, nil); err != nil {
		service.Comments.Fail(apperr.Message(err))
		return err
	}

	service.Comments.RemoveByID(commentID)
	return nil
}

// Rate submits a star rating. Re-rating replaces server-side; the returned
// summary carries the fresh aggregate for immediate display.
func (service *Service) Rate(ctx context.Context, carID string, stars int) (*RatingSummary, error) {
	v := &validate.Validator{}
	if err := v.Range("stars", stars, 1, 5).Err(); err != nil {
		return nil, err
	}

	var summary RatingSummary
	payload := map[string]int{"stars": stars}
	if err := service.api.Post(ctx, "/api/cars/"+carID+"/ratings", payload, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// RatingFor fetches the aggregate rating of a listing.
func (service *Service) RatingFor(ctx context.Context, carID string) (*RatingSummary, error) {
	var summary RatingSummary
	if err := service.api.Get(ctx, "/api/cars/"+carID+"/ratings", nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// # Favourites

// LoadFavourites replaces the favourites mirror wholesale.
func (service *Service) LoadFavourites(ctx context.Context) error {
	service.Favourites.Begin()

	var cars []Car
	if err := service.api.Get(ctx, "/api/favourites", nil, &cars); err != nil {
		service.Favourites.Fail(apperr.Message(err))
		return err
	}

	service.Favourites.SetItems(cars)
	return nil
}

// AddFavourite saves a listing to the user's favourites and mirrors it
// immediately; the server responds with the full car for the patch.
func (service *Service) AddFavourite(ctx context.Context, carID string) error {
	var car Car
	if err := service.api.Post(ctx, "/api/favourites/"+carID, nil, &car); err != nil {
		service.Favourites.Fail(apperr.Message(err))
		return err
	}

	service.Favourites.Prepend(car)
	return nil
}

// RemoveFavourite unsaves a listing and filters it out of the mirror.
func (service *Service) RemoveFavourite(ctx context.Context, carID string) error {
	if err := service.api.Delete(ctx, "/api/favourites/"+carID, nil); err != nil {
		service.Favourites.Fail(apperr.Message(err))
		return err
	}

	service.Favourites.RemoveByID(carID)
	return nil
}

// validateCar pre-flights the listing form.
func validateCar(input CarInput) error {
	v := &validate.Validator{}
	return v.
		Required("make", input.Make).
		Required("model", input.Model).
		Range("year", input.Year, 1900, time.Now().Year()+1).
		Custom("price", input.Price <= 0, "Must be a positive amount").
		Custom("mileage", input.Mileage < 0, "Must not be negative").
		MaxLen("description", input.Description, 5000).
		Err()
}
