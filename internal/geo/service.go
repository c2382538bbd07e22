// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

// Package geo implements the geocoding calls behind listing locations:
// resolving a free-text address to coordinates and coordinates back to a
// display name. The API proxies the upstream geocoder, so the client only
// ever talks to its own backend.
package geo

import (
	"context"
	"net/url"
	"strconv"

	"github.com/carvia/carvia-go/internal/api"
	"github.com/carvia/carvia-go/internal/platform/validate"
)

// Location is one geocoding result.
type Location struct {
	DisplayName string  `json:"displayName"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	City        string  `json:"city,omitempty"`
	Country     string  `json:"country,omitempty"`
}

// Service exposes the two geocoding directions.
type Service struct {
	api *api.Client
}

// NewService constructs the geo Service.
func NewService(client *api.Client) *Service {
	return &Service{api: client}
}

// Forward resolves a free-text query to candidate locations, best first.
func (service *Service) Forward(ctx context.Context, query string) ([]Location, error) {
	v := &validate.Validator{}
	if err := v.Required("query", query).Err(); err != nil {
		return nil, err
	}

	values := url.Values{}
	values.Set("q", query)

	var locations []Location
	if err := service.api.Get(ctx, "/api/geo/search", values, &locations); err != nil {
		return nil, err
	}
	return locations, nil
}

// Reverse resolves coordinates to the nearest display name.
func (service *Service) Reverse(ctx context.Context, latitude, longitude float64) (*Location, error) {
	v := &validate.Validator{}
	if err := v.
		Custom("latitude", latitude < -90 || latitude > 90, "Must be between -90 and 90").
		Custom("longitude", longitude < -180 || longitude > 180, "Must be between -180 and 180").
		Err(); err != nil {
		return nil, err
	}

	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(latitude, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(longitude, 'f', -1, 64))

	var location Location
	if err := service.api.Get(ctx, "/api/geo/reverse", values, &location); err != nil {
		return nil, err
	}
	return &location, nil
}
