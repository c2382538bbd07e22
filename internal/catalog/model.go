// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

/*
Package catalog implements the car-listing surface: search and CRUD over
listings, comments and ratings on a listing, and the user's favourites.

Local state follows the optimistic-cache discipline: mutations patch the
in-memory mirror (insert at head, replace by id, filter by id) instead of
forcing a refetch; full reconciliation happens only on the next explicit
fetch.
*/
package catalog

import (
	"net/url"
	"strconv"
	"time"

	"github.com/carvia/carvia-go/pkg/pagination"
)

// # Domain Entities

// Car is one marketplace listing.
type Car struct {
	ID           string    `json:"id"`
	Make         string    `json:"make"`
	Model        string    `json:"model"`
	Year         int       `json:"year"`
	Price        int64     `json:"price"`
	Mileage      int       `json:"mileage"`
	Description  string    `json:"description,omitempty"`
	Location     string    `json:"location,omitempty"`
	ImageURLs    []string  `json:"imageUrls,omitempty"`
	SellerID     string    `json:"sellerId"`
	DealershipID string    `json:"dealershipId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Comment is one user comment on a listing.
type Comment struct {
	ID        string    `json:"id"`
	CarID     string    `json:"carId"`
	AuthorID  string    `json:"authorId"`
	Author    string    `json:"author,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Rating is one user's star rating of a listing.
type Rating struct {
	ID    string `json:"id"`
	CarID string `json:"carId"`
	// UserID identifies the rater; one rating per user per car, the server
	// replaces on re-rate.
	UserID string `json:"userId"`
	Stars  int    `json:"stars"`
}

// RatingSummary is the aggregate the listing page renders.
type RatingSummary struct {
	CarID   string  `json:"carId"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// # Search

// SearchFilter narrows a listing search. Zero values mean "no constraint".
type SearchFilter struct {
	Query    string
	Make     string
	Model    string
	YearMin  int
	YearMax  int
	PriceMin int64
	PriceMax int64
	Params   pagination.Params
}

// query renders the filter as request query parameters.
func (f SearchFilter) query() url.Values {
	values := url.Values{}
	f.Params.Apply(values)

	setIfPresent(values, "q", f.Query)
	setIfPresent(values, "make", f.Make)
	setIfPresent(values, "model", f.Model)
	if f.YearMin > 0 {
		values.Set("year_min", strconv.Itoa(f.YearMin))
	}
	if f.YearMax > 0 {
		values.Set("year_max", strconv.Itoa(f.YearMax))
	}
	if f.PriceMin > 0 {
		values.Set("price_min", strconv.FormatInt(f.PriceMin, 10))
	}
	if f.PriceMax > 0 {
		values.Set("price_max", strconv.FormatInt(f.PriceMax, 10))
	}

	return values
}

func setIfPresent(values url.Values, key, value string) {
	if value != "" {
		values.Set(key, value)
	}
}

// CarInput carries the create/update form fields for a listing.
type CarInput struct {
	Make         string   `json:"make"`
	Model        string   `json:"model"`
	Year         int      `json:"year"`
	Price        int64    `json:"price"`
	Mileage      int      `json:"mileage"`
	Description  string   `json:"description,omitempty"`
	Location     string   `json:"location,omitempty"`
	ImageURLs    []string `json:"imageUrls,omitempty"`
	DealershipID string   `json:"dealershipId,omitempty"`
}
