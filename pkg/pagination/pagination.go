// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

// Package pagination provides shared types and helpers for API list endpoints.
//
// # Overview
//
// It standardizes how page-based navigation is requested via query parameters
// and how the resulting metadata is read back from the API response envelope.
package pagination

import (
	"net/url"
	"strconv"
)

const (
	// DefaultLimit is the number of items per page if not specified.
	DefaultLimit = 20
	// MaxLimit is the upper bound for items per page the backend accepts.
	MaxLimit = 100
	// DefaultPage is the starting page (1-indexed).
	DefaultPage = 1
)

// Params holds the page and limit sent as query parameters.
type Params struct {
	Page  int
	Limit int
}

// Normalize clamps invalid, negative, or excessive values to
// [DefaultPage], [DefaultLimit], or [MaxLimit].
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 || p.Limit > MaxLimit {
		p.Limit = DefaultLimit
	}
	return p
}

// Apply sets the "page" and "limit" query parameters on values.
func (p Params) Apply(values url.Values) {
	normalized := p.Normalize()
	values.Set("page", strconv.Itoa(normalized.Page))
	values.Set("limit", strconv.Itoa(normalized.Limit))
}

// Meta is the pagination metadata included in API list responses.
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// HasMore reports whether pages beyond the current one exist.
func (m Meta) HasMore() bool {
	return m.Page < m.TotalPages
}
