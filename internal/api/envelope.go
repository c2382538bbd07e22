// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

package api

import (
	"encoding/json"

	"github.com/carvia/carvia-go/internal/platform/validate"
	"github.com/carvia/carvia-go/pkg/pagination"
)

// envelope mirrors the backend's optional response wrapper. Some endpoints
// return bare resources, list endpoints wrap them in {data, meta}.
type envelope struct {
	Data json.RawMessage  `json:"data"`
	Meta *pagination.Meta `json:"meta"`
}

// Page pairs decoded list items with their pagination metadata.
type Page[T any] struct {
	Items []T
	Meta  pagination.Meta
}

// decodeEnvelope decodes a success body into out, unwrapping the {data}
// envelope when present.
func decodeEnvelope(raw []byte, out any) error {
	var wrapped envelope
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Data != nil {
		raw = wrapped.Data
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

// DecodePage decodes a paginated list body. Bare arrays are accepted and get
// zero-valued metadata, so the caller renders them as a single page.
func DecodePage[T any](raw []byte) (Page[T], error) {
	var page Page[T]

	var wrapped envelope
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Data != nil {
		if wrapped.Meta != nil {
			page.Meta = *wrapped.Meta
		}
		raw = wrapped.Data
	}

	if err := json.Unmarshal(raw, &page.Items); err != nil {
		return Page[T]{}, validate.ErrInvalidJSON
	}
	return page, nil
}
