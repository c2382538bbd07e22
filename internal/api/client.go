// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

/*
Package api implements the REST boundary of the Carvia client.

Every data-access service goes through one [Client]: a thin JSON/HTTPS layer
that attaches the bearer token uniformly (a single interceptor, never per
call site), converts failure bodies into [apperr.AppError] values via the
shared extraction algorithm, and rate-limits outbound traffic as a courtesy
to the backend.

Architecture:

  - Client: JSON verb helpers over one *http.Client.
  - Transport chain: auth interceptor → request-id → activity log, the
    client-side mirror of a server middleware stack.
  - Envelope: Success bodies may arrive bare or wrapped in {data, meta};
    both are handled transparently.

Failures never escape as panics and never auto-retry; the caller always gets
a sentinel plus an [apperr.AppError] to render.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/carvia/carvia-go/internal/platform/apperr"
	"github.com/carvia/carvia-go/internal/platform/constants"
)

// TokenSource supplies the current bearer token, if any. The session store
// implements this; the indirection keeps api free of session dependencies.
type TokenSource interface {
	// AccessToken returns the token and whether a valid one is present.
	AccessToken() (string, bool)
}

// Client is the shared REST client every service is constructed with.
//
// # Concurrency
//
// Client is safe for concurrent use; it carries no per-call state.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	limiter *rate.Limiter
}

// New constructs a Client for the given base URL.
func New(baseURL string, tokens TokenSource) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("api: invalid base URL %q: %w", baseURL, err)
	}

	return &Client{
		baseURL: parsed,
		http: &http.Client{
			Timeout:   constants.DefaultRequestTimeout,
			Transport: newTransportChain(tokens),
		},
		limiter: rate.NewLimiter(rate.Limit(constants.DefaultRateLimitRPS), constants.DefaultRateLimitBurst),
	}, nil
}

// # Verb Helpers

// Get performs a GET and decodes the response into out (out may be nil).
func (client *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return client.do(ctx, http.MethodGet, path, query, nil, out)
}

// Post performs a POST with a JSON body.
func (client *Client) Post(ctx context.Context, path string, body, out any) error {
	return client.do(ctx, http.MethodPost, path, nil, body, out)
}

// Put performs a PUT with a JSON body.
func (client *Client) Put(ctx context.Context, path string, body, out any) error {
	return client.do(ctx, http.MethodPut, path, nil, body, out)
}

// Delete performs a DELETE. Most delete endpoints return no body.
func (client *Client) Delete(ctx context.Context, path string, out any) error {
	return client.do(ctx, http.MethodDelete, path, nil, nil, out)
}

// GetRaw performs a GET and returns the undecoded success body. List
// endpoints use this with [DecodePage] to recover pagination metadata.
func (client *Client) GetRaw(ctx context.Context, path string, query url.Values) ([]byte, error) {
	var raw json.RawMessage
	if err := client.do(ctx, http.MethodGet, path, query, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// # Core Request Path

// do executes one request end to end. All failures come back as
// [apperr.AppError] values; the zero-value out is the failure sentinel.
func (client *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {

	// Courtesy throttle: smooth outbound bursts instead of slamming the API.
	if err := client.limiter.Wait(ctx); err != nil {
		return apperr.Connectivity(err)
	}

	target := client.baseURL.JoinPath(path)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return apperr.Connectivity(fmt.Errorf("api_encode_failed: %w", err))
		}
		reader = bytes.NewReader(raw)
	}

	request, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return apperr.Connectivity(fmt.Errorf("api_build_request_failed: %w", err))
	}
	if body != nil {
		request.Header.Set(constants.HeaderContentType, "application/json; charset=utf-8")
	}

	response, err := client.http.Do(request)
	if err != nil {
		// Network-level failure: transient, retryable by the USER, never
		// auto-retried here.
		return apperr.Connectivity(err)
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return apperr.Connectivity(fmt.Errorf("api_read_body_failed: %w", err))
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return client.failure(response.StatusCode, raw)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	// Raw sinks receive the body untouched, envelope and all.
	if rawOut, ok := out.(*json.RawMessage); ok {
		*rawOut = append((*rawOut)[:0], raw...)
		return nil
	}

	return decodeEnvelope(raw, out)
}

// failure maps a non-2xx response onto the error taxonomy.
func (client *Client) failure(status int, body []byte) error {
	// Authorization failures get a "please sign in" message, never a raw
	// HTTP code. Server-side revocation of an unexpired token surfaces here
	// on the next call; the client does not probe for it proactively.
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return apperr.Unauthorized()
	}

	return apperr.Server(status, apperr.ExtractMessage(body))
}
