// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/carvia/carvia-go/internal/platform/constants"
	"github.com/carvia/carvia-go/internal/platform/ctxutil"
)

// # Transport Chain

// newTransportChain assembles the client-side request decorators:
// auth interceptor → request-id → activity log → default transport.
func newTransportChain(tokens TokenSource) http.RoundTripper {
	var chain http.RoundTripper = http.DefaultTransport
	chain = &loggingTransport{next: chain}
	chain = &requestIDTransport{next: chain}
	chain = &authTransport{next: chain, tokens: tokens}
	return chain
}

// authTransport attaches the bearer token to every outgoing request.
//
// This is the single place Authorization is set — individual services never
// touch the header, so token handling cannot drift between resources.
type authTransport struct {
	next   http.RoundTripper
	tokens TokenSource
}

func (transport *authTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	if token, ok := transport.tokens.AccessToken(); ok {
		cloned := request.Clone(request.Context())
		cloned.Header.Set(constants.HeaderAuthorization, "Bearer "+token)
		return transport.next.RoundTrip(cloned)
	}
	return transport.next.RoundTrip(request)
}

// requestIDTransport attaches a correlation ID to every request for log
// tracing, reusing one provided via context when present.
type requestIDTransport struct {
	next http.RoundTripper
}

func (transport *requestIDTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	requestID := ctxutil.GetRequestID(request.Context())

	// Generate a new one if missing (UUID v7 for time-sortable properties).
	if requestID == "" {
		uuidV7, err := uuid.NewV7()
		if err != nil {
			requestID = uuid.New().String()
		} else {
			requestID = uuidV7.String()
		}
	}

	cloned := request.Clone(request.Context())
	cloned.Header.Set(constants.HeaderXRequestID, requestID)
	return transport.next.RoundTrip(cloned)
}

// loggingTransport logs every call's status and duration at debug level.
type loggingTransport struct {
	next http.RoundTripper
}

func (transport *loggingTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	startTime := time.Now()
	logger := ctxutil.GetLogger(request.Context())

	response, err := transport.next.RoundTrip(request)

	attrs := []any{
		slog.String("method", request.Method),
		slog.String("path", request.URL.Path),
		slog.Duration("duration", time.Since(startTime)),
	}
	if err != nil {
		logger.Debug("api_request_failed", append(attrs, slog.String("error", err.Error()))...)
		return response, err
	}

	logger.Debug("api_request", append(attrs, slog.Int("status", response.StatusCode))...)
	return response, nil
}
