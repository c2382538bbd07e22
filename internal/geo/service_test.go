// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

package geo_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carvia/carvia-go/internal/api"
	"github.com/carvia/carvia-go/internal/geo"
)

type anonTokens struct{}

func (anonTokens) AccessToken() (string, bool) { return "", false }

func newService(t *testing.T) (*geo.Service, *chi.Mux) {
	t.Helper()

	router := chi.NewRouter()
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	client, err := api.New(server.URL, anonTokens{})
	require.NoError(t, err)

	return geo.NewService(client), router
}

/*
TestService_Forward verifies the query lands as a parameter and results
decode in order.
*/
func TestService_Forward(t *testing.T) {
	service, router := newService(t)
	router.Get("/api/geo/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Berlin", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]geo.Location{
			{DisplayName: "Berlin, Germany", Latitude: 52.52, Longitude: 13.405},
		})
	})

	locations, err := service.Forward(context.Background(), "Berlin")

	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, "Berlin, Germany", locations[0].DisplayName)
}

/*
TestService_ReverseBounds verifies out-of-range coordinates are rejected
before any request.
*/
func TestService_ReverseBounds(t *testing.T) {
	service, _ := newService(t)

	_, err := service.Reverse(context.Background(), 91, 0)
	require.Error(t, err)

	_, err = service.Reverse(context.Background(), 0, -190)
	require.Error(t, err)
}
