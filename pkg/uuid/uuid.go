// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

/*
Package uuid provides time-ordered unique identifiers for the client.

It wraps the standard UUID library to specifically generate Version 7 values,
which sort naturally by creation time (millisecond precision). The client uses
them for realtime invocation ids and log correlation.
*/
package uuid

import "github.com/google/uuid"

// # Generators

// New generates a new UUIDv7 string.
func New() string {

	// Create a new version 7 UUID (time-sortable)
	id, err := uuid.NewV7()

	// entropy failure is an unrecoverable system-level error
	if err != nil {
		panic("uuidv7: failed to generate UUID: " + err.Error())
	}

	// Convert the UUID to a string
	return id.String()
}
