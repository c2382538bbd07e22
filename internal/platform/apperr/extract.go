// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

package apperr

import (
	"encoding/json"
	"sort"
	"strings"
)

// GenericFallback is rendered when no better message can be derived from a
// failure payload.
const GenericFallback = "Something went wrong. Please try again."

// problemMetaKeys are the RFC 7807 envelope keys that never hold field-level
// validation messages and are skipped when scanning a payload's own keys.
var problemMetaKeys = map[string]struct{}{
	"type":    {},
	"title":   {},
	"status":  {},
	"traceId": {},
	"errors":  {},
}

/*
ExtractMessage derives the single human-readable message for an error response
body. The backend emits ProblemDetails-shaped bodies whose validation errors
arrive either under an "errors" map or inlined at the top level, and this
algorithm is a compatibility contract with that shape:

 1. A plain string payload is returned verbatim.
 2. A non-empty "errors" object (field → string|[]string) is flattened and
    joined with ". ".
 3. Otherwise the payload's own keys (excluding type, title, status, traceId,
    errors) are scanned for the same field → string|[]string shape, flattened
    and joined the same way.
 4. Otherwise the first present of title, message, data.message, error.message
    is used, else [GenericFallback].

Field order within a map is not defined by the backend, so fields are
flattened in sorted-key order to keep the output deterministic.
*/
func ExtractMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return GenericFallback
	}

	// 1. String payloads come back verbatim: either a JSON-encoded string or
	// a non-JSON body (e.g. a bare text/plain error).
	var asString string
	if err := json.Unmarshal(body, &asString); err == nil {
		return asString
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return trimmed
	}

	// 2. The dedicated validation-error map.
	if raw, ok := payload["errors"]; ok {
		if flat := flattenFieldMap(raw); flat != "" {
			return flat
		}
	}

	// 3. Validation messages inlined at the top level.
	if flat := flattenOwnKeys(payload); flat != "" {
		return flat
	}

	// 4. Fallback chain.
	for _, candidate := range []func() string{
		func() string { return stringField(payload, "title") },
		func() string { return stringField(payload, "message") },
		func() string { return nestedStringField(payload, "data", "message") },
		func() string { return nestedStringField(payload, "error", "message") },
	} {
		if msg := candidate(); msg != "" {
			return msg
		}
	}

	return GenericFallback
}

// flattenFieldMap flattens a field → string|[]string object into one string.
// Returns "" when the value is not such an object or carries no messages.
func flattenFieldMap(raw json.RawMessage) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ""
	}
	return joinFieldMessages(fields, false)
}

// flattenOwnKeys treats the payload itself as a field map, skipping the
// ProblemDetails envelope keys.
func flattenOwnKeys(payload map[string]json.RawMessage) string {
	return joinFieldMessages(payload, true)
}

// joinFieldMessages collects every string or []string value in sorted-key
// order and joins the messages with ". ".
func joinFieldMessages(fields map[string]json.RawMessage, skipMeta bool) string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		if skipMeta {
			if _, meta := problemMetaKeys[key]; meta {
				continue
			}
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var messages []string
	for _, key := range keys {
		raw := fields[key]

		var single string
		if err := json.Unmarshal(raw, &single); err == nil {
			messages = append(messages, single)
			continue
		}

		var many []string
		if err := json.Unmarshal(raw, &many); err == nil {
			messages = append(messages, many...)
		}
	}

	return strings.Join(messages, ". ")
}

// stringField returns the payload key's value when it is a plain string.
func stringField(payload map[string]json.RawMessage, key string) string {
	raw, ok := payload[key]
	if !ok {
		return ""
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}
	return value
}

// nestedStringField returns payload[outer][inner] when present as a string.
func nestedStringField(payload map[string]json.RawMessage, outer, inner string) string {
	raw, ok := payload[outer]
	if !ok {
		return ""
	}
	var nested map[string]json.RawMessage
	if err := json.Unmarshal(raw, &nested); err != nil {
		return ""
	}
	return stringField(nested, inner)
}
