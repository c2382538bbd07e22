// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"nhooyr.io/websocket"
)

// The hub speaks a JSON frame protocol over one websocket: frames are JSON
// documents terminated by the 0x1e record separator, and a connection opens
// with a protocol handshake before any hub traffic flows.

// recordSeparator terminates every frame on the wire.
const recordSeparator = 0x1e

// Frame type discriminators.
const (
	frameInvocation = 1
	framePing       = 6
	frameClose      = 7
)

// handshakeRequest is the first frame sent after the socket opens.
type handshakeRequest struct {
	Protocol string `json:"protocol"`
	Version  int    `json:"version"`
}

// handshakeResponse acknowledges (or rejects) the protocol selection.
type handshakeResponse struct {
	Error string `json:"error,omitempty"`
}

// frame is one hub message in either direction.
type frame struct {
	Type         int               `json:"type"`
	Target       string            `json:"target,omitempty"`
	Arguments    []json.RawMessage `json:"arguments,omitempty"`
	InvocationID string            `json:"invocationId,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// writeFrame marshals and sends one frame with its terminator.
func writeFrame(ctx context.Context, conn *websocket.Conn, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("realtime_encode_frame_failed: %w", err)
	}
	return conn.Write(ctx, websocket.MessageText, append(raw, recordSeparator))
}

// splitFrames separates a websocket message into its JSON frames. The server
// may batch several frames into one transport message.
func splitFrames(data []byte) [][]byte {
	var frames [][]byte
	for _, chunk := range bytes.Split(data, []byte{recordSeparator}) {
		if len(bytes.TrimSpace(chunk)) > 0 {
			frames = append(frames, chunk)
		}
	}
	return frames
}

// handshake performs the protocol negotiation on a fresh socket.
func handshake(ctx context.Context, conn *websocket.Conn) error {
	if err := writeFrame(ctx, conn, handshakeRequest{Protocol: "json", Version: 1}); err != nil {
		return fmt.Errorf("realtime_handshake_send_failed: %w", err)
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		return fmt.Errorf("realtime_handshake_read_failed: %w", err)
	}

	frames := splitFrames(data)
	if len(frames) == 0 {
		return fmt.Errorf("realtime_handshake_empty_response")
	}

	var response handshakeResponse
	if err := json.Unmarshal(frames[0], &response); err != nil {
		return fmt.Errorf("realtime_handshake_decode_failed: %w", err)
	}
	if response.Error != "" {
		return fmt.Errorf("realtime_handshake_rejected: %s", response.Error)
	}

	return nil
}
