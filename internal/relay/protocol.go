// Package relay defines the JSON event envelope exchanged over each
// WebSocket connection and the payloads carried by each event.
package relay

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Event names on the wire.
const (
	EventCreateRoom       = "createRoom"
	EventUpdateGameState  = "updateGameState"
	EventRequestGameState = "requestGameState"
	EventRoomJoined       = "roomJoined"
	EventGameStateUpdated = "gameStateUpdated"
	EventError            = "error"
)

var (
	// ErrMalformed marks frames that are not a valid envelope or payload.
	ErrMalformed = errors.New("malformed message")
	// ErrUnknownEvent marks envelopes naming an event the relay does not handle.
	ErrUnknownEvent = errors.New("unknown event")
)

// Envelope is one frame: an event name and its JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// CreateRoomPayload is the data of a createRoom event.
type CreateRoomPayload struct {
	RoomCode string `json:"roomCode"`
	Role     Role   `json:"role"`
}

// RoomJoinedPayload acknowledges a createRoom event.
type RoomJoinedPayload struct {
	RoomCode string `json:"roomCode"`
	Role     Role   `json:"role"`
}

// UpdateGameStatePayload is the data of an updateGameState event. GameState
// is relayed verbatim.
type UpdateGameStatePayload struct {
	RoomCode  string          `json:"roomCode"`
	GameState json.RawMessage `json:"gameState"`
}

// RequestGameStatePayload is the data of a requestGameState event.
type RequestGameStatePayload struct {
	RoomCode string `json:"roomCode"`
}

// ErrorPayload is sent back to a connection whose frame was rejected.
type ErrorPayload struct {
	Message string `json:"message"`
}

// DecodeEnvelope parses a raw frame. Errors wrap ErrMalformed.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("%w: missing event name", ErrMalformed)
	}
	return env, nil
}

// DecodePayload unmarshals the envelope data into v. Errors wrap ErrMalformed.
func DecodePayload(env Envelope, v any) error {
	if len(env.Data) == 0 {
		return fmt.Errorf("%w: %s has no data", ErrMalformed, env.Event)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("%w: %s data: %v", ErrMalformed, env.Event, err)
	}
	return nil
}

// EncodeEvent marshals an event and its payload into a frame.
func EncodeEvent(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s data: %w", event, err)
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: raw})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}
	return frame, nil
}
