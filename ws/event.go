package ws

import (
	"context"
	"encoding/json"

	"sketchparty/game"
)

// Event is the frame exchanged over a websocket connection. Type names the
// protocol event; Payload stays raw until a handler knows its shape.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type EventHandler func(ctx context.Context, evt Event, c *Client) error

// Inbound event types. Outbound types are the game package's event names.
const (
	EventCreateRoom = "createRoom"
	EventJoinRoom   = "joinRoom"
	EventError      = "error"
)

type PayloadCreateRoom struct {
	PlayerName             string `json:"playerName" validate:"required"`
	RoomCode               string `json:"roomCode" validate:"required"`
	SelectedCharacter      string `json:"selectedCharacter" validate:"required"`
	SelectedCharacterImage string `json:"selectedCharacterImage"`
}

type PayloadJoinRoom struct {
	RoomCode               string `json:"roomCode" validate:"required"`
	PlayerName             string `json:"playerName" validate:"required"`
	SelectedCharacter      string `json:"selectedCharacter" validate:"required"`
	SelectedCharacterImage string `json:"selectedCharacterImage"`
}

type PayloadError struct {
	Message string `json:"message"`
}

func NewEvent(evtType string, payload any) (Event, error) {
	b, err := json.Marshal(payload)

	if err != nil {
		return Event{}, err
	}

	return Event{Type: evtType, Payload: b}, nil
}

// NewRoomError wraps a user-facing failure message in the protocol's
// roomError event.
func NewRoomError(message string) (Event, error) {
	return NewEvent(game.EventRoomError, PayloadError{Message: message})
}

// NewErrorEvent reports a transport-level fault (bad frame, marshal error)
// back to the connection that caused it.
func NewErrorEvent(message string) (Event, error) {
	return NewEvent(EventError, PayloadError{Message: message})
}
