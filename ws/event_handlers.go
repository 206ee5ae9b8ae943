package ws

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"sketchparty/game"
)

// User-facing failure messages sent in roomError events.
const (
	MsgRoomCodeTaken     = "Room code already exists!"
	MsgRoomNotFound      = "Room does not exist!"
	MsgNameTaken         = "Player already in room!"
	MsgMissingJoinFields = "Room code, player name, and character are required!"
)

// CreateRoomHandler creates a room with the requester as its first player,
// subscribes the connection to the room and echoes the room state back in a
// roomCreated event. Subscription and echo run inside the create itself, so
// no broadcast can slip between the room appearing and the creator hearing
// about it. Domain failures go back as roomError events; only transport
// faults are returned as errors.
func CreateRoomHandler(ctx context.Context, e Event, c *Client) error {
	var payload PayloadCreateRoom

	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return err
	}

	if err := c.manager.validate.Struct(payload); err != nil {
		return pushRoomError(c, MsgMissingJoinFields)
	}

	_, err := c.manager.service.CreateRoom(ctx, payload.RoomCode, payload.PlayerName, payload.SelectedCharacter, func(room *game.Room) {
		c.manager.Subscribe(c, room.Code, payload.PlayerName)
		if err := c.SendEvent(game.EventRoomCreated, room); err != nil {
			log.Error().Err(err).Str("room", room.Code).Msg("failed to echo created room")
		}
	})

	if errors.Is(err, game.ErrCodeTaken) {
		return pushRoomError(c, MsgRoomCodeTaken)
	}
	return err
}

// JoinRoomHandler adds the requester to an existing room. The members
// already in the room receive the updated room via the broadcast inside
// the join; the requester is subscribed and gets its roomJoined reply
// before the room's lock is released, so every later broadcast reaches it.
func JoinRoomHandler(ctx context.Context, e Event, c *Client) error {
	var payload PayloadJoinRoom

	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return err
	}

	if err := c.manager.validate.Struct(payload); err != nil {
		return pushRoomError(c, MsgMissingJoinFields)
	}

	_, err := c.manager.service.Join(ctx, payload.RoomCode, payload.PlayerName, payload.SelectedCharacter, func(room *game.Room) {
		c.manager.Subscribe(c, room.Code, payload.PlayerName)
		if err := c.SendEvent(game.EventRoomJoined, room); err != nil {
			log.Error().Err(err).Str("room", room.Code).Msg("failed to echo joined room")
		}
	})

	switch {
	case errors.Is(err, game.ErrRoomNotFound):
		return pushRoomError(c, MsgRoomNotFound)
	case errors.Is(err, game.ErrNameTaken):
		return pushRoomError(c, MsgNameTaken)
	}
	return err
}

func pushRoomError(c *Client, message string) error {
	evt, err := NewRoomError(message)
	if err != nil {
		return err
	}
	c.Send(evt)
	return nil
}
