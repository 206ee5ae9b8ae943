package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"sketchparty/game"
	"sketchparty/util"
)

// Rooms expire on their own; a session never legitimately outlives this.
const roomTTL = 12 * time.Hour

// RedisRoomStore mirrors room state into a Redis hash per room. It is a
// write-behind copy of the in-memory registry, not a source of truth: the
// coordinator never reads it back during a live session.
type RedisRoomStore struct {
	rdb *redis.Client
}

func NewRedisRoomStore(rdb *redis.Client) *RedisRoomStore {
	return &RedisRoomStore{rdb: rdb}
}

func (s *RedisRoomStore) SaveRoom(ctx context.Context, room *game.Room) error {
	fields, err := roomFields(room)
	if err != nil {
		return err
	}

	key := util.GetRoomKey(room.Code)

	if err := s.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return err
	}

	return s.rdb.Expire(ctx, key, roomTTL).Err()
}

func (s *RedisRoomStore) DeleteRoom(ctx context.Context, code string) error {
	return s.rdb.Del(ctx, util.GetRoomKey(code)).Err()
}

func roomFields(room *game.Room) (map[string]any, error) {
	players, err := json.Marshal(room.Players)
	if err != nil {
		return nil, err
	}

	prompts, err := json.Marshal(room.Prompts)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		util.RoomCodeKey:          room.Code,
		util.RoomModeKey:          room.Mode,
		util.RoomStatusKey:        string(room.Status),
		util.RoomCurrentPromptKey: room.CurrentPrompt,
		util.RoomPlayersKey:       players,
		util.RoomPromptsKey:       prompts,
	}, nil
}
