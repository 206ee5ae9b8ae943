package util

import "fmt"

// Field names of the persisted room hash.
const (
	RoomCodeKey          = "code"
	RoomModeKey          = "mode"
	RoomStatusKey        = "status"
	RoomCurrentPromptKey = "current_prompt"
	RoomPlayersKey       = "players"
	RoomPromptsKey       = "prompts"
)

func GetRoomKey(code string) string {
	return fmt.Sprintf("room:%v", code)
}
