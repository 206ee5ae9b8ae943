package game

import (
	"fmt"

	"github.com/samber/lo"
)

// Status is a room's position in the fixed lifecycle
// waiting -> prompt -> drawing -> completed.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusPrompt    Status = "prompt"
	StatusDrawing   Status = "drawing"
	StatusCompleted Status = "completed"
)

// DefaultMode is the game mode a room starts with.
const DefaultMode = "prompt"

// next maps each status to the only status it may advance to.
// There are no back-transitions; completed is terminal.
var next = map[Status]Status{
	StatusWaiting: StatusPrompt,
	StatusPrompt:  StatusDrawing,
	StatusDrawing: StatusCompleted,
}

func (s Status) CanAdvanceTo(target Status) bool {
	return next[s] == target
}

type Player struct {
	Name           string `json:"name"`
	Character      string `json:"character"`
	CharacterImage string `json:"characterImage"`
}

// NewPlayer builds a player with the display path for its avatar derived
// from the character name. Clients send an image path too, but it is never
// trusted; the character alone determines it.
func NewPlayer(name, character string) Player {
	return Player{
		Name:           name,
		Character:      character,
		CharacterImage: CharacterImagePath(character),
	}
}

func CharacterImagePath(character string) string {
	return fmt.Sprintf("images/%s.png", character)
}

type Room struct {
	Code          string   `json:"roomCode"`
	Players       []Player `json:"players"`
	Mode          string   `json:"mode"`
	Prompts       []string `json:"prompts"`
	Status        Status   `json:"status"`
	CurrentPrompt string   `json:"currentPrompt"`

	// version orders committed snapshots of the same code for the
	// write-behind mirror. Assigned by the registry, never serialized.
	version uint64
}

func NewRoom(code string, first Player) *Room {
	return &Room{
		Code:    code,
		Players: []Player{first},
		Mode:    DefaultMode,
		Prompts: []string{},
		Status:  StatusWaiting,
	}
}

func (r *Room) HasPlayer(name string) bool {
	return lo.SomeBy(r.Players, func(p Player) bool {
		return p.Name == name
	})
}

// RemovePlayer removes the named player, preserving join order of the rest.
// Removing an absent player is a no-op.
func (r *Room) RemovePlayer(name string) {
	_, idx, ok := lo.FindIndexOf(r.Players, func(p Player) bool {
		return p.Name == name
	})
	if !ok {
		return
	}
	r.Players = append(r.Players[:idx], r.Players[idx+1:]...)
}

// Clone returns a deep copy safe to hand to readers and broadcast payloads
// after the room's lock is released.
func (r *Room) Clone() *Room {
	c := *r
	c.Players = make([]Player, len(r.Players))
	copy(c.Players, r.Players)
	c.Prompts = make([]string, len(r.Prompts))
	copy(c.Prompts, r.Prompts)
	return &c
}
