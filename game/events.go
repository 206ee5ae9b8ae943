package game

// Outbound event names of the room protocol. The ws package delivers these
// to subscribed connections; payload shapes live next to the names.
const (
	EventRoomCreated = "roomCreated"
	EventRoomJoined  = "roomJoined"
	EventRoomError   = "roomError"
	EventPlayerLeft  = "playerLeft"
	EventStartGame   = "startGame"
)

type PlayerLeftPayload struct {
	PlayerName string `json:"playerName"`
}

type StartGamePayload struct {
	Mode string `json:"mode"`
}

// Broadcaster fans an event out to every connection currently subscribed
// to a room. Publishing to a room with no subscribers is a silent no-op.
type Broadcaster interface {
	Publish(code string, event string, payload any)
}
