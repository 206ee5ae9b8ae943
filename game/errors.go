package game

import "errors"

var (
	ErrCodeTaken    = errors.New("room code already exists")
	ErrRoomNotFound = errors.New("room does not exist")
	ErrNameTaken    = errors.New("player already in room")
	ErrInvalidPhase = errors.New("operation not valid in current room status")
	ErrNoPrompts    = errors.New("no prompts available")
)
