package game

import (
	"context"
	"time"

	"github.com/samber/lo"
)

// RoomStore mirrors committed room state to external storage. The in-memory
// registry stays the source of truth for the live session; a store failure
// is logged and never rolls back state already broadcast to players.
type RoomStore interface {
	SaveRoom(ctx context.Context, room *Room) error
	DeleteRoom(ctx context.Context, code string) error
}

const persistTimeout = 5 * time.Second

// Service applies membership and phase-transition operations to the
// registry, publishes the resulting events, and schedules write-behind
// persistence. All mutations of one room are serialized by the registry.
type Service struct {
	registry *Registry
	bus      Broadcaster
	mirror   *persister
}

// NewService wires the coordinator. store may be nil, which disables
// persistence entirely.
func NewService(registry *Registry, bus Broadcaster, store RoomStore) *Service {
	s := &Service{
		registry: registry,
		bus:      bus,
	}
	if store != nil {
		s.mirror = newPersister(store)
	}
	return s
}

// CreateRoom inserts a new room with its creator as the only player.
// The code is generated client-side; only uniqueness is checked here.
//
// bound, when non-nil, runs while the room is still locked, so the caller
// can attach the creator's connection before any other operation touches
// the room. Events published afterwards are guaranteed to reach it.
func (s *Service) CreateRoom(ctx context.Context, code, playerName, character string, bound func(*Room)) (*Room, error) {
	room, err := s.registry.Create(code, NewPlayer(playerName, character), bound)
	if err != nil {
		return nil, err
	}

	s.persist(room)
	return room, nil
}

// Join appends a player to the room and broadcasts the updated room to the
// members already subscribed. Display names are unique within a room.
//
// bound runs under the room's lock after the broadcast, like CreateRoom's:
// the joiner's connection can be attached with no delivery gap.
func (s *Service) Join(ctx context.Context, code, playerName, character string, bound func(*Room)) (*Room, error) {
	room, err := s.registry.Mutate(code, func(r *Room) error {
		if r.HasPlayer(playerName) {
			return ErrNameTaken
		}
		r.Players = append(r.Players, NewPlayer(playerName, character))
		s.bus.Publish(code, EventRoomJoined, r.Clone())
		if bound != nil {
			bound(r.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.persist(room)
	return room, nil
}

// Leave removes the named player. Removing a player that already left is a
// no-op, since a disconnect can race an explicit leave. The last player
// leaving deletes the room; otherwise the remaining members are told who
// left. Returns the room after removal and whether it was deleted.
func (s *Service) Leave(ctx context.Context, code, playerName string) (*Room, bool, error) {
	room, err := s.registry.Mutate(code, func(r *Room) error {
		if !r.HasPlayer(playerName) {
			return nil
		}
		r.RemovePlayer(playerName)
		if len(r.Players) > 0 {
			s.bus.Publish(code, EventPlayerLeft, PlayerLeftPayload{PlayerName: playerName})
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if len(room.Players) == 0 {
		s.persistDelete(room)
		return room, true, nil
	}

	s.persist(room)
	return room, false, nil
}

// GetRoom returns a snapshot for read endpoints.
func (s *Service) GetRoom(ctx context.Context, code string) (*Room, error) {
	return s.registry.Get(code)
}

// StartGame moves the room from waiting into the prompt phase with the
// chosen mode and tells every member. Starting a room that is already past
// waiting is rejected with ErrInvalidPhase.
func (s *Service) StartGame(ctx context.Context, code, mode string) (*Room, error) {
	room, err := s.registry.Mutate(code, func(r *Room) error {
		if r.Status != StatusWaiting {
			return ErrInvalidPhase
		}
		r.Mode = mode
		r.Status = StatusPrompt
		s.bus.Publish(code, EventStartGame, StartGamePayload{Mode: mode})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.persist(room)
	return room, nil
}

// SubmitPrompt appends text to the room's prompt pool. Only valid during
// the prompt phase; it does not itself advance the status.
func (s *Service) SubmitPrompt(ctx context.Context, code, text string) error {
	room, err := s.registry.Mutate(code, func(r *Room) error {
		if r.Status != StatusPrompt {
			return ErrInvalidPhase
		}
		r.Prompts = append(r.Prompts, text)
		return nil
	})
	if err != nil {
		return err
	}

	s.persist(room)
	return nil
}

// DrawRandomPrompt picks one prompt uniformly at random from the pool and
// makes it the room's current prompt, advancing the room into the drawing
// phase. The pool is not consumed, so repeated draws re-sample each time.
func (s *Service) DrawRandomPrompt(ctx context.Context, code string) (string, error) {
	var choice string
	room, err := s.registry.Mutate(code, func(r *Room) error {
		if len(r.Prompts) == 0 {
			return ErrNoPrompts
		}
		if r.Status != StatusPrompt && r.Status != StatusDrawing {
			return ErrInvalidPhase
		}
		choice = lo.Sample(r.Prompts)
		r.CurrentPrompt = choice
		r.Status = StatusDrawing
		return nil
	})
	if err != nil {
		return "", err
	}

	s.persist(room)
	return choice, nil
}

// Complete moves a drawing room to its terminal status. The coordinator
// only exposes the hook; deciding when a round is over belongs to the
// scoring/reveal flow outside this process.
func (s *Service) Complete(ctx context.Context, code string) (*Room, error) {
	room, err := s.registry.Mutate(code, func(r *Room) error {
		if r.Status != StatusDrawing {
			return ErrInvalidPhase
		}
		r.Status = StatusCompleted
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.persist(room)
	return room, nil
}

// persist mirrors the committed room state to the store in the background.
// The caller's context is deliberately not used: a disconnecting client
// must not cancel the write of state other players already saw.
func (s *Service) persist(room *Room) {
	if s.mirror == nil {
		return
	}
	go s.mirror.save(room)
}

// persistDelete takes the final snapshot rather than a bare code so the
// delete carries the version of the mutation that emptied the room.
func (s *Service) persistDelete(room *Room) {
	if s.mirror == nil {
		return
	}
	go s.mirror.remove(room.Code, room.version)
}
