package game

import (
	"sync"
	"sync/atomic"
)

// Registry is the authoritative in-memory map of room code -> room state.
// The registry mutex only guards the shape of the map; every room has its
// own entry mutex serializing all mutations of that room, so operations on
// different rooms never contend.
//
// Lock ordering: reg.mu may be taken, and then an entry lock while still
// holding it, but never the other way around. An entry lock is never held
// while acquiring reg.mu.
type Registry struct {
	mu      sync.Mutex
	rooms   map[string]*entry
	version atomic.Uint64
}

type entry struct {
	mu      sync.Mutex
	room    *Room
	removed bool
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*entry),
	}
}

// Create atomically checks the code and inserts a new room with its first
// player. At most one concurrent Create for a code succeeds; the rest get
// ErrCodeTaken.
//
// If bound is non-nil it runs with the new room's lock still held, after
// the insert: anything bound does (subscribing the creator's connection)
// is ordered before any other operation on the room.
func (reg *Registry) Create(code string, first Player, bound func(*Room)) (*Room, error) {
	reg.mu.Lock()

	if _, ok := reg.rooms[code]; ok {
		reg.mu.Unlock()
		return nil, ErrCodeTaken
	}

	e := &entry{room: NewRoom(code, first)}
	e.room.version = reg.version.Add(1)
	reg.rooms[code] = e

	e.mu.Lock()
	reg.mu.Unlock()
	defer e.mu.Unlock()

	if bound != nil {
		bound(e.room.Clone())
	}

	return e.room.Clone(), nil
}

// Get returns a snapshot of the room. Callers never see internal state and
// must not treat the copy as current across other calls.
func (reg *Registry) Get(code string) (*Room, error) {
	e, err := reg.lookup(code)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.removed {
		return nil, ErrRoomNotFound
	}

	return e.room.Clone(), nil
}

// Mutate applies fn to the room's current state under the room's lock and
// returns a snapshot of the result. fn sees live state, so any broadcasts
// it performs are ordered with the mutation it makes. Every committed
// mutation stamps the room with a registry-wide monotonic version.
//
// If fn leaves the room with no players, the entry is marked removed
// before its lock is released, so a racing Mutate or Get observes
// ErrRoomNotFound, never a resurrected room. The returned snapshot
// reports the deletion through an empty player list.
func (reg *Registry) Mutate(code string, fn func(*Room) error) (*Room, error) {
	e, err := reg.lookup(code)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()

	if e.removed {
		e.mu.Unlock()
		return nil, ErrRoomNotFound
	}

	if err := fn(e.room); err != nil {
		e.mu.Unlock()
		return nil, err
	}

	e.room.version = reg.version.Add(1)

	deleted := len(e.room.Players) == 0
	if deleted {
		e.removed = true
	}

	snapshot := e.room.Clone()
	e.mu.Unlock()

	if deleted {
		reg.mu.Lock()
		if reg.rooms[code] == e {
			delete(reg.rooms, code)
		}
		reg.mu.Unlock()
	}

	return snapshot, nil
}

// Delete removes the room if present. Idempotent. The entry is marked
// removed while both locks are held, which serializes the delete against
// any mutation already working on the entry.
func (reg *Registry) Delete(code string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	e, ok := reg.rooms[code]
	if !ok {
		return
	}

	e.mu.Lock()
	e.removed = true
	e.mu.Unlock()

	delete(reg.rooms, code)
}

// Len reports the number of live rooms.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}

func (reg *Registry) lookup(code string) (*entry, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	e, ok := reg.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return e, nil
}
