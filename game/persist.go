package game

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// persister serializes write-behind store operations per room. Mutations
// spawn their own goroutines, so without this two writes for the same code
// could reach the store out of commit order and leave the mirror on a stale
// snapshot, or let a save land after the room's delete.
//
// Each code gets a mirror holding the version last applied to the store.
// Store calls for one code run under the mirror's lock, and a snapshot
// older than what is already applied is dropped. Versions are assigned by
// the registry and are monotonic across a code's whole lifetime, including
// re-creation after deletion, so a mirror entry outliving its room can
// never swallow a fresh room's writes.
type persister struct {
	store RoomStore

	mu      sync.Mutex
	mirrors map[string]*mirror
}

type mirror struct {
	mu      sync.Mutex
	applied uint64
}

func newPersister(store RoomStore) *persister {
	return &persister{
		store:   store,
		mirrors: make(map[string]*mirror),
	}
}

func (p *persister) save(room *Room) {
	m := p.forRoom(room.Code)
	m.mu.Lock()
	defer m.mu.Unlock()

	if room.version <= m.applied {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := p.store.SaveRoom(ctx, room); err != nil {
		log.Error().Err(err).Str("room", room.Code).Msg("failed to persist room")
		return
	}

	m.applied = room.version
}

func (p *persister) remove(code string, version uint64) {
	m := p.forRoom(code)
	m.mu.Lock()
	defer m.mu.Unlock()

	if version <= m.applied {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := p.store.DeleteRoom(ctx, code); err != nil {
		log.Error().Err(err).Str("room", code).Msg("failed to delete persisted room")
		return
	}

	m.applied = version
}

func (p *persister) forRoom(code string) *mirror {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, ok := p.mirrors[code]
	if !ok {
		m = &mirror{}
		p.mirrors[code] = m
	}
	return m
}
