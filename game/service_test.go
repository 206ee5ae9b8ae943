package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type published struct {
	code    string
	event   string
	payload any
}

// recordingBus captures every publish so tests can assert on broadcast
// order and content.
type recordingBus struct {
	mu     sync.Mutex
	events []published
}

func (b *recordingBus) Publish(code string, event string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, published{code: code, event: event, payload: payload})
}

func (b *recordingBus) all() []published {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]published(nil), b.events...)
}

func (b *recordingBus) named(event string) []published {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []published
	for _, e := range b.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

type fakeStore struct {
	mu      sync.Mutex
	saved   []string
	deleted []string
	err     error
}

func (s *fakeStore) SaveRoom(ctx context.Context, room *Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, room.Code)
	return s.err
}

func (s *fakeStore) DeleteRoom(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, code)
	return s.err
}

func (s *fakeStore) savedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

func (s *fakeStore) deletedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.deleted)
}

func newTestService() (*Service, *recordingBus) {
	bus := &recordingBus{}
	return NewService(NewRegistry(), bus, nil), bus
}

func TestMembershipScenario(t *testing.T) {
	ctx := context.Background()
	svc, bus := newTestService()

	room, err := svc.CreateRoom(ctx, "AB12CD", "Ana", "fox", nil)
	require.NoError(t, err)
	require.Len(t, room.Players, 1)
	require.Equal(t, StatusWaiting, room.Status)

	room, err = svc.Join(ctx, "AB12CD", "Ben", "owl", nil)
	require.NoError(t, err)
	require.Len(t, room.Players, 2)
	require.Equal(t, "Ana", room.Players[0].Name)
	require.Equal(t, "Ben", room.Players[1].Name)

	joined := bus.named(EventRoomJoined)
	require.Len(t, joined, 1)

	// duplicate display name leaves the room untouched
	_, err = svc.Join(ctx, "AB12CD", "Ana", "cat", nil)
	require.ErrorIs(t, err, ErrNameTaken)

	current, err := svc.GetRoom(ctx, "AB12CD")
	require.NoError(t, err)
	require.Len(t, current.Players, 2)

	room, deleted, err := svc.Leave(ctx, "AB12CD", "Ana")
	require.NoError(t, err)
	require.False(t, deleted)
	require.Len(t, room.Players, 1)
	require.Equal(t, "Ben", room.Players[0].Name)

	left := bus.named(EventPlayerLeft)
	require.Len(t, left, 1)
	require.Equal(t, PlayerLeftPayload{PlayerName: "Ana"}, left[0].payload)

	before := len(bus.all())

	_, deleted, err = svc.Leave(ctx, "AB12CD", "Ben")
	require.NoError(t, err)
	require.True(t, deleted)

	// no broadcast target remains, so none is attempted
	require.Len(t, bus.all(), before)

	_, err = svc.GetRoom(ctx, "AB12CD")
	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestJoinUnknownRoom(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Join(context.Background(), "NOPE", "Ana", "fox", nil)
	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestLeaveAbsentPlayerIsNoop(t *testing.T) {
	ctx := context.Background()
	svc, bus := newTestService()

	_, err := svc.CreateRoom(ctx, "AB12CD", "Ana", "fox", nil)
	require.NoError(t, err)

	room, deleted, err := svc.Leave(ctx, "AB12CD", "Ghost")
	require.NoError(t, err)
	require.False(t, deleted)
	require.Len(t, room.Players, 1)

	// nobody left, so nobody is told anybody left
	require.Empty(t, bus.named(EventPlayerLeft))
}

func TestCharacterImageDerivedFromCharacter(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	room, err := svc.CreateRoom(ctx, "AB12CD", "Ana", "fox", nil)
	require.NoError(t, err)
	require.Equal(t, "images/fox.png", room.Players[0].CharacterImage)
}

func TestStartGame(t *testing.T) {
	t.Run("moves a waiting room into the prompt phase", func(t *testing.T) {
		ctx := context.Background()
		svc, bus := newTestService()

		_, err := svc.CreateRoom(ctx, "AB12CD", "Ana", "fox", nil)
		require.NoError(t, err)

		room, err := svc.StartGame(ctx, "AB12CD", "prompt")
		require.NoError(t, err)
		require.Equal(t, StatusPrompt, room.Status)
		require.Equal(t, "prompt", room.Mode)

		started := bus.named(EventStartGame)
		require.Len(t, started, 1)
		require.Equal(t, StartGamePayload{Mode: "prompt"}, started[0].payload)
	})

	t.Run("rejects a room already past waiting", func(t *testing.T) {
		ctx := context.Background()
		svc, bus := newTestService()

		_, err := svc.CreateRoom(ctx, "AB12CD", "Ana", "fox", nil)
		require.NoError(t, err)

		_, err = svc.StartGame(ctx, "AB12CD", "prompt")
		require.NoError(t, err)

		_, err = svc.StartGame(ctx, "AB12CD", "prompt")
		require.ErrorIs(t, err, ErrInvalidPhase)
		require.Len(t, bus.named(EventStartGame), 1)
	})

	t.Run("unknown room", func(t *testing.T) {
		svc, _ := newTestService()

		_, err := svc.StartGame(context.Background(), "NOPE", "prompt")
		require.ErrorIs(t, err, ErrRoomNotFound)
	})
}

func TestSubmitPrompt(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.CreateRoom(ctx, "AB12CD", "Ana", "fox", nil)
	require.NoError(t, err)

	// prompts are only collected during the prompt phase
	err = svc.SubmitPrompt(ctx, "AB12CD", "draw a cat")
	require.ErrorIs(t, err, ErrInvalidPhase)

	_, err = svc.StartGame(ctx, "AB12CD", "prompt")
	require.NoError(t, err)

	require.NoError(t, svc.SubmitPrompt(ctx, "AB12CD", "draw a cat"))
	require.NoError(t, svc.SubmitPrompt(ctx, "AB12CD", "draw a cat")) // duplicates permitted

	room, err := svc.GetRoom(ctx, "AB12CD")
	require.NoError(t, err)
	require.Equal(t, []string{"draw a cat", "draw a cat"}, room.Prompts)
	require.Equal(t, StatusPrompt, room.Status)
}

func TestDrawRandomPrompt(t *testing.T) {
	t.Run("fails on an empty pool", func(t *testing.T) {
		ctx := context.Background()
		svc, _ := newTestService()

		_, err := svc.CreateRoom(ctx, "AB12CD", "Ana", "fox", nil)
		require.NoError(t, err)
		_, err = svc.StartGame(ctx, "AB12CD", "prompt")
		require.NoError(t, err)

		_, err = svc.DrawRandomPrompt(ctx, "AB12CD")
		require.ErrorIs(t, err, ErrNoPrompts)
	})

	t.Run("returns a pool member and advances to drawing", func(t *testing.T) {
		ctx := context.Background()
		svc, _ := newTestService()

		_, err := svc.CreateRoom(ctx, "AB12CD", "Ana", "fox", nil)
		require.NoError(t, err)
		_, err = svc.StartGame(ctx, "AB12CD", "prompt")
		require.NoError(t, err)
		require.NoError(t, svc.SubmitPrompt(ctx, "AB12CD", "draw a cat"))

		prompt, err := svc.DrawRandomPrompt(ctx, "AB12CD")
		require.NoError(t, err)
		require.Equal(t, "draw a cat", prompt)

		room, err := svc.GetRoom(ctx, "AB12CD")
		require.NoError(t, err)
		require.Equal(t, StatusDrawing, room.Status)
		require.Equal(t, "draw a cat", room.CurrentPrompt)
	})

	t.Run("does not consume the pool", func(t *testing.T) {
		ctx := context.Background()
		svc, _ := newTestService()

		_, err := svc.CreateRoom(ctx, "AB12CD", "Ana", "fox", nil)
		require.NoError(t, err)
		_, err = svc.StartGame(ctx, "AB12CD", "prompt")
		require.NoError(t, err)

		pool := []string{"draw a cat", "draw a house", "draw a boat"}
		for _, p := range pool {
			require.NoError(t, svc.SubmitPrompt(ctx, "AB12CD", p))
		}

		for i := 0; i < 20; i++ {
			prompt, err := svc.DrawRandomPrompt(ctx, "AB12CD")
			require.NoError(t, err)
			require.Contains(t, pool, prompt)
		}

		room, err := svc.GetRoom(ctx, "AB12CD")
		require.NoError(t, err)
		require.Len(t, room.Prompts, len(pool))
	})
}

func TestComplete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.CreateRoom(ctx, "AB12CD", "Ana", "fox", nil)
	require.NoError(t, err)

	_, err = svc.Complete(ctx, "AB12CD")
	require.ErrorIs(t, err, ErrInvalidPhase)

	_, err = svc.StartGame(ctx, "AB12CD", "prompt")
	require.NoError(t, err)
	require.NoError(t, svc.SubmitPrompt(ctx, "AB12CD", "draw a cat"))
	_, err = svc.DrawRandomPrompt(ctx, "AB12CD")
	require.NoError(t, err)

	room, err := svc.Complete(ctx, "AB12CD")
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, room.Status)
}

func TestWriteBehindPersistence(t *testing.T) {
	t.Run("mirrors mutations and deletions", func(t *testing.T) {
		ctx := context.Background()
		bus := &recordingBus{}
		store := &fakeStore{}
		svc := NewService(NewRegistry(), bus, store)

		_, err := svc.CreateRoom(ctx, "AB12CD", "Ana", "fox", nil)
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			return store.savedCount() == 1
		}, time.Second, 5*time.Millisecond)

		_, deleted, err := svc.Leave(ctx, "AB12CD", "Ana")
		require.NoError(t, err)
		require.True(t, deleted)

		require.Eventually(t, func() bool {
			return store.deletedCount() == 1
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("a store failure never rolls back live state", func(t *testing.T) {
		ctx := context.Background()
		bus := &recordingBus{}
		store := &fakeStore{err: errors.New("connection refused")}
		svc := NewService(NewRegistry(), bus, store)

		_, err := svc.CreateRoom(ctx, "AB12CD", "Ana", "fox", nil)
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			return store.savedCount() == 1
		}, time.Second, 5*time.Millisecond)

		room, err := svc.GetRoom(ctx, "AB12CD")
		require.NoError(t, err)
		require.Len(t, room.Players, 1)
	})
}

func TestJoinBindsBeforeRoomUnlocks(t *testing.T) {
	ctx := context.Background()
	svc, bus := newTestService()

	_, err := svc.CreateRoom(ctx, "AB12CD", "Ana", "fox", nil)
	require.NoError(t, err)

	var (
		carolDone chan struct{}
		carolErr  error
	)

	_, err = svc.Join(ctx, "AB12CD", "Ben", "owl", func(room *Room) {
		require.Len(t, room.Players, 2)

		// a join racing the bind must queue behind the room lock, so its
		// broadcast cannot be committed while Ben is still unsubscribed
		carolDone = make(chan struct{})
		go func() {
			defer close(carolDone)
			_, carolErr = svc.Join(ctx, "AB12CD", "Carol", "cat", nil)
		}()

		time.Sleep(50 * time.Millisecond)
		require.Len(t, bus.named(EventRoomJoined), 1)
	})
	require.NoError(t, err)

	<-carolDone
	require.NoError(t, carolErr)
	require.Len(t, bus.named(EventRoomJoined), 2)
}

func TestConcurrentJoinsKeepNamesUnique(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.CreateRoom(ctx, "AB12CD", "host", "fox", nil)
	require.NoError(t, err)

	const attempts = 16

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Join(ctx, "AB12CD", "Ana", "owl", nil)
		}()
	}
	wg.Wait()

	room, err := svc.GetRoom(ctx, "AB12CD")
	require.NoError(t, err)

	var anas int
	for _, p := range room.Players {
		if p.Name == "Ana" {
			anas++
		}
	}
	require.Equal(t, 1, anas)
	require.Len(t, room.Players, 2)
}
