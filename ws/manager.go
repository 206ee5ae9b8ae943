package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"

	"sketchparty/game"
)

type ClientList map[string]*Client

// binding is the (room, player) identity a connection represents. It is
// written at create/join time and read exactly once on disconnect, so
// cleanup never scans rooms to find the leaving player.
type binding struct {
	roomCode   string
	playerName string
}

// Manager owns the live websocket connections, the per-room subscriber
// sets, and the connection-to-identity binding table. It is the session
// event bus: the game service publishes through it, and inbound events are
// routed to their handlers by type.
type Manager struct {
	sync.RWMutex
	clients  ClientList
	rooms    map[string][]*Client
	bindings map[string]binding
	handlers map[string]EventHandler
	service  *game.Service
	validate *validator.Validate
	upgrader websocket.Upgrader
}

func NewManager(validate *validator.Validate, allowedOrigin string) *Manager {
	m := &Manager{
		clients:  make(ClientList),
		rooms:    make(map[string][]*Client),
		bindings: make(map[string]binding),
		handlers: make(map[string]EventHandler),
		validate: validate,
	}

	m.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}

	m.setupEventHandlers()

	return m
}

// SetService wires the game service after construction. The manager and
// the service reference each other, so one side has to be attached late;
// this must happen before the first connection is served.
func (m *Manager) SetService(service *game.Service) {
	m.service = service
}

func (m *Manager) setupEventHandlers() {
	m.handlers[EventCreateRoom] = CreateRoomHandler
	m.handlers[EventJoinRoom] = JoinRoomHandler
}

func (m *Manager) routeEvent(ctx context.Context, evt Event, c *Client) error {
	if handler, ok := m.handlers[evt.Type]; ok {
		if err := handler(ctx, evt, c); err != nil {
			return err
		}

		return nil
	}

	return errors.New("there is no such event type")
}

func (m *Manager) addClient(client *Client) {
	m.Lock()
	defer m.Unlock()

	m.clients[client.ID] = client
}

func (m *Manager) removeClient(client *Client) {
	m.Lock()
	defer m.Unlock()

	if _, ok := m.clients[client.ID]; ok {
		client.connection.Close()
		delete(m.clients, client.ID)
	}
}

// Subscribe adds the connection to the room's delivery set and records the
// (room, player) identity it now represents. A connection holds at most
// one binding; subscribing again replaces the previous one.
func (m *Manager) Subscribe(c *Client, code, playerName string) {
	m.Lock()
	defer m.Unlock()

	if prev, ok := m.bindings[c.ID]; ok && prev.roomCode != code {
		m.unsubscribeLocked(c, prev.roomCode)
	}

	room := m.rooms[code]
	if !slices.Contains(room, c) {
		m.rooms[code] = append(room, c)
	}

	m.bindings[c.ID] = binding{roomCode: code, playerName: playerName}
}

// Publish delivers an event to every connection currently subscribed to
// the room. A room with no subscribers is a silent no-op; that happens
// legitimately when a room was deleted right after its last leave.
func (m *Manager) Publish(code string, event string, payload any) {
	evt, err := NewEvent(event, payload)
	if err != nil {
		log.Error().Err(err).Str("room", code).Str("event", event).Msg("failed to encode event")
		return
	}

	m.RLock()
	subscribers := slices.Clone(m.rooms[code])
	m.RUnlock()

	for _, client := range subscribers {
		client.Send(evt)
	}
}

// resolveAndRemove looks up the identity bound to the connection and
// removes both the binding and the room subscription. The identity is
// returned at most once per connection; a second call, or a call for a
// connection that never joined, reports ok = false.
func (m *Manager) resolveAndRemove(c *Client) (code, playerName string, ok bool) {
	m.Lock()
	defer m.Unlock()

	b, ok := m.bindings[c.ID]
	if !ok {
		return "", "", false
	}

	delete(m.bindings, c.ID)
	m.unsubscribeLocked(c, b.roomCode)

	return b.roomCode, b.playerName, true
}

func (m *Manager) unsubscribeLocked(c *Client, code string) {
	room := m.rooms[code]
	if idx := slices.Index(room, c); idx >= 0 {
		room = append(room[:idx], room[idx+1:]...)
	}
	if len(room) == 0 {
		delete(m.rooms, code)
	} else {
		m.rooms[code] = room
	}
}

// disconnect resolves the connection's identity and removes the player
// from their room. Safe no-op for a connection with no bound identity.
func (m *Manager) disconnect(ctx context.Context, c *Client) {
	code, playerName, ok := m.resolveAndRemove(c)
	if !ok {
		return
	}

	_, deleted, err := m.service.Leave(ctx, code, playerName)

	switch {
	case errors.Is(err, game.ErrRoomNotFound):
		// leave raced an already-completed cleanup
	case err != nil:
		log.Error().Err(err).Str("room", code).Str("player", playerName).Msg("disconnect cleanup failed")
	case deleted:
		log.Info().Str("room", code).Msg("room deleted because it is empty")
	}
}

// Websocket connection handler
func (m *Manager) ServeWS(c *gin.Context) {
	conn, err := m.upgrader.Upgrade(c.Writer, c.Request, nil)

	if err != nil {
		log.Error().Err(err).Msg("error upgrading to websocket connection")
		return
	}

	client := NewClient(conn, m)

	m.addClient(client)

	ctx, cancel := context.WithCancel(c.Request.Context())

	defer func() {
		cancel()
		m.disconnect(context.Background(), client)
		m.removeClient(client)

		err := client.connection.WriteMessage(websocket.CloseMessage, nil)

		if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
			log.Debug().Err(err).Str("client", client.ID).Msg("error sending close message")
		}
	}()

	go client.readMessages(ctx)
	go client.writeMessages(ctx)

	err = <-client.Err()

	log.Debug().Err(err).Str("client", client.ID).Msg("client connection ended")
}
