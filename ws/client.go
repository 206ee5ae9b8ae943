package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	pongWait     = 10 * time.Second
	pingInterval = (pongWait * 9) / 10
)

// egressBuffer bounds how many undelivered events a connection may queue.
// Sends never block a room's critical section; a consumer that falls this
// far behind loses frames instead.
const egressBuffer = 32

type Client struct {
	ID         string
	connection *websocket.Conn
	manager    *Manager
	egress     chan Event
	err        chan error
}

func NewClient(conn *websocket.Conn, manager *Manager) *Client {
	return &Client{
		ID:         uuid.NewString(),
		connection: conn,
		manager:    manager,
		egress:     make(chan Event, egressBuffer),
		// buffered so the second pump can report its error and still exit
		err: make(chan error, 2),
	}
}

// Reads incoming messages from the client's websocket connection
func (c *Client) readMessages(ctx context.Context) {
	c.connection.SetReadLimit(1024)

	if err := c.connection.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.handleError(err)
		return
	}

	c.connection.SetPongHandler(c.pongHandler)

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, payload, err := c.connection.ReadMessage()

			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("client", c.ID).Msg("error reading message")
				}
				c.handleError(err)
				return
			}

			var evt Event

			if err := json.Unmarshal(payload, &evt); err != nil {
				c.handleError(err)
				return
			}

			if err := c.manager.routeEvent(ctx, evt, c); err != nil {
				log.Warn().Err(err).Str("event", evt.Type).Str("client", c.ID).Msg("error handling event")

				errEvent, err := NewErrorEvent(err.Error())

				if err != nil {
					c.handleError(err)
					return
				}

				c.Send(errEvent)
			}
		}
	}
}

// writes messages pushed to the client's egress channel
func (c *Client) writeMessages(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)

	defer func() {
		ticker.Stop()
	}()

	for {
		select {
		// if the context is cancelled, return
		case <-ctx.Done():
			return
		case message, ok := <-c.egress:
			if !ok { // if client egress conn is closed unexpectedly
				c.handleError(errors.New("client egress channel unexpectedly closed"))
				return
			}

			data, err := json.Marshal(message)

			if err != nil {
				c.handleError(err)
				return
			}

			if err := c.connection.WriteMessage(websocket.TextMessage, data); err != nil {
				c.handleError(err)
				return
			}
		case <-ticker.C:
			if err := c.connection.WriteMessage(websocket.PingMessage, []byte("")); err != nil {
				c.handleError(err)
				return
			}
		}
	}
}

// Sets a new read deadline when a pong is received for a ping message.
func (c *Client) pongHandler(pongMsg string) error {
	return c.connection.SetReadDeadline(time.Now().Add(pongWait))
}

// Push error to client error channel. This is used by the
// http handler to know when an error has occurred in a client's readMessages or
// writeMessages goroutine. The http handler cleans the client up when an error
// is pushed to the channel.
func (c *Client) handleError(e error) {
	c.err <- e
}

// Returns the error channel
func (c *Client) Err() chan error {
	return c.err
}

// SendEvent builds an event and queues it for delivery on this connection.
func (c *Client) SendEvent(evtType string, payload any) error {
	evt, err := NewEvent(evtType, payload)
	if err != nil {
		return err
	}
	c.Send(evt)
	return nil
}

// Send queues an event for delivery without blocking. Events for a
// connection whose egress buffer is full are dropped.
func (c *Client) Send(evt Event) {
	select {
	case c.egress <- evt:
	default:
		log.Warn().Str("client", c.ID).Str("event", evt.Type).Msg("egress buffer full, dropping event")
	}
}
