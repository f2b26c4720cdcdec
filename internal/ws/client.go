package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/DarshikR/Chat-App/internal/domain"
	"github.com/DarshikR/Chat-App/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64
)

// Client wraps one websocket connection and its read/write pumps.
type Client struct {
	userID string
	conn   *websocket.Conn
	hub    *Hub
	log    logger.Logger

	send      chan domain.Event
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(userID string, conn *websocket.Conn, hub *Hub, log logger.Logger) *Client {
	return &Client{
		userID: userID,
		conn:   conn,
		hub:    hub,
		log:    log,
		send:   make(chan domain.Event, sendBufferSize),
		done:   make(chan struct{}),
	}
}

// Enqueue hands an event to the write pump without blocking. A full
// buffer means the consumer is not keeping up; the connection is closed
// and the event dropped.
func (c *Client) Enqueue(event domain.Event) bool {
	select {
	case c.send <- event:
		return true
	case <-c.done:
		return false
	default:
		c.Close()
		return false
	}
}

// Close signals both pumps to shut down. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Serve runs the write pump in a goroutine and the read pump on the
// calling goroutine. It returns once the connection is gone and the
// registry entry is released.
func (c *Client) Serve() {
	go c.writePump()
	c.readPump()
}

// readPump consumes client events (typing signals) and relays them
// through the hub. Exit tears down the registry binding; the
// match-before-delete guard in the registry keeps a stale exit from
// clobbering a fresher reconnect.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c.userID, c)
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var event domain.Event
		if err := c.conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("Websocket read failed", "user_id", c.userID, "error", err)
			}
			return
		}

		switch event.Name {
		case domain.EventTyping:
			c.hub.Typing(c.userID, event.To)
		case domain.EventStopTyping:
			c.hub.StopTyping(c.userID, event.To)
		default:
			c.log.Debug("Ignoring unknown client event", "event", event.Name, "user_id", c.userID)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
