package hub

import (
	"slices"
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Subscribers only send control frames
	maxMessageSize = 4 * 1024
)

// Conn is the part of a websocket connection a subscriber needs.
type Conn interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

var _ Conn = (*websocket.Conn)(nil)

// Client is one subscriber connection.
type Client struct {
	hub    *Hub
	conn   Conn
	topics []string // empty means every topic
	send   chan []byte
}

// Subscribe registers conn for topics (all topics when none are given). If the
// hub has already stopped the client is returned closed and Serve exits at once.
func Subscribe(h *Hub, conn Conn, topics ...string) *Client {
	c := &Client{
		hub:    h,
		conn:   conn,
		topics: topics,
		send:   make(chan []byte, queueSize),
	}
	select {
	case h.join <- c:
	case <-h.done:
		close(c.send)
	}
	return c
}

func (c *Client) wants(topic string) bool {
	return len(c.topics) == 0 || slices.Contains(c.topics, topic)
}

// Serve pumps messages to the connection. It blocks until the peer hangs up
// or the hub stops.
func (c *Client) Serve() {
	go c.writeLoop()
	c.readLoop()
}

// readLoop consumes control frames so pongs and close frames are seen.
func (c *Client) readLoop() {
	defer func() {
		select {
		case c.hub.leave <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writeLoop is the only writer on the connection.
func (c *Client) writeLoop() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
