package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dimasfh/sociagram/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10

	sendBuffer = 256
)

// Frame is the envelope every socket message travels in.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func newFrame(event string, data any) (Frame, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Event: event, Data: raw}, nil
}

// Client is one websocket connection owned by a user. Writes go through the
// buffered send channel; the writePump is the only goroutine touching the
// connection for writes.
type Client struct {
	userID  string
	conn    *websocket.Conn
	send    chan Frame
	gateway *Gateway
	log     logger.Log

	mu     sync.Mutex
	closed bool
}

func newClient(userID string, conn *websocket.Conn, gw *Gateway, log logger.Log) *Client {
	return &Client{
		userID:  userID,
		conn:    conn,
		send:    make(chan Frame, sendBuffer),
		gateway: gw,
		log:     log,
	}
}

// enqueue hands a frame to the writePump. A full buffer or a closed client
// drops the frame; delivery is best effort.
func (c *Client) enqueue(f Frame) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- f:
		return true
	default:
		c.log.Warnf("send buffer full for user %s, dropping %s", c.userID, f.Event)
		return false
	}
}

// close stops further enqueues and signals the writePump to exit.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) readPump() {
	defer c.gateway.disconnect(c)
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		var frame Frame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debugf("read from %s: %v", c.userID, err)
			}
			return
		}
		c.gateway.handleFrame(c, frame)
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
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
