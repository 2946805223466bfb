package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	sendQueueSize = 64
	writeWait     = 10 * time.Second
	readWait      = 120 * time.Second
	pingPeriod    = 30 * time.Second
)

// client is one websocket connection with a buffered outbound queue.
type client struct {
	id   string
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

// enqueue queues a frame without blocking; a full queue drops it.
func (c *client) enqueue(frame []byte) {
	select {
	case c.send <- frame:
	default:
	}
}

// shutdown stops the write pump and closes the socket. Safe to call
// more than once.
func (c *client) shutdown() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// readPump consumes inbound frames until the connection fails or
// closes, feeding each to the hub's handler in order.
func (c *client) readPump(h *Hub) {
	defer c.shutdown()

	_ = c.ws.SetReadDeadline(time.Now().Add(readWait))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(readWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		h.handler.HandleMessage(c.id, data)
	}
}

// writePump drains the send queue and keeps the connection alive with
// periodic pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.shutdown()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
