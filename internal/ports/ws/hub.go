package ws

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// MessageHandler consumes inbound traffic from the hub. The hub calls
// it from each connection's read loop, one message at a time per
// connection.
type MessageHandler interface {
	ConnectionOpened(connID string)
	HandleMessage(connID string, data []byte)
	ConnectionClosed(connID string)
}

// Hub owns every live websocket connection and implements the
// ports.Gateway contract: stable per-connection ids, room groups, and
// fire-and-forget delivery. Connections outside any room form the
// lobby.
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader
	handler  MessageHandler

	mu          sync.RWMutex
	conns       map[string]*client
	rooms       map[string]map[string]*client
	roomsByConn map[string]string // connID -> roomID, "" while in the lobby
}

// NewHub constructs a hub. An empty allowedOrigin accepts any origin.
func NewHub(log *zap.Logger, allowedOrigin string) *Hub {
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
		conns:       make(map[string]*client),
		rooms:       make(map[string]map[string]*client),
		roomsByConn: make(map[string]string),
	}
}

// SetHandler wires the inbound message consumer. Must be called before
// ServeWS.
func (h *Hub) SetHandler(handler MessageHandler) {
	h.handler = handler
}

// ServeWS upgrades an HTTP request and runs the connection until it
// closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		id:   uuid.NewString(),
		ws:   conn,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.conns[c.id] = c
	h.roomsByConn[c.id] = ""
	h.mu.Unlock()

	h.log.Info("connection opened", zap.String("conn", c.id))
	go c.writePump()
	h.handler.ConnectionOpened(c.id)

	c.readPump(h)

	h.remove(c)
	h.handler.ConnectionClosed(c.id)
	h.log.Info("connection closed", zap.String("conn", c.id))
}

// remove forgets a connection entirely: its room group membership, the
// lobby and the send queue.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if roomID := h.roomsByConn[c.id]; roomID != "" {
		delete(h.rooms[roomID], c.id)
	}
	delete(h.roomsByConn, c.id)
	delete(h.conns, c.id)
	h.mu.Unlock()
	c.shutdown()
}

// AddToRoom moves a connection from the lobby into a room group.
func (h *Hub) AddToRoom(roomID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.conns[connID]
	if !ok {
		return
	}
	if prev := h.roomsByConn[connID]; prev != "" {
		delete(h.rooms[prev], connID)
	}
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[string]*client)
	}
	h.rooms[roomID][connID] = c
	h.roomsByConn[connID] = roomID
}

// RemoveFromRoom returns a connection to the lobby.
func (h *Hub) RemoveFromRoom(roomID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms[roomID], connID)
	if _, ok := h.conns[connID]; ok {
		h.roomsByConn[connID] = ""
	}
}

// DropRoom dissolves a room group, returning members to the lobby.
func (h *Hub) DropRoom(roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for connID := range h.rooms[roomID] {
		h.roomsByConn[connID] = ""
	}
	delete(h.rooms, roomID)
}

// SendToConn queues a frame for one connection; a full queue drops it.
func (h *Hub) SendToConn(connID string, frame []byte) {
	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	c.enqueue(frame)
}

// SendToRoom queues a frame for every member of a room group.
func (h *Hub) SendToRoom(roomID string, frame []byte) {
	h.mu.RLock()
	members := make([]*client, 0, len(h.rooms[roomID]))
	for _, c := range h.rooms[roomID] {
		members = append(members, c)
	}
	h.mu.RUnlock()
	for _, c := range members {
		c.enqueue(frame)
	}
}

// SendToLobby queues a frame for every connection not in a room.
func (h *Hub) SendToLobby(frame []byte) {
	h.mu.RLock()
	idle := make([]*client, 0, len(h.conns))
	for id, c := range h.conns {
		if h.roomsByConn[id] == "" {
			idle = append(idle, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range idle {
		c.enqueue(frame)
	}
}
