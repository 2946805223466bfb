package app

import (
	"sync"

	"rummikub/internal/domain"
)

// Room pairs a session with its exclusive lock. Every mutating
// operation on the session runs under mu, so concurrent actions from
// the two connections serialize per room rather than globally.
//
// closed marks a destroyed or displaced session. A caller that fetched
// the room before the destroy and locked it after must observe the
// flag and treat the room as unknown, never mutating the orphan.
type Room struct {
	mu      sync.Mutex
	closed  bool
	Session *domain.GameSession
}

// RoomSummary is the public listing entry for a room.
type RoomSummary struct {
	RoomID      string       `json:"roomId"`
	State       domain.State `json:"state"`
	PlayerCount int          `json:"playerCount"`
}

// RoomRegistry is the process-wide keyed collection of live sessions.
// All access to the collection goes through its methods.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewRoomRegistry constructs an empty registry.
func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{rooms: make(map[string]*Room)}
}

// Put stores a session under its room id. A collision with an existing
// id silently replaces the old session; callers rely on this observed
// behavior, so it is not rejected here. The displaced room is closed so
// a holder of the stale pointer cannot keep mutating it.
func (r *RoomRegistry) Put(session *domain.GameSession) *Room {
	room := &Room{Session: session}
	r.mu.Lock()
	old := r.rooms[session.RoomID]
	r.rooms[session.RoomID] = room
	r.mu.Unlock()
	if old != nil {
		old.mu.Lock()
		old.closed = true
		old.mu.Unlock()
	}
	return room
}

// Get returns the room for an id, if present.
func (r *RoomRegistry) Get(roomID string) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[roomID]
	return room, ok
}

// Destroy removes a room entirely. It is idempotent.
func (r *RoomRegistry) Destroy(roomID string) {
	r.mu.Lock()
	delete(r.rooms, roomID)
	r.mu.Unlock()
}

// FindByPlayer locates the room containing a player with the given id.
// A player never belongs to more than one session, so the first match
// is the only one.
func (r *RoomRegistry) FindByPlayer(playerID string) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, room := range r.rooms {
		if room.Session.FindPlayer(playerID) != nil {
			return room, true
		}
	}
	return nil, false
}

// List returns public summaries of all live rooms.
func (r *RoomRegistry) List() []RoomSummary {
	r.mu.RLock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.mu.RUnlock()

	out := make([]RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		room.mu.Lock()
		out = append(out, RoomSummary{
			RoomID:      room.Session.RoomID,
			State:       room.Session.State,
			PlayerCount: len(room.Session.Players),
		})
		room.mu.Unlock()
	}
	return out
}
